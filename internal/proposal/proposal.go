// Package proposal turns unstructured model output into validated, typed
// change proposals. Input is untrusted by construction: only a constrained
// sub-grammar is recognized, and every candidate runs a fixed validation
// chain before a user ever sees it. The engine has no write access to the
// store.
package proposal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nomore1007/SnekretAIry/internal/model"
)

// State is the proposal lifecycle state. pending_approval -> approved or
// rejected; approved -> applied or failed. rejected, failed, and applied are
// terminal.
type State string

const (
	StatePendingApproval State = "pending_approval"
	StateApproved        State = "approved"
	StateRejected        State = "rejected"
	StateApplied         State = "applied"
	StateFailed          State = "failed"
)

// Actions the system will ever perform. Anything else is rejected.
const (
	ActionAdd          = "add"
	ActionUpdateStatus = "update_status"
)

// Proposal is a parsed candidate change. Ephemeral: it exists only between
// parsing and application (or rejection).
type Proposal struct {
	ID               string            `json:"id"`
	TargetCollection string            `json:"target_collection"`
	Action           string            `json:"action"`
	Fields           map[string]string `json:"fields"`
	SourceText       string            `json:"source_text"`
	Query            string            `json:"query,omitempty"`
	Confidence       float64           `json:"confidence"`
	State            State             `json:"state"`
	RejectionReason  string            `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Approve moves a pending proposal to approved. Only the user-facing layer
// calls this; there is no autonomous approval path.
func (p *Proposal) Approve() error {
	if p.State != StatePendingApproval {
		return fmt.Errorf("cannot approve proposal in state %q", p.State)
	}
	p.State = StateApproved
	return nil
}

// Reject moves a pending proposal to its terminal rejected state.
func (p *Proposal) Reject(reason string) error {
	if p.State != StatePendingApproval {
		return fmt.Errorf("cannot reject proposal in state %q", p.State)
	}
	p.State = StateRejected
	p.RejectionReason = reason
	return nil
}

// Summary renders a one-line human description for display and audit.
func (p *Proposal) Summary() string {
	switch {
	case p.Action == ActionAdd && p.TargetCollection == model.CollectionGoalTask:
		return fmt.Sprintf("add %s: %s", p.Fields["kind"], truncate(p.Fields["text"], 80))
	case p.Action == ActionAdd && p.TargetCollection == model.CollectionJournal:
		return fmt.Sprintf("add journal entry: %s", truncate(p.Fields["body"], 80))
	case p.Action == ActionUpdateStatus:
		return fmt.Sprintf("update status of %s to %s", p.Fields["id"], p.Fields["status"])
	default:
		return fmt.Sprintf("%s on %s", p.Action, p.TargetCollection)
	}
}

func newProposal(collection, action string, fields map[string]string, source, query string, confidence float64, now time.Time) *Proposal {
	if fields == nil {
		fields = map[string]string{}
	}
	return &Proposal{
		ID:               uuid.NewString(),
		TargetCollection: collection,
		Action:           action,
		Fields:           fields,
		SourceText:       source,
		Query:            query,
		Confidence:       confidence,
		State:            StatePendingApproval,
		CreatedAt:        now,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
