// Package mutation applies user-approved proposals to the memory store and
// writes the audit trail. It is the only component that creates records.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomore1007/SnekretAIry/internal/model"
	"github.com/nomore1007/SnekretAIry/internal/proposal"
	"github.com/nomore1007/SnekretAIry/internal/store"
)

// Result statuses for ApplyAll.
const (
	StatusApplied         = "applied"
	StatusFailed          = "failed"
	StatusSkippedRejected = "skipped_rejected"
)

// Decision pairs a pending proposal with the user's approve/reject call.
type Decision struct {
	Proposal *proposal.Proposal
	Approved bool
}

// Result is the per-proposal outcome of ApplyAll.
type Result struct {
	Proposal *proposal.Proposal `json:"proposal"`
	Status   string             `json:"status"`
	RecordID string             `json:"record_id,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Engine applies approved proposals.
type Engine struct {
	store *store.Store
	now   func() time.Time
}

// NewEngine returns an Engine writing to st.
func NewEngine(st *store.Store) *Engine {
	return &Engine{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Apply materializes one approved proposal: exactly one record append
// followed by exactly one change-log append, or neither. On store failure
// the proposal transitions to failed, no change record is written, and the
// underlying error is returned; a failed proposal is terminal and is never
// resumed.
func (e *Engine) Apply(ctx context.Context, p *proposal.Proposal) (string, error) {
	if p.State != proposal.StateApproved {
		return "", fmt.Errorf("mutation: cannot apply proposal in state %q", p.State)
	}

	recordID, err := e.materialize(ctx, p)
	if err != nil {
		p.State = proposal.StateFailed
		return "", err
	}

	change := model.ChangeRecord{
		Timestamp:         e.now(),
		ProposalSummary:   p.Summary(),
		TargetCollection:  p.TargetCollection,
		ResultingRecordID: recordID,
		ApprovedBy:        "user",
	}
	if err := e.store.AppendChange(ctx, change); err != nil {
		p.State = proposal.StateFailed
		return "", fmt.Errorf("mutation: record applied but audit append failed: %w", err)
	}

	p.State = proposal.StateApplied
	slog.Info("mutation: applied proposal",
		"proposal_id", p.ID, "collection", p.TargetCollection, "record_id", recordID)
	return recordID, nil
}

// ApplyAll applies each approved proposal independently, never batching:
// a failure midway leaves earlier appends (and their audit entries) intact
// and later decisions still run, so the change log shows exactly which
// proposals succeeded.
func (e *Engine) ApplyAll(ctx context.Context, decisions []Decision) []Result {
	results := make([]Result, 0, len(decisions))
	for _, d := range decisions {
		p := d.Proposal
		if !d.Approved {
			if p.State == proposal.StatePendingApproval {
				p.Reject("rejected by user")
			}
			results = append(results, Result{Proposal: p, Status: StatusSkippedRejected})
			continue
		}
		if p.State == proposal.StatePendingApproval {
			if err := p.Approve(); err != nil {
				results = append(results, Result{Proposal: p, Status: StatusFailed, Error: err.Error()})
				continue
			}
		}
		recordID, err := e.Apply(ctx, p)
		if err != nil {
			results = append(results, Result{Proposal: p, Status: StatusFailed, Error: err.Error()})
			continue
		}
		results = append(results, Result{Proposal: p, Status: StatusApplied, RecordID: recordID})
	}
	return results
}

// materialize converts the proposal into the concrete store append.
func (e *Engine) materialize(ctx context.Context, p *proposal.Proposal) (string, error) {
	switch {
	case p.Action == proposal.ActionAdd && p.TargetCollection == model.CollectionGoalTask:
		rec := model.GoalTask{
			ID:       e.store.NewID(),
			Kind:     p.Fields["kind"],
			Text:     p.Fields["text"],
			Status:   model.StatusOpen,
			ParentID: p.Fields["parent_id"],
		}
		stored, err := e.store.AppendGoalTask(ctx, rec)
		if err != nil {
			return "", err
		}
		return stored.ID, nil

	case p.Action == proposal.ActionAdd && p.TargetCollection == model.CollectionJournal:
		entry := model.JournalEntry{
			Body:     p.Fields["body"],
			Metadata: journalMetadata(p.Fields),
		}
		ts, err := e.store.AppendJournal(ctx, entry)
		if err != nil {
			return "", err
		}
		return ts.Format(time.RFC3339Nano), nil

	case p.Action == proposal.ActionUpdateStatus:
		stored, err := e.store.AppendStatusUpdate(ctx, p.Fields["id"], p.Fields["status"])
		if err != nil {
			return "", err
		}
		return stored.ID, nil

	default:
		// Unreachable for proposals that passed the engine's whitelist.
		return "", fmt.Errorf("mutation: unsupported action %q on %q", p.Action, p.TargetCollection)
	}
}

func journalMetadata(fields map[string]string) map[string]string {
	meta := map[string]string{}
	for k, v := range fields {
		if k == "body" {
			continue
		}
		meta[k] = v
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
