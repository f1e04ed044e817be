package proposal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomore1007/SnekretAIry/internal/model"
	"github.com/nomore1007/SnekretAIry/internal/store"
)

// RecordSource is the read-only store access the engine needs for
// referential checks. The engine can never write.
type RecordSource interface {
	ScanTelos(ctx context.Context) ([]model.GoalTask, []store.ScanFault, error)
}

// Engine parses model replies into proposal outcomes.
type Engine struct {
	source RecordSource
	now    func() time.Time
}

// NewEngine returns an Engine reading existing IDs from src.
func NewEngine(src RecordSource) *Engine {
	return &Engine{
		source: src,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Parse scans raw model output for recognized fragments and returns one
// outcome per fragment, fenced JSON blocks first in order of appearance and
// then tagged lines: pending_approval when the whole validation chain
// passes, rejected with a reason otherwise. An empty or
// unrecognizable reply yields zero outcomes — that is normal, not an error.
// The error return covers only store access failures.
func (e *Engine) Parse(ctx context.Context, raw, query string) ([]*Proposal, error) {
	candidates := extract(raw)
	if len(candidates) == 0 {
		return nil, nil
	}

	telos, _, err := e.source.ScanTelos(ctx)
	if err != nil {
		return nil, fmt.Errorf("proposal: scan records: %w", err)
	}
	existing := store.Fold(telos)

	out := make([]*Proposal, 0, len(candidates))
	for _, c := range candidates {
		p := newProposal(c.collection, c.action, c.fields, c.source, query, c.confidence, e.now())
		if reason := e.validate(c, existing); reason != "" {
			p.State = StateRejected
			p.RejectionReason = reason
		}
		out = append(out, p)
	}
	return out, nil
}

// validate runs the fixed chain — schema, limits, referential, action
// whitelist — short-circuiting on the first failure. Returns the rejection
// reason, or "" when the candidate is safe to present.
func (e *Engine) validate(c candidate, existing map[string]model.GoalTask) string {
	if c.parseFault != "" {
		return c.parseFault
	}
	for _, stage := range []func(candidate, map[string]model.GoalTask) string{
		checkSchema,
		checkLimits,
		e.checkReferential,
		e.checkWhitelist,
	} {
		if reason := stage(c, existing); reason != "" {
			return reason
		}
	}
	return ""
}

// checkSchema enforces required fields and vocabulary per known action.
// Unknown actions pass through so the whitelist stage can name them.
func checkSchema(c candidate, _ map[string]model.GoalTask) string {
	if c.collection != "" && !model.ValidCollections[c.collection] {
		return fmt.Sprintf("unknown collection %q", c.collection)
	}

	switch c.action {
	case ActionAdd:
		switch c.collection {
		case model.CollectionGoalTask:
			kind := c.fields["kind"]
			if kind == "" {
				return "missing field kind (goal or task)"
			}
			if !model.ValidKinds[kind] {
				return fmt.Sprintf("invalid kind %q (valid: goal, task)", kind)
			}
			if c.fields["text"] == "" {
				return "missing field text"
			}
			for k := range c.fields {
				if k != "kind" && k != "text" && k != "parent_id" {
					return fmt.Sprintf("field %q is not part of the goal_task schema", k)
				}
			}
		case model.CollectionJournal:
			if c.fields["body"] == "" {
				return "missing field body"
			}
		default:
			return "add requires a target collection"
		}
	case ActionUpdateStatus:
		if c.fields["id"] == "" {
			return "missing field id"
		}
		status := c.fields["status"]
		if status == "" {
			return "missing field status"
		}
		if !model.ValidStatuses[status] {
			return fmt.Sprintf("invalid status %q (valid: open, in_progress, done)", status)
		}
		for k := range c.fields {
			if k != "id" && k != "status" {
				return fmt.Sprintf("field %q is not part of the update_status schema", k)
			}
		}
	}
	return ""
}

// checkLimits bounds field counts, key charset, and value size so a
// pathological reply cannot smuggle binary or oversized payloads.
func checkLimits(c candidate, _ map[string]model.GoalTask) string {
	if len(c.fields) > 16 {
		return fmt.Sprintf("too many fields (%d, max 16)", len(c.fields))
	}
	for k, v := range c.fields {
		if !fieldKeyRe.MatchString(k) {
			return fmt.Sprintf("invalid field name %q", k)
		}
		if err := model.CheckText(v); err != nil {
			return fmt.Sprintf("field %q: %v", k, err)
		}
	}
	return ""
}

// checkReferential verifies every referenced ID against the store.
func (e *Engine) checkReferential(c candidate, existing map[string]model.GoalTask) string {
	if pid := c.fields["parent_id"]; pid != "" {
		if _, ok := existing[pid]; !ok {
			return fmt.Sprintf("parent_id %q does not exist", pid)
		}
	}
	if c.action == ActionUpdateStatus {
		if _, ok := existing[c.fields["id"]]; !ok {
			return fmt.Sprintf("id %q does not exist", c.fields["id"])
		}
	}
	return ""
}

// checkWhitelist is the final gate: only add and update_status ever pass.
// A destructive verb is rejected and logged, never silently dropped.
func (e *Engine) checkWhitelist(c candidate, _ map[string]model.GoalTask) string {
	if c.action == ActionAdd || c.action == ActionUpdateStatus {
		return ""
	}
	slog.Warn("proposal: rejected unsafe action",
		"action", c.action, "source", truncate(c.source, 120))
	return fmt.Sprintf("action %q is not permitted (allowed: add, update_status)", c.action)
}
