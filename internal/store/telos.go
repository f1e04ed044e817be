package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nomore1007/SnekretAIry/internal/model"
)

// AppendGoalTask appends a creation record for a new goal or task. The ID
// must be unused and parent_id, if set, must name an existing record.
// Returns the record as persisted (the timestamp may have been clamped to
// keep the collection non-decreasing).
func (s *Store) AppendGoalTask(ctx context.Context, rec model.GoalTask) (*model.GoalTask, error) {
	if rec.Status == "" {
		rec.Status = model.StatusOpen
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if err := model.ValidateGoalTask(rec); err != nil {
		return nil, fmt.Errorf("%w: goal_task: %v", ErrValidation, err)
	}

	err := s.withLock(ctx, func() error {
		entries, _, err := s.scanTelosLocked()
		if err != nil {
			return err
		}
		var last time.Time
		for _, e := range entries {
			if e.ID == rec.ID {
				return fmt.Errorf("%w: id %q already exists", ErrIntegrity, rec.ID)
			}
			last = e.CreatedAt
		}
		if rec.ParentID != "" && !containsID(entries, rec.ParentID) {
			return fmt.Errorf("%w: parent_id %q does not exist", ErrIntegrity, rec.ParentID)
		}
		rec.CreatedAt = clampTime(rec.CreatedAt, last)
		return s.appendTelosLine(rec)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("store: appended goal_task", "id", rec.ID, "kind", rec.Kind)
	return &rec, nil
}

// AppendStatusUpdate records a status change for an existing goal or task by
// appending a new line with the same ID and text. The prior line is never
// touched.
func (s *Store) AppendStatusUpdate(ctx context.Context, id, newStatus string) (*model.GoalTask, error) {
	if !model.ValidStatuses[newStatus] {
		return nil, fmt.Errorf("%w: invalid status %q (valid: open, in_progress, done)", ErrValidation, newStatus)
	}

	var rec model.GoalTask
	err := s.withLock(ctx, func() error {
		entries, _, err := s.scanTelosLocked()
		if err != nil {
			return err
		}
		current, ok := Fold(entries)[id]
		if !ok {
			return fmt.Errorf("%w: id %q does not exist", ErrIntegrity, id)
		}
		var last time.Time
		if n := len(entries); n > 0 {
			last = entries[n-1].CreatedAt
		}
		rec = current
		rec.Status = newStatus
		rec.CreatedAt = clampTime(s.now(), last)
		return s.appendTelosLine(rec)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("store: appended status update", "id", id, "status", newStatus)
	return &rec, nil
}

// ScanTelos returns all well-formed goal/task lines in append order, plus a
// fault per corrupt or invalid line. Faults never hide readable entries.
func (s *Store) ScanTelos(ctx context.Context) ([]model.GoalTask, []ScanFault, error) {
	_ = ctx
	return s.scanTelosLocked()
}

// Fold reduces telos lines to the effective record per ID: the last line
// wins, so its status is current and its timestamp is the last activity.
func Fold(entries []model.GoalTask) map[string]model.GoalTask {
	folded := make(map[string]model.GoalTask, len(entries))
	for _, e := range entries {
		folded[e.ID] = e
	}
	return folded
}

// FoldOrdered is Fold preserving first-appearance order.
func FoldOrdered(entries []model.GoalTask) []model.GoalTask {
	folded := Fold(entries)
	seen := make(map[string]bool, len(folded))
	out := make([]model.GoalTask, 0, len(folded))
	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, folded[e.ID])
	}
	return out
}

func containsID(entries []model.GoalTask, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) appendTelosLine(rec model.GoalTask) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal goal_task: %v", ErrStorage, err)
	}
	return s.appendBytes(s.telosPath(), append(b, '\n'))
}

// scanTelosLocked reads telos.jsonl without taking the lock; appends land
// via atomic rename, so a plain read always sees a consistent file.
func (s *Store) scanTelosLocked() ([]model.GoalTask, []ScanFault, error) {
	raw, err := readFileIfExists(s.telosPath())
	if err != nil {
		return nil, nil, err
	}

	var entries []model.GoalTask
	var faults []ScanFault
	for i, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec model.GoalTask
		if uerr := json.Unmarshal([]byte(line), &rec); uerr != nil {
			faults = append(faults, ScanFault{Pos: i + 1, Err: fmt.Errorf("%w: telos line %d: %v", ErrStorage, i+1, uerr)})
			continue
		}
		if verr := model.ValidateGoalTask(rec); verr != nil {
			faults = append(faults, ScanFault{Pos: i + 1, Err: fmt.Errorf("%w: telos line %d: %v", ErrStorage, i+1, verr)})
			continue
		}
		entries = append(entries, rec)
	}
	return entries, faults, nil
}
