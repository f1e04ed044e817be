package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nomore1007/SnekretAIry/internal/model"
)

// AppendChange appends an audit entry to the change log. Change records are
// written immediately after the record they describe and are never revised.
func (s *Store) AppendChange(ctx context.Context, c model.ChangeRecord) error {
	if err := model.ValidateChangeRecord(c); err != nil {
		return fmt.Errorf("%w: change record: %v", ErrValidation, err)
	}

	err := s.withLock(ctx, func() error {
		entries, _, serr := s.scanChangesLocked()
		if serr != nil {
			return serr
		}
		if n := len(entries); n > 0 {
			c.Timestamp = clampTime(c.Timestamp, entries[n-1].Timestamp)
		}
		b, merr := json.Marshal(c)
		if merr != nil {
			return fmt.Errorf("%w: marshal change record: %v", ErrStorage, merr)
		}
		return s.appendBytes(s.changesPath(), append(b, '\n'))
	})
	if err != nil {
		return err
	}
	slog.Info("store: appended change record",
		"collection", c.TargetCollection, "record_id", c.ResultingRecordID)
	return nil
}

// ScanChanges returns all well-formed change records in append order, plus a
// fault per corrupt line.
func (s *Store) ScanChanges(ctx context.Context) ([]model.ChangeRecord, []ScanFault, error) {
	_ = ctx
	return s.scanChangesLocked()
}

func (s *Store) scanChangesLocked() ([]model.ChangeRecord, []ScanFault, error) {
	raw, err := readFileIfExists(s.changesPath())
	if err != nil {
		return nil, nil, err
	}

	var entries []model.ChangeRecord
	var faults []ScanFault
	for i, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec model.ChangeRecord
		if uerr := json.Unmarshal([]byte(line), &rec); uerr != nil {
			faults = append(faults, ScanFault{Pos: i + 1, Err: fmt.Errorf("%w: changes line %d: %v", ErrStorage, i+1, uerr)})
			continue
		}
		entries = append(entries, rec)
	}
	return entries, faults, nil
}
