package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomore1007/SnekretAIry/internal/model"
)

// journal.md is a concatenation of blocks, each a YAML front-matter header
// and a Markdown body, separated by a line of 50 '=' characters. Entries are
// only ever appended, never reordered.
var journalSeparator = strings.Repeat("=", 50)

var separatorRe = regexp.MustCompile(`(?m)^={50,}\s*$`)

// journalHeader is the front-matter shape. Metadata keys are free-form
// scalars; timestamp is reserved.
type journalHeader struct {
	Timestamp string            `yaml:"timestamp"`
	Metadata  map[string]string `yaml:",inline"`
}

// AppendJournal appends a journal entry and returns its timestamp, which is
// the entry's key. A zero timestamp means "now"; either way the persisted
// value is bumped to stay strictly greater than the previous entry's.
func (s *Store) AppendJournal(ctx context.Context, e model.JournalEntry) (time.Time, error) {
	if err := model.ValidateJournalEntry(e); err != nil {
		return time.Time{}, fmt.Errorf("%w: journal: %v", ErrValidation, err)
	}

	var ts time.Time
	err := s.withLock(ctx, func() error {
		entries, _, err := s.scanJournalLocked()
		if err != nil {
			return err
		}
		ts = e.Timestamp
		if ts.IsZero() {
			ts = s.now()
		}
		if n := len(entries); n > 0 {
			if last := entries[n-1].Timestamp; !ts.After(last) {
				ts = last.Add(time.Nanosecond)
			}
		}
		e.Timestamp = ts
		block, ferr := formatJournalEntry(e)
		if ferr != nil {
			return ferr
		}
		return s.appendBytes(s.journalPath(), []byte(block))
	})
	if err != nil {
		return time.Time{}, err
	}
	slog.Info("store: appended journal entry", "timestamp", ts.Format(time.RFC3339Nano))
	return ts, nil
}

// ScanJournal returns all well-formed journal entries in append order, plus
// a fault per corrupt block.
func (s *Store) ScanJournal(ctx context.Context) ([]model.JournalEntry, []ScanFault, error) {
	_ = ctx
	return s.scanJournalLocked()
}

func (s *Store) scanJournalLocked() ([]model.JournalEntry, []ScanFault, error) {
	raw, err := readFileIfExists(s.journalPath())
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, nil
	}

	var entries []model.JournalEntry
	var faults []ScanFault
	for i, block := range separatorRe.Split(string(raw), -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		entry, perr := parseJournalBlock(block)
		if perr != nil {
			faults = append(faults, ScanFault{Pos: i + 1, Err: fmt.Errorf("%w: journal block %d: %v", ErrStorage, i+1, perr)})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, faults, nil
}

func formatJournalEntry(e model.JournalEntry) (string, error) {
	hdr := journalHeader{
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Metadata:  e.Metadata,
	}
	y, err := yaml.Marshal(&hdr)
	if err != nil {
		return "", fmt.Errorf("%w: marshal journal header: %v", ErrStorage, err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(y)
	sb.WriteString("---\n\n")
	sb.WriteString(strings.TrimRight(e.Body, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(journalSeparator)
	sb.WriteString("\n\n")
	return sb.String(), nil
}

func parseJournalBlock(block string) (model.JournalEntry, error) {
	var entry model.JournalEntry
	if !strings.HasPrefix(block, "---") {
		return entry, fmt.Errorf("missing front-matter delimiter")
	}
	rest := block[len("---"):]
	idx := strings.Index(rest, "\n---")
	if idx == -1 {
		return entry, fmt.Errorf("unclosed front-matter block")
	}

	var hdr journalHeader
	if err := yaml.Unmarshal([]byte(rest[:idx]), &hdr); err != nil {
		return entry, fmt.Errorf("front-matter: %v", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, hdr.Timestamp)
	if err != nil {
		return entry, fmt.Errorf("timestamp %q: %v", hdr.Timestamp, err)
	}

	body := rest[idx+len("\n---"):]
	entry = model.JournalEntry{
		Timestamp: ts,
		Body:      strings.TrimSpace(body),
		Metadata:  hdr.Metadata,
	}
	if entry.Body == "" {
		return entry, fmt.Errorf("empty body")
	}
	return entry, nil
}
