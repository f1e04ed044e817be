// Package model defines the record types persisted by the memory store.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Record kinds in the goal/task collection.
const (
	KindGoal = "goal"
	KindTask = "task"
)

// Goal/task statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Collection names, as they appear in proposals and change records.
const (
	CollectionGoalTask = "goal_task"
	CollectionJournal  = "journal"
)

// MaxTextLen bounds the text/body of any record. Model output is untrusted,
// so oversized payloads are rejected before they reach disk.
const MaxTextLen = 2000

// GoalTask is one line of telos.jsonl. The first line for an ID creates the
// record; a later line with the same ID and a new status is a status update.
// Text never changes across lines of the same ID.
type GoalTask struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JournalEntry is one block of journal.md: a YAML front-matter header
// followed by a free-text body. The timestamp is the entry's key and is
// strictly increasing within a file.
type JournalEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ChangeRecord is one line of changes.jsonl, the audit trail of applied
// proposals. Appended after the record it describes, never mutated.
type ChangeRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	ProposalSummary   string    `json:"proposal_summary"`
	TargetCollection  string    `json:"target_collection"`
	ResultingRecordID string    `json:"resulting_record_id"`
	ApprovedBy        string    `json:"approved_by"`
}

// ValidKinds are the allowed goal/task kinds.
var ValidKinds = map[string]bool{
	KindGoal: true,
	KindTask: true,
}

// ValidStatuses are the allowed goal/task statuses.
var ValidStatuses = map[string]bool{
	StatusOpen:       true,
	StatusInProgress: true,
	StatusDone:       true,
}

// ValidCollections are the collections a proposal may target.
var ValidCollections = map[string]bool{
	CollectionGoalTask: true,
	CollectionJournal:  true,
}

// ValidateGoalTask checks required fields and vocabulary membership.
// Referential rules (parent existence, ID uniqueness) are the store's job.
func ValidateGoalTask(r GoalTask) error {
	if r.ID == "" {
		return fmt.Errorf("missing id")
	}
	if !ValidKinds[r.Kind] {
		return fmt.Errorf("invalid kind %q (valid: goal, task)", r.Kind)
	}
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("missing text")
	}
	if err := CheckText(r.Text); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	if !ValidStatuses[r.Status] {
		return fmt.Errorf("invalid status %q (valid: open, in_progress, done)", r.Status)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("missing created_at")
	}
	return nil
}

// separatorLineRe matches a line of 50 or more '=' characters, the journal's
// on-disk entry delimiter. A body containing one would be split apart on the
// next scan, so it is rejected up front.
var separatorLineRe = regexp.MustCompile(`(?m)^={50,}\s*$`)

// ValidateJournalEntry checks required fields and metadata sanity.
func ValidateJournalEntry(e JournalEntry) error {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Errorf("missing body")
	}
	if err := CheckText(e.Body); err != nil {
		return fmt.Errorf("body: %w", err)
	}
	if separatorLineRe.MatchString(e.Body) {
		return fmt.Errorf("body contains an entry separator line")
	}
	for k, v := range e.Metadata {
		if k == "timestamp" {
			return fmt.Errorf("metadata key %q is reserved", k)
		}
		if err := CheckText(k); err != nil {
			return fmt.Errorf("metadata key %q: %w", k, err)
		}
		if err := CheckText(v); err != nil {
			return fmt.Errorf("metadata value for %q: %w", k, err)
		}
	}
	return nil
}

// ValidateChangeRecord checks an audit entry before it is persisted.
func ValidateChangeRecord(c ChangeRecord) error {
	if c.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if c.ProposalSummary == "" {
		return fmt.Errorf("missing proposal_summary")
	}
	if !ValidCollections[c.TargetCollection] {
		return fmt.Errorf("invalid target_collection %q", c.TargetCollection)
	}
	if c.ResultingRecordID == "" {
		return fmt.Errorf("missing resulting_record_id")
	}
	if c.ApprovedBy != "user" {
		return fmt.Errorf("approved_by must be %q, got %q", "user", c.ApprovedBy)
	}
	return nil
}

// CheckText rejects oversized or non-printable payloads. Newlines and tabs
// are allowed; other control characters and invalid UTF-8 are not.
func CheckText(s string) error {
	if len(s) > MaxTextLen {
		return fmt.Errorf("exceeds %d bytes (%d)", MaxTextLen, len(s))
	}
	for _, r := range s {
		if r == unicode.ReplacementChar {
			return fmt.Errorf("invalid UTF-8")
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return fmt.Errorf("control character %q", r)
		}
	}
	return nil
}
