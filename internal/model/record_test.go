package model

import (
	"strings"
	"testing"
	"time"
)

func validGoal() GoalTask {
	return GoalTask{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Kind:      KindGoal,
		Text:      "Learn woodworking",
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}

func TestValidateGoalTask(t *testing.T) {
	if err := ValidateGoalTask(validGoal()); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*GoalTask)
	}{
		{"missing id", func(r *GoalTask) { r.ID = "" }},
		{"bad kind", func(r *GoalTask) { r.Kind = "epic" }},
		{"empty text", func(r *GoalTask) { r.Text = "   " }},
		{"bad status", func(r *GoalTask) { r.Status = "finished" }},
		{"zero created_at", func(r *GoalTask) { r.CreatedAt = time.Time{} }},
		{"oversized text", func(r *GoalTask) { r.Text = strings.Repeat("x", MaxTextLen+1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validGoal()
			tc.mutate(&r)
			if err := ValidateGoalTask(r); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateJournalEntry(t *testing.T) {
	ok := JournalEntry{Body: "A fine day.", Metadata: map[string]string{"mood": "calm"}}
	if err := ValidateJournalEntry(ok); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	if err := ValidateJournalEntry(JournalEntry{Body: ""}); err == nil {
		t.Error("expected error for empty body")
	}
	reserved := JournalEntry{Body: "x", Metadata: map[string]string{"timestamp": "2026"}}
	if err := ValidateJournalEntry(reserved); err == nil {
		t.Error("expected error for reserved metadata key")
	}
	separator := JournalEntry{Body: "above\n" + strings.Repeat("=", 50) + "\nbelow"}
	if err := ValidateJournalEntry(separator); err == nil {
		t.Error("expected error for body containing a separator line")
	}
	almost := JournalEntry{Body: "above\n" + strings.Repeat("=", 49) + "\nbelow"}
	if err := ValidateJournalEntry(almost); err != nil {
		t.Errorf("49 '=' is ordinary text: %v", err)
	}
}

func TestCheckText(t *testing.T) {
	if err := CheckText("plain text with\nnewlines\tand tabs"); err != nil {
		t.Fatalf("benign text rejected: %v", err)
	}
	if err := CheckText("null byte \x00 inside"); err == nil {
		t.Error("expected error for control character")
	}
	if err := CheckText(string([]byte{0xff, 0xfe})); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
	if err := CheckText(strings.Repeat("a", MaxTextLen)); err != nil {
		t.Errorf("exactly MaxTextLen must pass: %v", err)
	}
	if err := CheckText(strings.Repeat("a", MaxTextLen+1)); err == nil {
		t.Error("expected error above MaxTextLen")
	}
}
