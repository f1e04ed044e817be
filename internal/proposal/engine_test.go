package proposal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomore1007/SnekretAIry/internal/model"
	"github.com/nomore1007/SnekretAIry/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return NewEngine(st), st
}

func seedGoal(t *testing.T, st *store.Store, text string) *model.GoalTask {
	t.Helper()
	rec, err := st.AppendGoalTask(context.Background(), model.GoalTask{
		ID:   st.NewID(),
		Kind: model.KindGoal,
		Text: text,
	})
	require.NoError(t, err)
	return rec
}

func TestParseEmptyReply(t *testing.T) {
	e, _ := newTestEngine(t)

	proposals, err := e.Parse(context.Background(), "", "query")
	require.NoError(t, err)
	assert.Empty(t, proposals)

	proposals, err = e.Parse(context.Background(),
		"You have been making steady progress on your goals this week.", "query")
	require.NoError(t, err)
	assert.Empty(t, proposals, "plain prose must not produce proposals")
}

func TestParseTaggedAdd(t *testing.T) {
	e, st := newTestEngine(t)
	goal := seedGoal(t, st, "Ship the project")

	raw := "Sounds like a concrete next step.\n" +
		"ADD task text=\"Write tests\" parent_id=" + goal.ID + "\n" +
		"Good luck!"
	proposals, err := e.Parse(context.Background(), raw, "what next")
	require.NoError(t, err)
	require.Len(t, proposals, 1)

	p := proposals[0]
	assert.Equal(t, StatePendingApproval, p.State)
	assert.Equal(t, ActionAdd, p.Action)
	assert.Equal(t, model.CollectionGoalTask, p.TargetCollection)
	assert.Equal(t, "task", p.Fields["kind"])
	assert.Equal(t, "Write tests", p.Fields["text"])
	assert.Equal(t, goal.ID, p.Fields["parent_id"])
	assert.Equal(t, "what next", p.Query)
	assert.NotEmpty(t, p.ID)
}

func TestParseTaggedUpdateStatus(t *testing.T) {
	e, st := newTestEngine(t)
	goal := seedGoal(t, st, "Ship the project")

	proposals, err := e.Parse(context.Background(),
		"UPDATE_STATUS "+goal.ID+" done", "")
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, StatePendingApproval, proposals[0].State)
	assert.Equal(t, ActionUpdateStatus, proposals[0].Action)
	assert.Equal(t, goal.ID, proposals[0].Fields["id"])
	assert.Equal(t, model.StatusDone, proposals[0].Fields["status"])
}

func TestParseJSONEnvelope(t *testing.T) {
	e, _ := newTestEngine(t)

	raw := "Here is what I suggest:\n" +
		"```json\n" +
		`{"proposals": [` +
		`{"collection": "goal_task", "action": "add", "fields": {"kind": "goal", "text": "Learn Spanish"}},` +
		`{"collection": "journal", "action": "add", "fields": {"body": "Felt motivated today", "mood": "up"}}` +
		`], "confidence": 0.75}` + "\n```\n"
	proposals, err := e.Parse(context.Background(), raw, "")
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	assert.Equal(t, StatePendingApproval, proposals[0].State)
	assert.Equal(t, "Learn Spanish", proposals[0].Fields["text"])
	assert.InDelta(t, 0.75, proposals[0].Confidence, 1e-9)

	assert.Equal(t, model.CollectionJournal, proposals[1].TargetCollection)
	assert.Equal(t, "up", proposals[1].Fields["mood"])
}

func TestParseJSONNonEnvelopeIgnored(t *testing.T) {
	e, _ := newTestEngine(t)

	raw := "```json\n{\"weather\": \"sunny\", \"temperature\": 21}\n```"
	proposals, err := e.Parse(context.Background(), raw, "")
	require.NoError(t, err)
	assert.Empty(t, proposals, "a JSON block without a proposals envelope is plain content")
}

func TestParseRejectsUnsafeVerb(t *testing.T) {
	e, st := newTestEngine(t)
	goal := seedGoal(t, st, "Old goal")

	proposals, err := e.Parse(context.Background(), "DELETE "+goal.ID, "")
	require.NoError(t, err)
	require.Len(t, proposals, 1, "a destructive instruction must surface as a rejected outcome")

	p := proposals[0]
	assert.Equal(t, StateRejected, p.State)
	assert.Contains(t, p.RejectionReason, "not permitted")
	assert.Equal(t, "delete", p.Action)
}

func TestParseRejectsUnsafeJSONAction(t *testing.T) {
	e, _ := newTestEngine(t)

	raw := "```json\n" +
		`{"proposals": [{"collection": "goal_task", "action": "delete", "fields": {"id": "g1"}}]}` +
		"\n```"
	proposals, err := e.Parse(context.Background(), raw, "")
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, StateRejected, proposals[0].State)
	assert.Contains(t, proposals[0].RejectionReason, "not permitted")
}

func TestParseRejectsDanglingParent(t *testing.T) {
	e, _ := newTestEngine(t)

	proposals, err := e.Parse(context.Background(),
		`ADD task text="Orphan" parent_id=nope`, "")
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, StateRejected, proposals[0].State)
	assert.Contains(t, proposals[0].RejectionReason, "does not exist")
}

func TestParseRejectsUnknownStatusTarget(t *testing.T) {
	e, _ := newTestEngine(t)

	proposals, err := e.Parse(context.Background(), "UPDATE_STATUS missing done", "")
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, StateRejected, proposals[0].State)
	assert.Contains(t, proposals[0].RejectionReason, "does not exist")
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		raw    string
		reason string
	}{
		{"missing text", `ADD goal notes="no text field"`, "missing field text"},
		{"bad status", "UPDATE_STATUS someid finished", "invalid status"},
		{"bad target", "ADD widget text=\"what\"", "must be goal, task, or journal"},
		{"oversized text", `ADD goal text="` + strings.Repeat("x", model.MaxTextLen+1) + `"`, "exceeds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proposals, err := e.Parse(ctx, tc.raw, "")
			require.NoError(t, err)
			require.Len(t, proposals, 1)
			assert.Equal(t, StateRejected, proposals[0].State)
			assert.Contains(t, proposals[0].RejectionReason, tc.reason)
		})
	}
}

func TestParseMixedReplyKeepsOrder(t *testing.T) {
	e, st := newTestEngine(t)
	goal := seedGoal(t, st, "Ship the project")

	raw := "```json\n" +
		`{"proposals": [{"collection": "goal_task", "action": "add", "fields": {"kind": "goal", "text": "Read more"}}]}` +
		"\n```\n" +
		"Also:\n" +
		"UPDATE_STATUS " + goal.ID + " in_progress\n" +
		"DELETE everything\n"
	proposals, err := e.Parse(context.Background(), raw, "")
	require.NoError(t, err)
	require.Len(t, proposals, 3)

	assert.Equal(t, StatePendingApproval, proposals[0].State)
	assert.Equal(t, "Read more", proposals[0].Fields["text"])
	assert.Equal(t, StatePendingApproval, proposals[1].State)
	assert.Equal(t, ActionUpdateStatus, proposals[1].Action)
	assert.Equal(t, StateRejected, proposals[2].State)
}

func TestProposalLifecycle(t *testing.T) {
	p := newProposal(model.CollectionGoalTask, ActionAdd,
		map[string]string{"kind": "goal", "text": "x"}, "src", "q", 0.9, time.Now().UTC())

	require.NoError(t, p.Approve())
	assert.Equal(t, StateApproved, p.State)
	assert.Error(t, p.Approve(), "approved is not re-approvable")
	assert.Error(t, p.Reject("late"), "approved cannot be rejected")

	q := newProposal(model.CollectionGoalTask, ActionAdd,
		map[string]string{"kind": "goal", "text": "y"}, "src", "q", 0.9, time.Now().UTC())
	require.NoError(t, q.Reject("not wanted"))
	assert.Equal(t, StateRejected, q.State)
	assert.Equal(t, "not wanted", q.RejectionReason)
	assert.Error(t, q.Approve(), "rejected is terminal")
}

func TestSummary(t *testing.T) {
	p := newProposal(model.CollectionGoalTask, ActionAdd,
		map[string]string{"kind": "task", "text": "Write tests"}, "", "", 0.9, time.Now().UTC())
	assert.Equal(t, "add task: Write tests", p.Summary())

	u := newProposal(model.CollectionGoalTask, ActionUpdateStatus,
		map[string]string{"id": "g1", "status": "done"}, "", "", 0.9, time.Now().UTC())
	assert.Equal(t, "update status of g1 to done", u.Summary())
}
