// Package retrieval assembles a relevance-ranked, budget-bounded context
// bundle from the memory store for inclusion in a model prompt.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/orsinium-labs/stopwords"

	"github.com/nomore1007/SnekretAIry/internal/model"
	"github.com/nomore1007/SnekretAIry/internal/store"
	"github.com/nomore1007/SnekretAIry/internal/tokens"
)

// Recency decays with a half-life of 7 days and is weighted so that textual
// overlap always dominates the ordering.
const (
	recencyWeight   = 0.25
	recencyHalfLife = 7 * 24 * time.Hour
)

// Builder assembles context bundles. Read-only over the store; safe to call
// repeatedly and concurrently.
type Builder struct {
	store   *store.Store
	counter *tokens.Counter
	stop    *stopwords.Stopwords
}

// BuildParams configures one bundle assembly. Now is the reference time for
// recency; pass the same value to get the same bundle.
type BuildParams struct {
	Query  string
	Budget int // max tokens across selected items
	Now    time.Time
}

// Item is one selected record with its relevance score.
type Item struct {
	Ref       string    `json:"ref"` // goal_task ID or journal timestamp
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// Bundle is the assembled context. TotalEntries counts every candidate
// considered, not just those selected, so callers can tell "nothing
// relevant" apart from "relevant but budget-limited". Ephemeral; rebuilt
// per query.
type Bundle struct {
	Query        string `json:"query"`
	Budget       int    `json:"budget"`
	Used         int    `json:"used"`
	TotalEntries int    `json:"total_entries"`
	Items        []Item `json:"items"`
}

// NewBuilder returns a Builder over st.
func NewBuilder(st *store.Store, counter *tokens.Counter) *Builder {
	return &Builder{
		store:   st,
		counter: counter,
		stop:    stopwords.MustGet("en"),
	}
}

// Build scores every goal/task and journal entry against the query and
// greedily packs the highest scoring ones into the token budget. Candidates
// with no textual overlap are counted but never selected. Deterministic for
// identical store contents and params.
func (b *Builder) Build(ctx context.Context, p BuildParams) (*Bundle, error) {
	if p.Budget <= 0 {
		p.Budget = 4000
	}
	if p.Now.IsZero() {
		p.Now = time.Now().UTC()
	}
	queryTokens := b.queryTokens(p.Query)

	candidates, err := b.collect(ctx)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Query:        p.Query,
		Budget:       p.Budget,
		TotalEntries: len(candidates),
		Items:        []Item{},
	}

	var scored []Item
	for _, c := range candidates {
		overlap := jaccard(queryTokens, tokenize(c.Text))
		if overlap == 0 {
			continue
		}
		age := p.Now.Sub(c.Timestamp)
		if age < 0 {
			age = 0
		}
		recency := recencyWeight * math.Exp(-age.Hours()*math.Ln2/recencyHalfLife.Hours())
		c.Score = overlap + recency
		scored = append(scored, c)
	}

	// Score desc, then most recent first, then ref for a total order.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].Timestamp.Equal(scored[j].Timestamp) {
			return scored[i].Timestamp.After(scored[j].Timestamp)
		}
		return scored[i].Ref < scored[j].Ref
	})

	// Greedy packing: an item that does not fit is skipped, not truncated,
	// and packing continues with smaller ones.
	for _, c := range scored {
		cost := b.counter.Count(renderItem(c))
		if bundle.Used+cost > p.Budget {
			continue
		}
		bundle.Items = append(bundle.Items, c)
		bundle.Used += cost
	}
	return bundle, nil
}

// Render formats the bundle as a prompt text block.
func (bu *Bundle) Render() string {
	lines := make([]string, 0, len(bu.Items))
	for _, it := range bu.Items {
		lines = append(lines, renderItem(it))
	}
	return strings.Join(lines, "\n\n")
}

// collect gathers every effective goal/task record and journal entry as an
// unscored candidate. Scan faults are tolerated; readable entries still
// participate.
func (b *Builder) collect(ctx context.Context) ([]Item, error) {
	telos, _, err := b.store.ScanTelos(ctx)
	if err != nil {
		return nil, err
	}
	journal, _, err := b.store.ScanJournal(ctx)
	if err != nil {
		return nil, err
	}

	var out []Item
	for _, rec := range store.FoldOrdered(telos) {
		out = append(out, Item{
			Ref:       rec.ID,
			Kind:      rec.Kind,
			Text:      rec.Text,
			Status:    rec.Status,
			Timestamp: rec.CreatedAt,
		})
	}
	for _, e := range journal {
		out = append(out, Item{
			Ref:       e.Timestamp.Format(time.RFC3339Nano),
			Kind:      model.CollectionJournal,
			Text:      e.Body,
			Timestamp: e.Timestamp,
		})
	}
	return out, nil
}

func renderItem(it Item) string {
	head := fmt.Sprintf("[%s %s]", it.Kind, it.Ref)
	if it.Status != "" {
		head += fmt.Sprintf(" (%s)", it.Status)
	}
	return head + " " + it.Timestamp.Format("2006-01-02") + "\n" + it.Text
}

// queryTokens tokenizes the query with stopwords removed; record tokens keep
// them so "the" in a record cannot match anything from the query side.
func (b *Builder) queryTokens(q string) map[string]bool {
	toks := tokenize(q)
	for w := range toks {
		if b.stop.Contains(w) {
			delete(toks, w)
		}
	}
	return toks
}

func tokenize(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// jaccard is intersection over union of the two token sets. Zero when either
// set is empty.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	if inter == 0 {
		return 0
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
