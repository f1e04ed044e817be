// Package tokens estimates token counts for context budgeting.
package tokens

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens with the cl100k_base encoding when available and
// falls back to a chars/4 estimate otherwise, so budgeting keeps working
// offline.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter builds a Counter. Encoding setup failure is not an error; the
// counter degrades to the heuristic.
func NewCounter() *Counter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// Count returns the token count of s.
func (c *Counter) Count(s string) int {
	if c.enc == nil {
		return (len(s) + 3) / 4
	}
	return len(c.enc.Encode(s, nil, nil))
}
