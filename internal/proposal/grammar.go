package proposal

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// The engine recognizes two fragment shapes inside an otherwise free-text
// reply: fenced ```json blocks carrying a proposals envelope, and tagged
// lines (ADD ..., UPDATE_STATUS ...). Anything else is ignored — it is
// context for the user, never something to execute.

var (
	fenceRe    = regexp.MustCompile("(?s)```json\\s*\\n(.*?)```")
	keyValRe   = regexp.MustCompile(`(\w+)=("[^"]*"|\S+)`)
	verbRe     = regexp.MustCompile(`^([A-Z][A-Z_]{2,})\b\s*(.*)$`)
	fieldKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
)

// candidate is a raw parsed fragment before validation.
type candidate struct {
	collection string
	action     string
	fields     map[string]string
	source     string
	confidence float64
	parseFault string // set when the fragment was structurally unusable
}

type jsonEnvelope struct {
	Proposals  []jsonProposal `json:"proposals"`
	Confidence *float64       `json:"confidence"`
}

type jsonProposal struct {
	Collection string         `json:"collection"`
	Action     string         `json:"action"`
	Fields     map[string]any `json:"fields"`
}

// extract scans the raw reply and returns candidates in encounter order:
// fenced JSON blocks first as they appear, then tagged lines from the text
// outside the fences.
func extract(raw string) []candidate {
	var out []candidate

	remainder := raw
	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		out = append(out, extractJSON(m[1], m[0])...)
	}
	remainder = fenceRe.ReplaceAllString(remainder, "")

	for _, line := range strings.Split(remainder, "\n") {
		line = strings.TrimSpace(line)
		vm := verbRe.FindStringSubmatch(line)
		if vm == nil || !commandVerbs[vm[1]] {
			continue
		}
		out = append(out, extractTagged(vm[1], vm[2], line))
	}
	return out
}

// commandVerbs are the tagged-line verbs treated as command attempts. The
// safe ones parse into candidates; the rest exist so that a destructive
// instruction is rejected visibly at the whitelist stage rather than
// silently skipped as prose.
var commandVerbs = map[string]bool{
	"ADD":           true,
	"UPDATE_STATUS": true,
	"UPDATE":        true,
	"DELETE":        true,
	"REMOVE":        true,
	"DROP":          true,
	"ERASE":         true,
	"PURGE":         true,
	"CLEAR":         true,
	"OVERWRITE":     true,
	"EDIT":          true,
	"SET":           true,
}

// extractJSON parses one fenced block. A block that is not a proposals
// envelope is ignored entirely (normal outcome, not an error); a block that
// is an envelope yields one candidate per listed proposal.
func extractJSON(body, source string) []candidate {
	var env jsonEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &env); err != nil {
		return nil
	}
	if len(env.Proposals) == 0 {
		return nil
	}

	confidence := 0.9
	if env.Confidence != nil {
		confidence = clamp01(*env.Confidence)
	}

	out := make([]candidate, 0, len(env.Proposals))
	for _, jp := range env.Proposals {
		c := candidate{
			collection: jp.Collection,
			action:     jp.Action,
			fields:     map[string]string{},
			source:     strings.TrimSpace(source),
			confidence: confidence,
		}
		for k, v := range jp.Fields {
			s, ok := scalarString(v)
			if !ok {
				c.parseFault = "field " + strconv.Quote(k) + ": value is not a scalar"
				break
			}
			c.fields[k] = s
		}
		out = append(out, c)
	}
	return out
}

// extractTagged parses one tagged line. Unknown verbs still yield a
// candidate so the action whitelist can reject them visibly instead of
// dropping them.
func extractTagged(verb, rest, source string) candidate {
	c := candidate{
		action:     strings.ToLower(verb),
		fields:     map[string]string{},
		source:     source,
		confidence: 0.6,
	}

	switch verb {
	case "ADD":
		target, args, _ := strings.Cut(strings.TrimSpace(rest), " ")
		switch target {
		case "goal", "task":
			c.collection = "goal_task"
			c.fields["kind"] = target
		case "journal":
			c.collection = "journal"
		default:
			c.parseFault = "ADD target must be goal, task, or journal"
			return c
		}
		for _, kv := range keyValRe.FindAllStringSubmatch(args, -1) {
			c.fields[kv[1]] = unquote(kv[2])
		}
	case "UPDATE_STATUS":
		c.collection = "goal_task"
		parts := strings.Fields(rest)
		if len(parts) != 2 {
			c.parseFault = "UPDATE_STATUS expects: UPDATE_STATUS <id> <status>"
			return c
		}
		c.fields["id"] = parts[0]
		c.fields["status"] = parts[1]
	default:
		// Leave fields empty; the whitelist stage rejects and logs.
	}
	return c
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
