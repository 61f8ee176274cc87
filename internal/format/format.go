// Package format renders event payloads into the bounded one-line
// summaries stored in the content column.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loykin/agenttrail/internal/event"
)

const (
	// MaxTextLen caps each text part summary, in runes.
	MaxTextLen = 200
	// MaxArgsLen caps a rendered argument map, in runes.
	MaxArgsLen = 300
)

// ContentFormatter rewrites a formatted content string before it is
// persisted. Returning an error leaves the original string in place.
type ContentFormatter func(content string) (string, error)

// Content renders a content payload into a one-line summary: one entry
// per part, joined with " | ". Nil or part-less content renders "None".
func Content(c *event.Content) string {
	if c == nil || len(c.Parts) == 0 {
		return "None"
	}
	summaries := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch {
		case p.Text != "":
			summaries = append(summaries, fmt.Sprintf("text: '%s'", TruncateText(p.Text)))
		case p.FunctionCall != nil:
			summaries = append(summaries, "function_call: "+p.FunctionCall.Name)
		case p.FunctionResponse != nil:
			summaries = append(summaries, "function_response: "+p.FunctionResponse.Name)
		case p.CodeExecutionResult != nil:
			summaries = append(summaries, "code_execution_result")
		default:
			summaries = append(summaries, "other_part")
		}
	}
	return strings.Join(summaries, " | ")
}

// TruncateText trims surrounding whitespace and caps the result at
// MaxTextLen runes, appending "..." when it was cut.
func TruncateText(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= MaxTextLen {
		return s
	}
	return string(r[:MaxTextLen]) + "..."
}

// Args renders a tool argument map. The result is capped at MaxArgsLen
// runes with a closing "...}" marker so it still reads as a map.
func Args(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	var s string
	if b, err := json.Marshal(args); err == nil {
		s = string(b)
	} else {
		s = fmt.Sprintf("%v", args)
	}
	if r := []rune(s); len(r) > MaxArgsLen {
		s = string(r[:MaxArgsLen]) + "...}"
	}
	return s
}

// ApplyOverride runs f over content. On error the input comes back
// unchanged alongside the error so the caller can log and continue.
func ApplyOverride(f ContentFormatter, content string) (string, error) {
	if f == nil {
		return content, nil
	}
	out, err := f(content)
	if err != nil {
		return content, err
	}
	return out, nil
}
