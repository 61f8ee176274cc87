package env

import (
	"strings"
	"testing"
)

// FuzzExpand fuzzes Expand with random values and overrides to ensure no
// panics and basic invariants around ${VAR} expansion.
func FuzzExpand(f *testing.F) {
	// seeds (overrides packed as newline-separated K=V lines)
	f.Add([]byte("A=1\nB=x"), "clickhouse://${A}:${B}")
	f.Add([]byte("FOO=bar"), "${FOO}${FOO}")
	f.Add([]byte("X=$Y\nY=${X}"), "${X}") // cyclic-like
	f.Add([]byte(""), "no placeholders at all")

	f.Fuzz(func(t *testing.T, overridesB []byte, value string) {
		overrides := splitNZ(string(overridesB))
		if len(overrides) > 20 {
			overrides = overrides[:20]
		}

		e := New()
		e.Isolate() // keep the real OS environment out of the fuzz run
		containsDollar := strings.ContainsRune(value, '$')
		for _, kv := range overrides {
			if i := strings.IndexByte(kv, '='); i > 0 {
				e.Set(kv[:i], kv[i+1:])
				if strings.ContainsRune(kv, '$') {
					containsDollar = true
				}
			}
		}

		out := e.Expand(value)
		// 1) Expansion never grows placeholders out of dollar-free input.
		if !containsDollar && strings.Contains(out, "${") {
			t.Fatalf("unexpected placeholder in %q", out)
		}
		// 2) Dollar-free input passes through untouched.
		if !containsDollar && out != value {
			t.Fatalf("Expand(%q) = %q, want unchanged", value, out)
		}
	})
}

// splitNZ splits s by newlines and returns non-empty trimmed lines.
func splitNZ(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
