package recorder

import (
	"testing"

	"github.com/loykin/agenttrail/internal/event"
)

func TestFilter_Admit(t *testing.T) {
	testCases := []struct {
		name      string
		allowlist []event.Type
		denylist  []event.Type
		t         event.Type
		want      bool
	}{
		{
			name: "no lists admit everything",
			t:    event.TypeLLMRequest,
			want: true,
		},
		{
			name:      "allowlist admits listed type",
			allowlist: []event.Type{event.TypeLLMRequest, event.TypeLLMResponse},
			t:         event.TypeLLMRequest,
			want:      true,
		},
		{
			name:      "allowlist drops unlisted type",
			allowlist: []event.Type{event.TypeLLMRequest},
			t:         event.TypeToolStarting,
			want:      false,
		},
		{
			name:     "denylist drops listed type",
			denylist: []event.Type{event.TypeToolStarting},
			t:        event.TypeToolStarting,
			want:     false,
		},
		{
			name:     "denylist admits unlisted type",
			denylist: []event.Type{event.TypeToolStarting},
			t:        event.TypeToolCompleted,
			want:     true,
		},
		{
			name:      "deny wins over allow",
			allowlist: []event.Type{event.TypeLLMRequest},
			denylist:  []event.Type{event.TypeLLMRequest},
			t:         event.TypeLLMRequest,
			want:      false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFilter(tc.allowlist, tc.denylist)
			if got := f.admit(tc.t); got != tc.want {
				t.Errorf("admit(%s) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}
