package event

import "testing"

func TestClassify_Order(t *testing.T) {
	call := &FunctionCall{Name: "search", Args: map[string]any{"q": "go"}}
	resp := &FunctionResponse{Name: "search", Response: map[string]any{"hits": 3}}

	testCases := []struct {
		name string
		n    Notification
		want Type
	}{
		{
			name: "user author wins over everything",
			n: Notification{
				Author:       "user",
				Content:      &Content{Parts: []Part{{FunctionCall: call}}},
				ErrorMessage: "boom",
			},
			want: TypeUserInput,
		},
		{
			name: "author match is exact",
			n:    Notification{Author: "User", Content: TextContent("user", "hi")},
			want: TypeModelResponse,
		},
		{
			name: "function call beats function response",
			n: Notification{
				Author:  "planner",
				Content: &Content{Parts: []Part{{FunctionResponse: resp}, {FunctionCall: call}}},
			},
			want: TypeToolCall,
		},
		{
			name: "function response beats plain text",
			n: Notification{
				Author:  "planner",
				Content: &Content{Parts: []Part{{Text: "done"}, {FunctionResponse: resp}}},
			},
			want: TypeToolResult,
		},
		{
			name: "text parts classify as model response",
			n:    Notification{Author: "planner", Content: TextContent("model", "hello")},
			want: TypeModelResponse,
		},
		{
			name: "content beats error",
			n: Notification{
				Author:       "planner",
				Content:      TextContent("model", "partial"),
				ErrorMessage: "cut short",
			},
			want: TypeModelResponse,
		},
		{
			name: "error message only",
			n:    Notification{Author: "planner", ErrorMessage: "quota exceeded"},
			want: TypeError,
		},
		{
			name: "error code only",
			n:    Notification{Author: "planner", ErrorCode: "RESOURCE_EXHAUSTED"},
			want: TypeError,
		},
		{
			name: "empty parts fall through to system",
			n:    Notification{Author: "planner", Content: &Content{Role: "model"}},
			want: TypeSystem,
		},
		{
			name: "empty notification is system",
			n:    Notification{},
			want: TypeSystem,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.n); got != tc.want {
				t.Errorf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}
