package event

import "time"

// Type identifies the kind of telemetry row an event produces.
type Type string

const (
	TypeUserInput           Type = "USER_INPUT"
	TypeUserMessageReceived Type = "USER_MESSAGE_RECEIVED"
	TypeInvocationStarting  Type = "INVOCATION_STARTING"
	TypeInvocationCompleted Type = "INVOCATION_COMPLETED"
	TypeAgentStarting       Type = "AGENT_STARTING"
	TypeAgentCompleted      Type = "AGENT_COMPLETED"
	TypeLLMRequest          Type = "LLM_REQUEST"
	TypeLLMResponse         Type = "LLM_RESPONSE"
	TypeToolStarting        Type = "TOOL_STARTING"
	TypeToolCompleted       Type = "TOOL_COMPLETED"
	TypeLLMError            Type = "LLM_ERROR"
	TypeToolError           Type = "TOOL_ERROR"
	TypeToolCall            Type = "TOOL_CALL"
	TypeToolResult          Type = "TOOL_RESULT"
	TypeModelResponse       Type = "MODEL_RESPONSE"
	TypeError               Type = "ERROR"
	TypeSystem              Type = "SYSTEM"
)

// Types lists every event type the recorder can emit.
var Types = []Type{
	TypeUserInput,
	TypeUserMessageReceived,
	TypeInvocationStarting,
	TypeInvocationCompleted,
	TypeAgentStarting,
	TypeAgentCompleted,
	TypeLLMRequest,
	TypeLLMResponse,
	TypeToolStarting,
	TypeToolCompleted,
	TypeLLMError,
	TypeToolError,
	TypeToolCall,
	TypeToolResult,
	TypeModelResponse,
	TypeError,
	TypeSystem,
}

// Valid reports whether t is one of the known event types.
func (t Type) Valid() bool {
	for _, k := range Types {
		if t == k {
			return true
		}
	}
	return false
}

// Record is one telemetry row on its way to a sink. Empty string fields
// are treated as absent and become NULL in storage.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         Type      `json:"event_type"`
	Agent        string    `json:"agent,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	InvocationID string    `json:"invocation_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Content      string    `json:"content,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Content is a structured message exchanged with a model: a role plus an
// ordered list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is one unit of content. At most one field is set.
type Part struct {
	Text                string               `json:"text,omitempty"`
	FunctionCall        *FunctionCall        `json:"function_call,omitempty"`
	FunctionResponse    *FunctionResponse    `json:"function_response,omitempty"`
	CodeExecutionResult *CodeExecutionResult `json:"code_execution_result,omitempty"`
}

// FunctionCall asks a tool to run with the given arguments.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a tool's result back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// CodeExecutionResult reports the outcome of model-emitted code.
type CodeExecutionResult struct {
	Outcome string `json:"outcome,omitempty"`
	Output  string `json:"output,omitempty"`
}

// GenerationParams are the sampling settings attached to a model request.
// A nil pointer means the parameter was not set.
type GenerationParams struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	TopK            *float64 `json:"top_k,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
}

// ModelRequest describes an outgoing LLM call.
type ModelRequest struct {
	Model        string           `json:"model,omitempty"`
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Params       GenerationParams `json:"params"`
	Tools        []string         `json:"tools,omitempty"`
}

// TokenUsage is the token accounting reported with a model response.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Candidates int `json:"candidates"`
	Total      int `json:"total"`
}

// ModelResponse describes a completed or failed LLM call.
type ModelResponse struct {
	Content      *Content    `json:"content,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// Tool identifies a callable tool.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Notification is a generic event yielded by an agent outside the
// dedicated lifecycle hooks. Classify derives the row type from it.
type Notification struct {
	Author       string    `json:"author,omitempty"`
	Time         time.Time `json:"time"`
	Content      *Content  `json:"content,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// TextContent builds a single-part text content.
func TextContent(role, text string) *Content {
	return &Content{Role: role, Parts: []Part{{Text: text}}}
}
