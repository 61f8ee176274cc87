package client

import "time"

// Status describes the daemon's recorder and sink state.
type Status struct {
	Enabled   bool   `json:"enabled"`
	SinkState string `json:"sink_state"`
	Version   string `json:"version"`
}

// EventsQuery narrows an event listing. Zero-value fields are omitted
// from the request.
type EventsQuery struct {
	SessionID    string
	InvocationID string
	EventType    string
	Limit        int
}

// EventRecord is one stored event row. Pointer fields are nil when the
// stored column is NULL.
type EventRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    *string   `json:"event_type"`
	Agent        *string   `json:"agent"`
	SessionID    *string   `json:"session_id"`
	InvocationID *string   `json:"invocation_id"`
	UserID       *string   `json:"user_id"`
	Content      *string   `json:"content"`
	ErrorMessage *string   `json:"error_message"`
}

// RecordRequest submits one notification for recording.
type RecordRequest struct {
	Agent        string       `json:"agent"`
	SessionID    string       `json:"session_id"`
	InvocationID string       `json:"invocation_id"`
	UserID       string       `json:"user_id,omitempty"`
	Event        Notification `json:"event"`
}

// RecordResponse reports whether the daemon accepted and recorded the
// notification. Recorded is false when the daemon's recorder is disabled.
type RecordResponse struct {
	OK       bool `json:"ok"`
	Recorded bool `json:"recorded"`
}

// Notification mirrors the daemon's notification payload.
type Notification struct {
	Author       string    `json:"author,omitempty"`
	Time         time.Time `json:"time"`
	Content      *Content  `json:"content,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Content is a role plus ordered message parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is one fragment of a message. Exactly one field is normally set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// FunctionCall names a tool invocation requested by a model.
type FunctionCall struct {
	Name string         `json:"name,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a tool's reply to a function call.
type FunctionResponse struct {
	Name     string         `json:"name,omitempty"`
	Response map[string]any `json:"response,omitempty"`
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error string `json:"error"`
}
