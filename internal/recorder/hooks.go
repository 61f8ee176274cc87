package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loykin/agenttrail/internal/event"
	"github.com/loykin/agenttrail/internal/format"
)

// The hook methods below mirror an agent runtime's lifecycle. Every
// override return value is always nil: the recorder observes runs, it
// never changes them.

// OnUserMessage records the user's message at the start of a turn.
func (r *Recorder) OnUserMessage(ctx context.Context, scope Scope, msg *event.Content) *event.Content {
	r.record(ctx, event.Record{
		Type:         event.TypeUserMessageReceived,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content:      "User Content: " + format.Content(msg),
	})
	return nil
}

// OnInvocationStart records that a run began.
func (r *Recorder) OnInvocationStart(ctx context.Context, scope Scope) *event.Content {
	r.record(ctx, event.Record{
		Type:         event.TypeInvocationStarting,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
	})
	return nil
}

// OnInvocationComplete records that a run finished.
func (r *Recorder) OnInvocationComplete(ctx context.Context, scope Scope) *event.Content {
	r.record(ctx, event.Record{
		Type:         event.TypeInvocationCompleted,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
	})
	return nil
}

// OnAgentStart records an agent taking over the invocation.
func (r *Recorder) OnAgentStart(ctx context.Context, scope Scope) *event.Content {
	r.record(ctx, event.Record{
		Type:         event.TypeAgentStarting,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content:      "Agent Name: " + scope.Agent,
	})
	return nil
}

// OnAgentComplete records an agent handing the invocation back.
func (r *Recorder) OnAgentComplete(ctx context.Context, scope Scope) *event.Content {
	r.record(ctx, event.Record{
		Type:         event.TypeAgentCompleted,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content:      "Agent Name: " + scope.Agent,
	})
	return nil
}

// OnModelRequest records an outgoing LLM call with its model, system
// prompt, sampling params and available tools.
func (r *Recorder) OnModelRequest(ctx context.Context, scope Scope, req event.ModelRequest) *event.ModelResponse {
	parts := []string{"Model: " + req.Model}
	if req.SystemPrompt != "" {
		parts = append(parts, "System Prompt: "+req.SystemPrompt)
	}
	parts = append(parts, "Params: "+formatParams(req.Params))
	if len(req.Tools) > 0 {
		parts = append(parts, "Available Tools: ["+strings.Join(req.Tools, ", ")+"]")
	}
	r.record(ctx, event.Record{
		Type:         event.TypeLLMRequest,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content:      strings.Join(parts, " | "),
	})
	return nil
}

// OnModelResponse records a completed LLM call: the tool calls it
// requested or its text, plus token usage when reported.
func (r *Recorder) OnModelResponse(ctx context.Context, scope Scope, resp event.ModelResponse) *event.ModelResponse {
	var content string
	if names := functionCallNames(resp.Content); len(names) > 0 {
		content = "Tool Name: " + strings.Join(names, ", ")
	} else {
		content = format.Content(resp.Content)
	}
	if resp.Usage != nil {
		content += fmt.Sprintf(" | Token Usage: {prompt: %d, candidates: %d, total: %d}",
			resp.Usage.Prompt, resp.Usage.Candidates, resp.Usage.Total)
	}
	r.record(ctx, event.Record{
		Type:         event.TypeLLMResponse,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content:      content,
		ErrorMessage: resp.ErrorMessage,
	})
	return nil
}

// OnToolStart records a tool about to run with its arguments.
func (r *Recorder) OnToolStart(ctx context.Context, scope Scope, tool event.Tool, args map[string]any) map[string]any {
	r.record(ctx, event.Record{
		Type:         event.TypeToolStarting,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content: fmt.Sprintf("Tool Name: %s, Description: %s, Arguments: %s",
			tool.Name, tool.Description, format.Args(args)),
	})
	return nil
}

// OnToolComplete records a tool's result.
func (r *Recorder) OnToolComplete(ctx context.Context, scope Scope, tool event.Tool, result map[string]any) map[string]any {
	r.record(ctx, event.Record{
		Type:         event.TypeToolCompleted,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content: fmt.Sprintf("Tool Name: %s, Description: %s, Result: %s",
			tool.Name, tool.Description, format.Args(result)),
	})
	return nil
}

// OnEvent records a generic notification yielded during the run. The
// row type comes from classification and the content is the raw parts
// as JSON.
func (r *Recorder) OnEvent(ctx context.Context, scope Scope, n event.Notification) *event.Notification {
	agent := scope.Agent
	if n.Author != "" {
		agent = n.Author
	}
	var content string
	if n.Content != nil && len(n.Content.Parts) > 0 {
		if b, err := json.Marshal(n.Content.Parts); err == nil {
			content = string(b)
		} else {
			content = format.Content(n.Content)
		}
	}
	r.record(ctx, event.Record{
		Timestamp:    n.Time,
		Type:         event.Classify(n),
		Agent:        agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content:      content,
		ErrorMessage: n.ErrorMessage,
	})
	return nil
}

// OnModelError records an LLM call that failed outright.
func (r *Recorder) OnModelError(ctx context.Context, scope Scope, req event.ModelRequest, callErr error) *event.ModelResponse {
	var content string
	if req.Model != "" {
		content = "Model: " + req.Model
	}
	r.record(ctx, event.Record{
		Type:         event.TypeLLMError,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content:      content,
		ErrorMessage: errString(callErr),
	})
	return nil
}

// OnToolError records a tool invocation that failed.
func (r *Recorder) OnToolError(ctx context.Context, scope Scope, tool event.Tool, args map[string]any, callErr error) map[string]any {
	r.record(ctx, event.Record{
		Type:         event.TypeToolError,
		Agent:        scope.Agent,
		SessionID:    scope.SessionID,
		InvocationID: scope.InvocationID,
		UserID:       scope.UserID,
		Content: fmt.Sprintf("Tool Name: %s, Arguments: %s",
			tool.Name, format.Args(args)),
		ErrorMessage: errString(callErr),
	})
	return nil
}

func functionCallNames(c *event.Content) []string {
	if c == nil {
		return nil
	}
	var names []string
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			names = append(names, p.FunctionCall.Name)
		}
	}
	return names
}

// formatParams renders the set sampling params as a stable map literal.
func formatParams(p event.GenerationParams) string {
	var kv []string
	if p.Temperature != nil {
		kv = append(kv, fmt.Sprintf("temperature: %g", *p.Temperature))
	}
	if p.TopP != nil {
		kv = append(kv, fmt.Sprintf("top_p: %g", *p.TopP))
	}
	if p.TopK != nil {
		kv = append(kv, fmt.Sprintf("top_k: %g", *p.TopK))
	}
	if p.MaxOutputTokens != nil {
		kv = append(kv, fmt.Sprintf("max_output_tokens: %d", *p.MaxOutputTokens))
	}
	return "{" + strings.Join(kv, ", ") + "}"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
