package event

// Classify maps a generic notification to a concrete event type. Checks
// run in order and the first match wins; a notification that matches
// nothing is classified SYSTEM.
func Classify(n Notification) Type {
	if n.Author == "user" {
		return TypeUserInput
	}
	if n.Content != nil {
		for _, p := range n.Content.Parts {
			if p.FunctionCall != nil {
				return TypeToolCall
			}
		}
		for _, p := range n.Content.Parts {
			if p.FunctionResponse != nil {
				return TypeToolResult
			}
		}
		if len(n.Content.Parts) > 0 {
			return TypeModelResponse
		}
	}
	if n.ErrorCode != "" || n.ErrorMessage != "" {
		return TypeError
	}
	return TypeSystem
}
