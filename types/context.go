package types

// ErrorContext captures the request surroundings of a failure for diagnostics.
// It is created at the call site immediately before an operation that may fail
// and must not be mutated afterwards.
type ErrorContext struct {
	AgentName string
	RequestID string
	UserID    string
	Operation string
	InputData map[string]any
	Metadata  map[string]any
}

// NewErrorContext builds an ErrorContext; extra metadata keys go into Metadata.
func NewErrorContext(agentName, requestID, operation string, metadata map[string]any) *ErrorContext {
	return &ErrorContext{
		AgentName: agentName,
		RequestID: requestID,
		Operation: operation,
		Metadata:  metadata,
	}
}

// Fields renders the context as a flat key-value mapping for structured
// logging. Nil-safe: a nil context yields an empty map.
func (c *ErrorContext) Fields() map[string]any {
	fields := make(map[string]any, 6)
	if c == nil {
		return fields
	}
	if c.AgentName != "" {
		fields["agent_name"] = c.AgentName
	}
	if c.RequestID != "" {
		fields["request_id"] = c.RequestID
	}
	if c.UserID != "" {
		fields["user_id"] = c.UserID
	}
	if c.Operation != "" {
		fields["operation"] = c.Operation
	}
	if len(c.InputData) > 0 {
		fields["input_data"] = c.InputData
	}
	for k, v := range c.Metadata {
		fields[k] = v
	}
	return fields
}
