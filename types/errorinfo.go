package types

import "time"

// ErrorInfo is a structured record of one failure observation. It is created
// once per observation and never mutated; RetryCount reflects the attempt
// number at creation time.
type ErrorInfo struct {
	ErrorType       string
	Message         string
	Severity        ErrorSeverity
	Category        ErrorCategory
	Timestamp       time.Time
	Context         *ErrorContext
	Stack           string
	RetryCount      int
	MaxRetries      int
	IsRecoverable   bool
	SuggestedAction string
}

// Fields renders the record plus its context as a flat key-value mapping for
// structured logging.
func (i *ErrorInfo) Fields() map[string]any {
	fields := i.Context.Fields()
	fields["error_type"] = i.ErrorType
	fields["category"] = i.Category.String()
	fields["severity"] = i.Severity.String()
	if i.RetryCount > 0 || i.MaxRetries > 0 {
		fields["retry_count"] = i.RetryCount
		fields["max_retries"] = i.MaxRetries
	}
	return fields
}
