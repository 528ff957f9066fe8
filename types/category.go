package types

// ErrorCategory is the coarse classification of a failure. The set is closed;
// classification that matches nothing falls back to CategoryUnknown.
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryNetwork        ErrorCategory = "network"
	CategoryProcessing     ErrorCategory = "processing"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryRateLimit      ErrorCategory = "rate_limit"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryResource       ErrorCategory = "resource"
	CategoryUnknown        ErrorCategory = "unknown"
)

func (c ErrorCategory) String() string {
	return string(c)
}

// Categories lists every defined category, in declaration order.
func Categories() []ErrorCategory {
	return []ErrorCategory{
		CategoryValidation,
		CategoryConfiguration,
		CategoryNetwork,
		CategoryProcessing,
		CategoryAuthentication,
		CategoryAuthorization,
		CategoryRateLimit,
		CategoryTimeout,
		CategoryResource,
		CategoryUnknown,
	}
}

// ErrorSeverity orders failures for log-level selection. It never drives
// retry policy; that is decided by category.
type ErrorSeverity int

const (
	SeverityLow ErrorSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s ErrorSeverity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}
