package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/BaSui01/agentrouter/types"
	"go.uber.org/zap"
)

// typeMatcher pairs a category with a predicate over the error chain.
// Matchers run in declaration order; the first hit wins.
type typeMatcher struct {
	category types.ErrorCategory
	match    func(error) bool
}

// keywordGroup pairs a category with message substrings. Groups are checked
// in declaration order against the lowercased message; the first hit wins.
// The lists are frozen: message-based classification is a best-effort
// fallback and must stay stable for callers that assert on it.
type keywordGroup struct {
	category types.ErrorCategory
	keywords []string
}

// Classifier classifies failures into the error taxonomy. It is stateless
// and safe for concurrent use; construct one per process and inject it.
type Classifier struct {
	typeMatchers  []typeMatcher
	keywordGroups []keywordGroup
	severities    map[types.ErrorCategory]types.ErrorSeverity
	recoverable   map[types.ErrorCategory]bool
	logger        *zap.Logger
}

// NewClassifier creates a Classifier with the fixed classification tables.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{
		typeMatchers: []typeMatcher{
			{types.CategoryValidation, isValidationError},
			{types.CategoryNetwork, isNetworkError},
			{types.CategoryTimeout, isTimeoutError},
			{types.CategoryAuthorization, func(err error) bool { return errors.Is(err, fs.ErrPermission) }},
			{types.CategoryResource, func(err error) bool { return errors.Is(err, fs.ErrNotExist) }},
		},
		keywordGroups: []keywordGroup{
			{types.CategoryTimeout, []string{"timeout", "timed out"}},
			{types.CategoryNetwork, []string{"network", "connection", "dns"}},
			{types.CategoryRateLimit, []string{"rate limit", "too many requests"}},
			{types.CategoryAuthorization, []string{"auth", "permission", "forbidden"}},
			{types.CategoryValidation, []string{"validation", "invalid", "malformed"}},
		},
		severities: map[types.ErrorCategory]types.ErrorSeverity{
			types.CategoryValidation:     types.SeverityMedium,
			types.CategoryConfiguration:  types.SeverityHigh,
			types.CategoryNetwork:        types.SeverityMedium,
			types.CategoryProcessing:     types.SeverityMedium,
			types.CategoryAuthentication: types.SeverityHigh,
			types.CategoryAuthorization:  types.SeverityHigh,
			types.CategoryRateLimit:      types.SeverityLow,
			types.CategoryTimeout:        types.SeverityMedium,
			types.CategoryResource:       types.SeverityHigh,
			types.CategoryUnknown:        types.SeverityMedium,
		},
		recoverable: map[types.ErrorCategory]bool{
			types.CategoryNetwork:   true,
			types.CategoryRateLimit: true,
			types.CategoryTimeout:   true,
		},
		logger: logger,
	}
}

// Classify maps err into an ErrorCategory.
//
// Precedence: categorized *types.Error values carry their own category;
// then typed matches over the error chain (errors.As/Is covers wrapping);
// then the keyword fallback over the message; then unknown.
func (c *Classifier) Classify(err error) types.ErrorCategory {
	if err == nil {
		return types.CategoryUnknown
	}

	if e, ok := types.AsError(err); ok {
		return e.Category()
	}

	for _, m := range c.typeMatchers {
		if m.match(err) {
			return m.category
		}
	}

	msg := strings.ToLower(err.Error())
	for _, g := range c.keywordGroups {
		for _, kw := range g.keywords {
			if strings.Contains(msg, kw) {
				return g.category
			}
		}
	}

	return types.CategoryUnknown
}

// Severity returns the severity for a category. Unmapped categories are
// medium.
func (c *Classifier) Severity(category types.ErrorCategory) types.ErrorSeverity {
	if s, ok := c.severities[category]; ok {
		return s
	}
	return types.SeverityMedium
}

// IsRecoverable reports whether the category has a recovery strategy
// (retry or backoff).
func (c *Classifier) IsRecoverable(category types.ErrorCategory) bool {
	return c.recoverable[category]
}

// SuggestedAction returns the remediation hint for a category.
func (c *Classifier) SuggestedAction(category types.ErrorCategory) string {
	switch category {
	case types.CategoryValidation:
		return "Check input data format and required fields"
	case types.CategoryConfiguration:
		return "Verify configuration settings and required keys"
	case types.CategoryNetwork:
		return "Check network connectivity and retry"
	case types.CategoryProcessing:
		return "Review processing logic and input data"
	case types.CategoryAuthentication:
		return "Verify API keys and authentication credentials"
	case types.CategoryAuthorization:
		return "Check user permissions and access rights"
	case types.CategoryRateLimit:
		return "Implement backoff strategy and reduce request rate"
	case types.CategoryTimeout:
		return "Increase timeout values or optimize processing"
	case types.CategoryResource:
		return "Check file paths and resource availability"
	case types.CategoryUnknown:
		return "Review error details and contact support if needed"
	default:
		return "Review error details and logs"
	}
}

// NewErrorInfo builds an immutable ErrorInfo for one failure observation.
func (c *Classifier) NewErrorInfo(err error, errCtx *types.ErrorContext) *types.ErrorInfo {
	category := c.Classify(err)
	info := &types.ErrorInfo{
		ErrorType:       errorTypeName(err),
		Message:         err.Error(),
		Severity:        c.Severity(category),
		Category:        category,
		Timestamp:       time.Now(),
		Context:         errCtx,
		Stack:           string(debug.Stack()),
		IsRecoverable:   c.IsRecoverable(category),
		SuggestedAction: c.SuggestedAction(category),
	}
	return info
}

// Handle classifies and logs a failure at its severity-mapped level and
// returns the structured record. It never swallows the error; the caller
// decides propagation.
func (c *Classifier) Handle(err error, errCtx *types.ErrorContext) *types.ErrorInfo {
	info := c.NewErrorInfo(err, errCtx)

	fields := zapFields(info.Fields())
	fields = append(fields, zap.String("suggested_action", info.SuggestedAction))

	switch info.Severity {
	case types.SeverityCritical, types.SeverityHigh:
		fields = append(fields, zap.String("stack", info.Stack))
		c.logger.Error("error occurred: "+info.Message, fields...)
	case types.SeverityMedium:
		c.logger.Warn("error occurred: "+info.Message, fields...)
	default:
		c.logger.Info("error occurred: "+info.Message, fields...)
	}

	return info
}

// errorTypeName names the failure kind: the code for categorized errors,
// otherwise the dynamic Go type.
func errorTypeName(err error) string {
	if e, ok := types.AsError(err); ok {
		return string(e.Code)
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

func isValidationError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.As(err, &numErr)
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// zapFields converts a key-value mapping into sorted zap fields so log
// output is deterministic.
func zapFields(m map[string]any) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, m[k]))
	}
	return fields
}
