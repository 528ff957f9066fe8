// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type definitions of the AgentRouter framework.

types is the lowest-level public package. It depends on no other package in the
module and gives agent, llm and config a single contract for error handling:

  - ErrorCategory / ErrorSeverity — closed classification and ordered severity enums
  - ErrorContext — immutable request-scoped diagnostics attached to failures
  - ErrorInfo    — structured record of a single failure observation
  - Error / ErrorCode — categorized error values carrying provider metadata

Errors in this framework are values, not panics. Provider integrations return
*Error with a Code identifying the failure kind and a ProviderCode such as
"OPENAI_RATE_LIMIT"; callers branch on the kind with AsError / GetErrorCode
instead of matching on message text.
*/
package types
