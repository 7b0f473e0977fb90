package bedrock

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorKind distinguishes provider failures the caller reacts to differently.
type ErrorKind string

const (
	KindNotEnabled   ErrorKind = "not_enabled"   // model not enabled for the account; needs operator action
	KindAccessDenied ErrorKind = "access_denied" // credentials lack permission
	KindThrottled    ErrorKind = "throttled"     // retry with backoff
	KindOther        ErrorKind = "other"
)

// InvokeError is a provider-level model invocation failure.
type InvokeError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("bedrock %s (%s): %s", e.Code, e.Kind, e.Message)
}

func (e *InvokeError) Unwrap() error { return e.Err }

// Retryable reports whether the same call may succeed later without operator action.
func (e *InvokeError) Retryable() bool { return e.Kind == KindThrottled }

var codeKinds = map[string]ErrorKind{
	"ResourceNotFoundException": KindNotEnabled,
	"AccessDeniedException":     KindAccessDenied,
	"ThrottlingException":       KindThrottled,
}

func classifyError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return &InvokeError{Kind: KindOther, Code: "Unknown", Message: err.Error(), Err: err}
	}
	kind, ok := codeKinds[apiErr.ErrorCode()]
	if !ok {
		kind = KindOther
	}
	return &InvokeError{Kind: kind, Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage(), Err: err}
}

// KindOf returns the invocation error kind carried by err, or "" if none.
func KindOf(err error) ErrorKind {
	var ie *InvokeError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
