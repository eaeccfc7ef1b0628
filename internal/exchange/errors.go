package exchange

import (
	"fmt"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

// FetchError reports a failed get-request-info call. StatusCode is zero when
// the host was never reached. A schema violation in the fetched document
// unwraps to *abi.DecodeError.
type FetchError struct {
	RequestID  abi.RequestID
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch request %d: %v", e.RequestID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PushError reports a failed push-response-info call.
type PushError struct {
	RequestID  abi.RequestID
	StatusCode int
	Err        error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push response %d: %v", e.RequestID, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}
