package session

import (
	"errors"
	"fmt"
)

// ErrNoMatch is the underlying error for attempts where no gallery entry
// cleared the match threshold.
var ErrNoMatch = errors.New("no matching identity")

// ErrorCode classifies how an attendance attempt failed.
type ErrorCode string

const (
	ErrCodeCacheNotReady    ErrorCode = "CACHE_NOT_READY"
	ErrCodeCacheLoadFailed  ErrorCode = "CACHE_LOAD_FAILED"
	ErrCodeNoFrame          ErrorCode = "NO_FRAME"
	ErrCodeEmbeddingFailed  ErrorCode = "EMBEDDING_FAILED"
	ErrCodeMatchUnavailable ErrorCode = "MATCH_UNAVAILABLE"
	ErrCodeNoMatch          ErrorCode = "NO_MATCH"
	ErrCodeRecordingFailed  ErrorCode = "RECORDING_FAILED"
	ErrCodeAttemptInFlight  ErrorCode = "ATTEMPT_IN_FLIGHT"
)

// AttemptError is a structured attempt failure. Retry tells the caller
// whether re-triggering the check can succeed without operator action.
type AttemptError struct {
	Code    ErrorCode
	Message string
	Retry   bool
	Err     error
}

func (e *AttemptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// User-friendly messages for the kiosk screen
var errorMessages = map[ErrorCode]string{
	ErrCodeCacheNotReady:    "Face data is still loading. Please wait a moment",
	ErrCodeCacheLoadFailed:  "Face data could not be loaded. Please contact an administrator",
	ErrCodeNoFrame:          "No camera image available. Please step in front of the camera",
	ErrCodeEmbeddingFailed:  "Could not process your photo. Please try again",
	ErrCodeMatchUnavailable: "Face matching is temporarily unavailable. Please try again",
	ErrCodeNoMatch:          "Face not recognized. Please try again or contact HR",
	ErrCodeRecordingFailed:  "Attendance could not be saved. Please try again",
	ErrCodeAttemptInFlight:  "A check is already in progress",
}

// UserMessage returns the kiosk-facing message for an error code.
func UserMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Attendance check failed"
}

func newAttemptError(code ErrorCode, retry bool, err error) *AttemptError {
	return &AttemptError{
		Code:    code,
		Message: UserMessage(code),
		Retry:   retry,
		Err:     err,
	}
}
