package approval

import "strings"

const (
	reasonMinLen   = 10
	reasonMaxLen   = 2000
	commentsMaxLen = 5000
)

// ValidateReason enforces the 10-2000 character reason rule shared by
// request, reject, and resubmit.
func ValidateReason(reason string) error {
	trimmed := strings.TrimSpace(reason)
	if len(trimmed) < reasonMinLen {
		return &ValidationError{Field: "reason", Message: "must be at least 10 characters"}
	}
	if len(trimmed) > reasonMaxLen {
		return &ValidationError{Field: "reason", Message: "must be at most 2000 characters"}
	}
	return nil
}

// ValidateComments enforces the optional 5000 character comment cap.
func ValidateComments(comments string) error {
	if len(comments) > commentsMaxLen {
		return &ValidationError{Field: "comments", Message: "must be at most 5000 characters"}
	}
	return nil
}
