package approval

import (
	"strings"
	"testing"
)

func TestValidateReason(t *testing.T) {
	if err := ValidateReason("short"); err == nil {
		t.Error("expected error for reason under 10 characters")
	}
	if err := ValidateReason("   padded   "); err == nil {
		t.Error("whitespace should not count toward the minimum")
	}
	if err := ValidateReason(strings.Repeat("a", 2001)); err == nil {
		t.Error("expected error for reason over 2000 characters")
	}
	if err := ValidateReason("client committed to a two-year contract"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateComments(t *testing.T) {
	if err := ValidateComments(""); err != nil {
		t.Errorf("empty comments are allowed, got %v", err)
	}
	if err := ValidateComments(strings.Repeat("b", 5001)); err == nil {
		t.Error("expected error for comments over 5000 characters")
	}
}
