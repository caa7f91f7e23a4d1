package approval

import "github.com/shopspring/decimal"

// Thresholds carries the two configured percentage boundaries. The
// resolver takes them as an explicit argument rather than reading
// shared state, so callers decide where the values come from (admin
// settings row, env defaults).
type Thresholds struct {
	Manager decimal.Decimal
	Admin   decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ValidateDiscount rejects percentages outside [0, 100].
func ValidateDiscount(discount decimal.Decimal) error {
	if discount.IsNegative() || discount.GreaterThan(hundred) {
		return &ValidationError{Field: "discount_percentage", Message: "must be between 0 and 100"}
	}
	return nil
}

// RequiresApproval reports whether the discount exceeds the manager
// threshold at all. At or below it the caller skips the workflow.
func RequiresApproval(discount decimal.Decimal, t Thresholds) bool {
	return discount.GreaterThan(t.Manager)
}

// ResolveLevel maps a requested discount onto the approval authority
// it needs and the boundary that triggered that level:
//
//	manager < discount <= admin  -> Manager level, manager boundary
//	discount > admin             -> Admin level, admin boundary
//
// Callers must pre-filter discounts at or below the manager threshold
// with RequiresApproval.
func ResolveLevel(discount decimal.Decimal, t Thresholds) (Level, decimal.Decimal, error) {
	if err := ValidateDiscount(discount); err != nil {
		return "", decimal.Zero, err
	}
	if discount.GreaterThan(t.Admin) {
		return LevelAdmin, t.Admin, nil
	}
	return LevelManager, t.Manager, nil
}
