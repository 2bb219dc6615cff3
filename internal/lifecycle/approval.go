package lifecycle

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AutoApproveThreshold is the flat available-credit floor (RM) above
// which a new request bypasses manual review.
//
// Note the rule compares available credit against this constant, not
// against the request's estimated cost: a resident with RM 501
// available auto-approves a RM 5,000 service. That is the billing
// policy as operated today; the behavior is pinned by tests so any
// future change to compare against cost is a deliberate, visible diff.
var AutoApproveThreshold = decimal.NewFromInt(500)

// Classify applies the credit rule to a resident's available credit
// and returns the approval decision together with an audit reason.
// estimatedCost participates in the reason text only.
func Classify(availableCredit, estimatedCost decimal.Decimal) (autoApproved bool, reason string) {
	if availableCredit.GreaterThanOrEqual(AutoApproveThreshold) {
		return true, fmt.Sprintf(
			"auto-approved: available credit RM %s meets threshold RM %s (estimated cost RM %s)",
			availableCredit.StringFixed(2), AutoApproveThreshold.StringFixed(2), estimatedCost.StringFixed(2))
	}
	return false, fmt.Sprintf(
		"manual review: available credit RM %s below threshold RM %s (estimated cost RM %s)",
		availableCredit.StringFixed(2), AutoApproveThreshold.StringFixed(2), estimatedCost.StringFixed(2))
}
