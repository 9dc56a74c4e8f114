// Package user defines the user's generation allowance
package user

import "strings"

// Tier decides whether generations are metered
type Tier string

const (
	TierMetered   Tier = "metered"
	TierUnlimited Tier = "unlimited"
)

// ParseTier maps a stored subscription tier or role onto a Tier.
// Privileged roles are unlimited; everything else is metered.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unlimited", "premium", "admin", "staff":
		return TierUnlimited
	default:
		return TierMetered
	}
}

// QuotaAccount is the generation allowance of one user
type QuotaAccount struct {
	UserID    string
	Tier      Tier
	Remaining int
}

// IsUnlimited reports whether the account is exempt from deduction and caps
func (a QuotaAccount) IsUnlimited() bool {
	return a.Tier == TierUnlimited
}

// HasCredits reports whether a metered account may start a generation
func (a QuotaAccount) HasCredits() bool {
	return a.IsUnlimited() || a.Remaining > 0
}
