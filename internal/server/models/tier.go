package models

import (
	"fmt"

	"github.com/apetrov/assetgate/internal/common"
)

// Tier is the account classification gating which storage objects a user
// may list. The enum is closed: anything outside it is a configuration or
// programming error, never silently defaulted.
type Tier string

const (
	TierRegular Tier = "Regular"
	TierPremium Tier = "Premium"
)

// ParseTier validates a raw tier string against the closed enum.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierRegular:
		return TierRegular, nil
	case TierPremium:
		return TierPremium, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrorUnknownTier, s)
	}
}

func (t Tier) String() string {
	return string(t)
}
