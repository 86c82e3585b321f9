package entitlements

import (
	"strings"

	"github.com/yolotrainer/portal/app/models"
)

type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// ParseTier normalizes a stored or claimed tier; anything unknown is free.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPro:
		return TierPro
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}

// Rank orders tiers so the best one can be picked.
func (t Tier) Rank() int {
	switch t {
	case TierEnterprise:
		return 2
	case TierPro:
		return 1
	default:
		return 0
	}
}

// PriceMap maps configured billing price ids onto paid tiers.
type PriceMap map[string]Tier

// NewPriceMap builds the map from the configured pro and enterprise prices.
func NewPriceMap(proPrices, enterprisePrices []string) PriceMap {
	m := make(PriceMap, len(proPrices)+len(enterprisePrices))
	for _, p := range proPrices {
		if p = strings.TrimSpace(p); p != "" {
			m[p] = TierPro
		}
	}
	for _, p := range enterprisePrices {
		if p = strings.TrimSpace(p); p != "" {
			m[p] = TierEnterprise
		}
	}
	return m
}

// Allowed reports whether priceID may be used for checkout.
func (m PriceMap) Allowed(priceID string) bool {
	_, ok := m[priceID]
	return ok && priceID != ""
}

// TierFor is the pure tier derivation: a live status and a mapped price, else free.
func (m PriceMap) TierFor(status, priceID string) Tier {
	if !models.IsLiveSubscriptionStatus(status) {
		return TierFree
	}
	if t, ok := m[priceID]; ok {
		return t
	}
	return TierFree
}

// Current picks the subscription that determines the user's tier: the live row
// with the best tier, ties broken by the latest period end. Nil when none grants a tier.
func (m PriceMap) Current(subs []models.Subscription) *models.Subscription {
	var best *models.Subscription
	bestTier := TierFree
	for i := range subs {
		s := &subs[i]
		tier := m.TierFor(s.Status, s.ProviderPriceID)
		if tier == TierFree {
			continue
		}
		if best == nil || tier.Rank() > bestTier.Rank() ||
			(tier == bestTier && s.PeriodEnd().After(best.PeriodEnd())) {
			best = s
			bestTier = tier
		}
	}
	return best
}
