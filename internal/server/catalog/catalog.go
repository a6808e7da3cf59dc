// Package catalog maps account tiers to the object-key patterns each tier
// may read. The mapping is configuration: it is loaded once at startup and
// never mutated at runtime.
package catalog

import (
	"fmt"
	"path"
	"strings"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/server/models"
)

// Catalog holds the tier -> pattern sets. Patterns are either plain key
// prefixes ("shared/") or globs matched with path.Match ("premium/*").
// Matching is case-sensitive.
type Catalog struct {
	patterns map[models.Tier][]string
}

// New builds a Catalog from raw configuration. Every tier of the closed
// enum must map to a non-empty pattern set; anything else is a
// configuration error and fails startup rather than silently granting or
// denying access.
func New(raw map[string][]string) (*Catalog, error) {
	patterns := make(map[models.Tier][]string, len(raw))
	for rawTier, pats := range raw {
		tier, err := models.ParseTier(rawTier)
		if err != nil {
			return nil, err
		}
		if len(pats) == 0 {
			return nil, fmt.Errorf("%w: tier %s has empty pattern set", common.ErrorValidation, tier)
		}
		patterns[tier] = append([]string(nil), pats...)
	}
	for _, tier := range []models.Tier{models.TierRegular, models.TierPremium} {
		if len(patterns[tier]) == 0 {
			return nil, fmt.Errorf("%w: tier %s missing from catalog", common.ErrorValidation, tier)
		}
	}
	return &Catalog{patterns: patterns}, nil
}

// PatternsFor returns the pattern set for a tier. Unknown tiers fail with
// ErrorUnknownTier; defaulting either way would be a silent policy change.
func (c *Catalog) PatternsFor(tier models.Tier) ([]string, error) {
	pats, ok := c.patterns[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrorUnknownTier, tier)
	}
	return append([]string(nil), pats...), nil
}

// Matches reports whether objectKey is covered by any of the patterns.
// Evaluation is deterministic and order-independent.
func Matches(objectKey string, patterns []string) bool {
	for _, p := range patterns {
		if isGlob(p) {
			if ok, err := path.Match(p, objectKey); err == nil && ok {
				return true
			}
			continue
		}
		if strings.HasPrefix(objectKey, p) {
			return true
		}
	}
	return false
}

// Prefixes derives the storage listing prefixes for a pattern set: the
// literal part of each pattern up to its first glob metacharacter.
// Duplicates are dropped, preserving first-seen order.
func Prefixes(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		prefix := p
		if i := strings.IndexAny(p, "*?["); i >= 0 {
			prefix = p[:i]
		}
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		out = append(out, prefix)
	}
	return out
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}
