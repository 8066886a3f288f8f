package domain

import (
	"sort"
	"time"
)

// RateLimitPolicy is the per-category posting limit configuration.
type RateLimitPolicy struct {
	Cooldown       time.Duration // minimum spacing between posts by one identity
	DailyCap       int           // max posts in a rolling 24h window
	SharedCapGroup string        // optional label joining categories under one counter
}

// PolicyTable maps categories to rate-limit policies. Built once at
// config-load time and passed by reference; never mutated afterwards.
type PolicyTable struct {
	policies map[Category]RateLimitPolicy
	fallback RateLimitPolicy
}

// NewPolicyTable builds a table with a fallback policy for categories
// missing from the map.
func NewPolicyTable(policies map[Category]RateLimitPolicy, fallback RateLimitPolicy) *PolicyTable {
	cp := make(map[Category]RateLimitPolicy, len(policies))
	for c, p := range policies {
		cp[c] = p
	}
	return &PolicyTable{policies: cp, fallback: fallback}
}

// DefaultPolicyTable returns the product defaults.
func DefaultPolicyTable() *PolicyTable {
	general := RateLimitPolicy{Cooldown: 5 * time.Minute, DailyCap: 10, SharedCapGroup: "pos_gen"}
	return NewPolicyTable(map[Category]RateLimitPolicy{
		CategoryPositive: {Cooldown: 5 * time.Minute, DailyCap: 10, SharedCapGroup: "pos_gen"},
		CategoryGeneral:  general,
		CategoryRant:     {Cooldown: 30 * time.Minute, DailyCap: 3},
		CategoryFound:    {Cooldown: 15 * time.Minute, DailyCap: 5},
	}, general)
}

// Resolve returns the policy for a category, falling back to the default
// policy when the category has no entry.
func (t *PolicyTable) Resolve(c Category) RateLimitPolicy {
	if p, ok := t.policies[c]; ok {
		return p
	}
	return t.fallback
}

// GroupCategories returns all categories sharing a cap counter with c.
// A category outside any shared group counts alone.
func (t *PolicyTable) GroupCategories(c Category) []Category {
	p := t.Resolve(c)
	if p.SharedCapGroup == "" {
		return []Category{c}
	}
	var members []Category
	for cat, pol := range t.policies {
		if pol.SharedCapGroup == p.SharedCapGroup {
			members = append(members, cat)
		}
	}
	if len(members) == 0 {
		return []Category{c}
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}
