package cache

import (
	"math"
	"sort"
	"time"
)

// TTLPolicy decides when an entry expires. Policies read entry
// bookkeeping but never mutate it.
type TTLPolicy interface {
	// ExpiresAt returns the absolute expiry time for the entry.
	// A zero time means the entry never expires.
	ExpiresAt(e *Entry) time.Time
}

// FixedTTL expires entries a constant duration after insert.
type FixedTTL struct {
	// TTL is the entry lifetime (0 = never expires).
	TTL time.Duration
}

// ExpiresAt implements TTLPolicy.
func (p FixedTTL) ExpiresAt(e *Entry) time.Time {
	ttl := p.TTL
	if e.TTL > 0 {
		ttl = e.TTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(ttl)
}

// SlidingTTL expires entries a constant duration after their last
// access, optionally bounded by a maximum lifetime from insert.
type SlidingTTL struct {
	// TTL is the idle lifetime.
	TTL time.Duration

	// MaxLifetime caps total lifetime from insert (0 = unbounded).
	MaxLifetime time.Duration
}

// ExpiresAt implements TTLPolicy.
func (p SlidingTTL) ExpiresAt(e *Entry) time.Time {
	ttl := p.TTL
	if e.TTL > 0 {
		ttl = e.TTL
	}
	if ttl <= 0 {
		return time.Time{}
	}

	last := e.LastAccessedAt
	if last.IsZero() {
		last = e.CreatedAt
	}
	expiry := last.Add(ttl)
	if p.MaxLifetime > 0 {
		if hard := e.CreatedAt.Add(p.MaxLifetime); expiry.After(hard) {
			expiry = hard
		}
	}
	return expiry
}

// AdaptiveTTL grows the lifetime of frequently-accessed entries. Every
// AccessThreshold hits multiplies the base TTL by GrowthFactor, capped
// at MaxTTL.
type AdaptiveTTL struct {
	// BaseTTL is the starting lifetime.
	BaseTTL time.Duration

	// GrowthFactor multiplies the TTL per threshold bucket (> 1).
	GrowthFactor float64

	// AccessThreshold is the number of hits per growth bucket.
	AccessThreshold int64

	// MaxTTL caps the grown lifetime.
	MaxTTL time.Duration
}

// ExpiresAt implements TTLPolicy.
func (p AdaptiveTTL) ExpiresAt(e *Entry) time.Time {
	base := p.BaseTTL
	if e.TTL > 0 {
		base = e.TTL
	}
	if base <= 0 {
		return time.Time{}
	}

	ttl := base
	if p.GrowthFactor > 1 && p.AccessThreshold > 0 {
		buckets := e.AccessCount / p.AccessThreshold
		if buckets > 0 {
			// Compared in float space: the product overflows
			// time.Duration long before the cap would apply.
			grown := float64(base) * math.Pow(p.GrowthFactor, float64(buckets))
			if p.MaxTTL > 0 && grown >= float64(p.MaxTTL) {
				ttl = p.MaxTTL
			} else if grown >= float64(math.MaxInt64) {
				ttl = math.MaxInt64
			} else {
				ttl = time.Duration(grown)
			}
		}
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return e.CreatedAt.Add(ttl)
}

// TTLRule is one time-of-day rule for TimeBasedTTL. Hours are in the
// half-open range [StartHour, EndHour) on a 24-hour clock; rules may
// wrap midnight (StartHour > EndHour).
type TTLRule struct {
	// Priority orders rules; higher priority rules are checked first.
	Priority int

	// StartHour is the first hour the rule covers.
	StartHour int

	// EndHour is the hour the rule stops covering.
	EndHour int

	// TTL is the lifetime applied when the rule matches.
	TTL time.Duration
}

// matches reports whether the rule covers the given clock hour.
func (r TTLRule) matches(hour int) bool {
	if r.StartHour == r.EndHour {
		return true
	}
	if r.StartHour < r.EndHour {
		return hour >= r.StartHour && hour < r.EndHour
	}
	return hour >= r.StartHour || hour < r.EndHour
}

// TimeBasedTTL assigns lifetimes from a rule table by the entry's
// insert hour. Rules are evaluated by descending priority; the first
// match wins. DefaultTTL applies when no rule matches.
type TimeBasedTTL struct {
	rules      []TTLRule
	defaultTTL time.Duration
}

// NewTimeBasedTTL builds a time-based policy, ordering rules by
// descending priority.
func NewTimeBasedTTL(rules []TTLRule, defaultTTL time.Duration) *TimeBasedTTL {
	sorted := make([]TTLRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &TimeBasedTTL{rules: sorted, defaultTTL: defaultTTL}
}

// ExpiresAt implements TTLPolicy.
func (p *TimeBasedTTL) ExpiresAt(e *Entry) time.Time {
	ttl := p.defaultTTL
	if e.TTL > 0 {
		ttl = e.TTL
	} else {
		hour := e.CreatedAt.Hour()
		for _, rule := range p.rules {
			if rule.matches(hour) {
				ttl = rule.TTL
				break
			}
		}
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(ttl)
}
