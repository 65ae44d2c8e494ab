package ratelimit

import (
	"time"

	"github.com/Proton-105/donation-bot/pkg/config"
)

// Actions limited on top of the per-user rule.
const (
	ActionDonate   = "donate"
	ActionProof    = "proof"
	ActionDecision = "decision"
)

// Rule allows Limit requests per sliding Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) usable() bool {
	return r.Limit > 0 && r.Window > 0
}

// Rules is the resolved rate-limit configuration. Rules with a non-positive limit or
// window are treated as absent.
type Rules struct {
	perUser Rule
	actions map[string]Rule
	exempt  map[int64]struct{}
}

func NewRules(cfg config.RateLimitConfig) *Rules {
	r := &Rules{
		perUser: Rule{Limit: cfg.PerUser.Limit, Window: cfg.PerUser.Window},
		actions: make(map[string]Rule, len(cfg.Actions)),
		exempt:  make(map[int64]struct{}, len(cfg.Whitelist)),
	}
	for action, c := range cfg.Actions {
		if rule := (Rule{Limit: c.Limit, Window: c.Window}); rule.usable() {
			r.actions[action] = rule
		}
	}
	for _, id := range cfg.Whitelist {
		r.exempt[id] = struct{}{}
	}
	return r
}

// Exempt reports whether userID bypasses every limit.
func (r *Rules) Exempt(userID int64) bool {
	_, ok := r.exempt[userID]
	return ok
}

// PerUser returns the budget shared by all of a user's updates.
func (r *Rules) PerUser() (Rule, bool) {
	return r.perUser, r.perUser.usable()
}

// ForAction returns the extra budget of action, if one is configured.
func (r *Rules) ForAction(action string) (Rule, bool) {
	rule, ok := r.actions[action]
	return rule, ok
}

// LongestWindow bounds how old a recorded request can be and still matter.
func (r *Rules) LongestWindow() time.Duration {
	longest := r.perUser.Window
	for _, rule := range r.actions {
		if rule.Window > longest {
			longest = rule.Window
		}
	}
	return longest
}
