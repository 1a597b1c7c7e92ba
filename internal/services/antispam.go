// Package services – AntiSpam
//
// Per-user rate limiting with escalation. Two expiring counters in the
// store drive the decision: the windowed message counter and the
// violation counter. Once the violation counter reaches the configured
// threshold the user is soft-banned for the remaining lifetime of that
// counter, independent of the message window.
package services

import (
	"context"
	"time"

	"github.com/tbourn/go-feedback-bot/internal/domain"
	"github.com/tbourn/go-feedback-bot/internal/repo"
)

// AntiSpamPolicy configures the rate limiter. All fields must be positive
// for the policy to make sense; config validation enforces that.
type AntiSpamPolicy struct {
	// ThrottleAfter is the number of messages admitted per window.
	ThrottleAfter int
	// ThrottleWindow is the window length, measured from the first
	// message of the window.
	ThrottleWindow time.Duration
	// SoftBanAfter is the violation count that triggers the soft ban.
	SoftBanAfter int
	// SoftBanFor is the soft-ban duration, measured from the first
	// violation.
	SoftBanFor time.Duration
}

// AntiSpam decides, per inbound user message, whether to admit it. A nil
// Policy disables rate limiting entirely.
type AntiSpam struct {
	KV     repo.KV
	Prefix string
	Policy *AntiSpamPolicy
}

// Admit classifies one inbound message from userID.
//
// Decision order:
//  1. No policy configured → AdmitNow.
//  2. Violation counter at or above the threshold → RejectSilently,
//     without touching any other counter.
//  3. Increment the window counter (window TTL armed on the first
//     increment only). Within the cap → AdmitNow.
//  4. Cap exceeded → increment the violation counter (soft-ban TTL armed
//     on the first violation) → AdmitWithWarning. The caller notifies the
//     user once per violation event; further messages inside the soft-ban
//     window fall under rule 2.
//
// Store errors are returned to the caller, which drops the message rather
// than blocking the update stream.
func (a *AntiSpam) Admit(ctx context.Context, userID int64) (domain.Verdict, error) {
	if a == nil || a.Policy == nil {
		return domain.AdmitNow, nil
	}

	violations, err := repo.Violations(ctx, a.KV, a.Prefix, userID)
	if err != nil {
		return domain.RejectSilently, err
	}
	if violations >= int64(a.Policy.SoftBanAfter) {
		return domain.RejectSilently, nil
	}

	count, err := repo.IncrMessageCounter(ctx, a.KV, a.Prefix, userID, a.Policy.ThrottleWindow)
	if err != nil {
		return domain.RejectSilently, err
	}
	if count <= int64(a.Policy.ThrottleAfter) {
		return domain.AdmitNow, nil
	}

	if _, err := repo.IncrViolations(ctx, a.KV, a.Prefix, userID, a.Policy.SoftBanFor); err != nil {
		return domain.RejectSilently, err
	}
	return domain.AdmitWithWarning, nil
}
