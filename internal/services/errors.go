// Package services implements the use-case layer of the feedback relay:
// the relay orchestrator, the anti-spam policy, the hashtag ticket
// tracker, and the category/language selectors. This file centralizes the
// service-level error values so they can be consistently returned by
// service methods and checked by callers.
package services

import "errors"

var (
	// ErrUnknownCategory is returned when a selection callback names a
	// category id that is not configured.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrUnknownLanguage is returned when a selection callback names a
	// language that is not in the supported set.
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrNoTicket indicates that no ticket record is bound to the relayed
	// message in question.
	ErrNoTicket = errors.New("no ticket for message")
)
