// Package service orchestrates domain operations across storage, the
// settlement engine, the summary cache and the event pipeline.
package service

import "errors"

var (
	// ErrForbidden is returned when the acting user is not a member of
	// the place they are operating on.
	ErrForbidden = errors.New("not a member of this place")
	// ErrInviteClosed is returned when joining an invite that is no
	// longer pending.
	ErrInviteClosed = errors.New("invite is no longer pending")
)
