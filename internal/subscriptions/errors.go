package subscriptions

import "errors"

var (
	// ErrAlreadySubscribed is returned when the email already has a
	// subscription on the page.
	ErrAlreadySubscribed = errors.New("email is already subscribed to this page")

	// ErrSubscriberNotFound is returned when no subscriber matches the
	// given identifier or token.
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrPageNotFound is returned when the referenced status page does
	// not exist.
	ErrPageNotFound = errors.New("status page not found")
)
