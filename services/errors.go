package services

import "errors"

// Sentinel errors surfaced by the service layer. Handlers map these to HTTP
// status codes; anything else is treated as internal.
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrWebhookNotFound = errors.New("webhook not found")

	ErrMalformedInput = errors.New("malformed input")
	ErrNotOwner       = errors.New("caller does not own this resource")

	ErrInvalidStatusTransition = errors.New("invalid event status transition")
	ErrEventNotOngoing         = errors.New("event is not ongoing")
	ErrWrongRound              = errors.New("round does not match the event's current round")
	ErrRosterMismatch          = errors.New("submitted table does not match the event roster")

	ErrWebhookEventLimit   = errors.New("event notification channel limit reached")
	ErrWebhookAccountLimit = errors.New("account notification channel limit reached")
	ErrPingLimit           = errors.New("channel was pinged too recently")
	ErrWebhookUnreachable  = errors.New("webhook endpoint could not be reached")
)
