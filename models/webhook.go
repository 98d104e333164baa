package models

import "time"

// Limits on notification channels. An event can fan out to at most 20
// channels, an account can register at most 40, and a channel can be pinged
// once per 24 hours.
const (
	WebhooksPerEventLimit   = 20
	WebhooksPerAccountLimit = 40
	WebhookPingInterval     = 24 * time.Hour
)

// Webhook is a saved notification channel: an externally-owned endpoint URL
// plus the server/channel labels shown in the dashboard.
type Webhook struct {
	ID         int64     `json:"_id" db:"id"`
	UniqueID   string    `json:"uniqueid" db:"uniqueid"`
	Server     string    `json:"server" db:"server"`
	Channel    string    `json:"channel" db:"channel"`
	WebhookURL string    `json:"webhookUrl" db:"webhook_url"`
	OwnerID    int       `json:"-" db:"owner_id"`
	LastPinged time.Time `json:"-" db:"last_pinged"`
	IsDeleted  bool      `json:"-" db:"is_deleted"`
}
