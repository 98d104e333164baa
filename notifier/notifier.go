// Package notifier delivers event announcements to Discord-compatible
// webhook endpoints.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"golang.org/x/sync/errgroup"
)

const clientTimeout = 10 * time.Second

// EventInfo is the slice of an event a notification needs.
type EventInfo struct {
	Name              string
	Organizer         string
	EventURL          string
	LobbyCode         string
	CurrentRound      int
	Rounds            int
	Standings         models.StandingsTable
	HasPrizepool      bool
	Prizepool         float64
	PrizepoolCurrency string
}

// Notifier posts embeds to webhook URLs. Delivery is best-effort: the caller
// learns whether the whole batch succeeded but a failure never cascades into
// the lifecycle operation that triggered it.
type Notifier struct {
	client    *http.Client
	name      string
	avatarURL string
	logger    *slog.Logger
}

func New(name, avatarURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		client:    &http.Client{Timeout: clientTimeout},
		name:      name,
		avatarURL: avatarURL,
		logger:    logger,
	}
}

func (n *Notifier) EventStarted(ctx context.Context, info EventInfo, urls []string) error {
	return n.broadcast(ctx, urls, n.payload(startedEmbed(info)))
}

func (n *Notifier) RoundProgress(ctx context.Context, info EventInfo, urls []string) error {
	return n.broadcast(ctx, urls, n.payload(progressEmbed(info)))
}

func (n *Notifier) EventEnded(ctx context.Context, info EventInfo, urls []string) error {
	return n.broadcast(ctx, urls, n.payload(endedEmbed(info)))
}

// Ping posts the test embed to a single channel.
func (n *Notifier) Ping(ctx context.Context, url string) error {
	return n.post(ctx, url, n.payload(pingEmbed()))
}

func (n *Notifier) payload(e embed) webhookPayload {
	return webhookPayload{
		Username:  n.name,
		AvatarURL: n.avatarURL,
		Embeds:    []embed{e},
	}
}

// broadcast posts the payload to every URL in parallel. Targets are
// independent: one failing channel does not stop the others, and the
// aggregate error only reports that the batch was not fully delivered.
func (n *Notifier) broadcast(ctx context.Context, urls []string, payload webhookPayload) error {
	if len(urls) == 0 {
		return nil
	}

	g := new(errgroup.Group)
	for _, url := range urls {
		url := url
		g.Go(func() error {
			if err := n.post(ctx, url, payload); err != nil {
				n.logger.Warn("webhook delivery failed", slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (n *Notifier) post(ctx context.Context, url string, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
