package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/Meshu-webDEV/singularity-api/repositories"
	"github.com/Meshu-webDEV/singularity-api/utils"
)

// ChannelPinger posts the test embed to a single endpoint. Satisfied by
// notifier.Notifier.
type ChannelPinger interface {
	Ping(ctx context.Context, url string) error
}

type WebhookService interface {
	CreateWebhook(ctx context.Context, ownerID int, input WebhookInput) (*models.Webhook, error)
	ListWebhooks(ctx context.Context, ownerID int) ([]models.Webhook, error)
	UpdateWebhook(ctx context.Context, ownerID int, uniqueid string, input WebhookInput) error
	DeleteWebhook(ctx context.Context, ownerID int, uniqueid string) error
	PingWebhook(ctx context.Context, ownerID int, uniqueid string) error
}

type WebhookInput struct {
	Server     string
	Channel    string
	WebhookURL string
}

type webhookService struct {
	webhooks repositories.WebhookRepository
	pinger   ChannelPinger
}

func NewWebhookService(webhooks repositories.WebhookRepository, pinger ChannelPinger) WebhookService {
	return &webhookService{
		webhooks: webhooks,
		pinger:   pinger,
	}
}

func (s *webhookService) CreateWebhook(ctx context.Context, ownerID int, input WebhookInput) (*models.Webhook, error) {
	if err := validateWebhookInput(input); err != nil {
		return nil, err
	}

	count, err := s.webhooks.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if count >= models.WebhooksPerAccountLimit {
		return nil, ErrWebhookAccountLimit
	}

	uniqueid, err := utils.NewUniqueID(utils.WebhookIDSize)
	if err != nil {
		return nil, fmt.Errorf("generate webhook id: %w", err)
	}

	webhook := &models.Webhook{
		UniqueID:   uniqueid,
		Server:     strings.TrimSpace(input.Server),
		Channel:    strings.TrimSpace(input.Channel),
		WebhookURL: input.WebhookURL,
		OwnerID:    ownerID,
	}
	if err := s.webhooks.Create(ctx, webhook); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return webhook, nil
}

func (s *webhookService) ListWebhooks(ctx context.Context, ownerID int) ([]models.Webhook, error) {
	return s.webhooks.ListByOwner(ctx, ownerID)
}

func (s *webhookService) UpdateWebhook(ctx context.Context, ownerID int, uniqueid string, input WebhookInput) error {
	if err := validateWebhookInput(input); err != nil {
		return err
	}
	err := s.webhooks.Update(ctx, ownerID, uniqueid, strings.TrimSpace(input.Server), strings.TrimSpace(input.Channel), input.WebhookURL)
	if errors.Is(err, repositories.ErrWebhookNotFound) {
		return ErrWebhookNotFound
	}
	return err
}

func (s *webhookService) DeleteWebhook(ctx context.Context, ownerID int, uniqueid string) error {
	err := s.webhooks.SoftDelete(ctx, ownerID, uniqueid)
	if errors.Is(err, repositories.ErrWebhookNotFound) {
		return ErrWebhookNotFound
	}
	return err
}

// PingWebhook sends the test embed, at most once per channel per 24 hours.
func (s *webhookService) PingWebhook(ctx context.Context, ownerID int, uniqueid string) error {
	webhook, err := s.webhooks.GetByUniqueID(ctx, uniqueid)
	if errors.Is(err, repositories.ErrWebhookNotFound) {
		return ErrWebhookNotFound
	}
	if err != nil {
		return err
	}
	if webhook.OwnerID != ownerID {
		return ErrNotOwner
	}

	now := time.Now().UTC()
	if now.Sub(webhook.LastPinged) < models.WebhookPingInterval {
		return ErrPingLimit
	}

	if err := s.pinger.Ping(ctx, webhook.WebhookURL); err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookUnreachable, err)
	}
	return s.webhooks.TouchLastPinged(ctx, ownerID, uniqueid, now)
}

func validateWebhookInput(input WebhookInput) error {
	if strings.TrimSpace(input.Server) == "" || strings.TrimSpace(input.Channel) == "" {
		return fmt.Errorf("%w: server and channel are required", ErrMalformedInput)
	}
	parsed, err := url.Parse(input.WebhookURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: webhook url must be a valid http(s) url", ErrMalformedInput)
	}
	return nil
}
