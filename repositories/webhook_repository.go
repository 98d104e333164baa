package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/lib/pq"
)

var ErrWebhookNotFound = errors.New("webhook not found")

const webhookColumns = `id, uniqueid, server, channel, webhook_url, owner_id, last_pinged, is_deleted`

type WebhookRepository interface {
	Create(ctx context.Context, webhook *models.Webhook) error
	GetByUniqueID(ctx context.Context, uniqueID string) (*models.Webhook, error)
	ListByOwner(ctx context.Context, ownerID int) ([]models.Webhook, error)
	ResolveByUniqueIDs(ctx context.Context, ownerID int, uniqueIDs []string) ([]models.Webhook, error)
	CountByOwner(ctx context.Context, ownerID int) (int, error)
	Update(ctx context.Context, ownerID int, uniqueID string, server, channel, webhookURL string) error
	SoftDelete(ctx context.Context, ownerID int, uniqueID string) error
	TouchLastPinged(ctx context.Context, ownerID int, uniqueID string, pingedAt time.Time) error
}

type postgresWebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) WebhookRepository {
	return &postgresWebhookRepository{db: db}
}

func scanWebhook(scanner interface{ Scan(dest ...interface{}) error }) (*models.Webhook, error) {
	var w models.Webhook
	err := scanner.Scan(
		&w.ID, &w.UniqueID, &w.Server, &w.Channel,
		&w.WebhookURL, &w.OwnerID, &w.LastPinged, &w.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *postgresWebhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	query := `
		INSERT INTO webhooks (uniqueid, server, channel, webhook_url, owner_id, last_pinged)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		webhook.UniqueID, webhook.Server, webhook.Channel,
		webhook.WebhookURL, webhook.OwnerID, webhook.LastPinged,
	).Scan(&webhook.ID)
}

func (r *postgresWebhookRepository) GetByUniqueID(ctx context.Context, uniqueID string) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE uniqueid = $1 AND is_deleted = FALSE`
	w, err := scanWebhook(r.db.QueryRowContext(ctx, query, uniqueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWebhookNotFound
	}
	return w, err
}

func (r *postgresWebhookRepository) ListByOwner(ctx context.Context, ownerID int) ([]models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks
		WHERE owner_id = $1 AND is_deleted = FALSE
		ORDER BY id`
	return r.queryWebhooks(ctx, query, ownerID)
}

// ResolveByUniqueIDs returns the caller's live channels among the given ids.
// Unknown, foreign and deleted ids are silently dropped.
func (r *postgresWebhookRepository) ResolveByUniqueIDs(ctx context.Context, ownerID int, uniqueIDs []string) ([]models.Webhook, error) {
	if len(uniqueIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + webhookColumns + ` FROM webhooks
		WHERE owner_id = $1 AND uniqueid = ANY($2) AND is_deleted = FALSE
		ORDER BY id`
	return r.queryWebhooks(ctx, query, ownerID, pq.Array(uniqueIDs))
}

func (r *postgresWebhookRepository) CountByOwner(ctx context.Context, ownerID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM webhooks WHERE owner_id = $1 AND is_deleted = FALSE`
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&count)
	return count, err
}

func (r *postgresWebhookRepository) Update(ctx context.Context, ownerID int, uniqueID string, server, channel, webhookURL string) error {
	query := `UPDATE webhooks
		SET server = $1, channel = $2, webhook_url = $3
		WHERE owner_id = $4 AND uniqueid = $5 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, server, channel, webhookURL, ownerID, uniqueID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrWebhookNotFound)
}

func (r *postgresWebhookRepository) SoftDelete(ctx context.Context, ownerID int, uniqueID string) error {
	query := `UPDATE webhooks SET is_deleted = TRUE
		WHERE owner_id = $1 AND uniqueid = $2 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, ownerID, uniqueID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrWebhookNotFound)
}

func (r *postgresWebhookRepository) TouchLastPinged(ctx context.Context, ownerID int, uniqueID string, pingedAt time.Time) error {
	query := `UPDATE webhooks SET last_pinged = $1
		WHERE owner_id = $2 AND uniqueid = $3 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, pingedAt, ownerID, uniqueID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrWebhookNotFound)
}

func (r *postgresWebhookRepository) queryWebhooks(ctx context.Context, query string, args ...interface{}) ([]models.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []models.Webhook
	for rows.Next() {
		w, scanErr := scanWebhook(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		webhooks = append(webhooks, *w)
	}
	return webhooks, rows.Err()
}
