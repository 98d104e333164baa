package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/lib/pq"
)

var (
	ErrEventNotFound = errors.New("event not found")
)

const eventColumns = `
	id, uniqueid, name, description, datetime, is_public, rounds,
	point_per_kill, points_distribution, teams, should_create_teams,
	has_prizepool, prizepool, remaining_prizepool, prizepool_currency,
	prizepool_distribution, lobby_code, notify, webhook_ids, rounds_tables,
	standings_table, current_round, status, bot_url, event_url, owner_id,
	is_deleted, created_at`

// EventRepository persists the event aggregate. Soft-deleted rows are
// invisible to every read; Delete only flips the flag.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByUniqueID(ctx context.Context, uniqueid string) (*models.Event, error)
	GetDetailByUniqueID(ctx context.Context, uniqueid string) (*EventDetail, error)
	SoftDelete(ctx context.Context, uniqueid string, ownerID int) error

	UpdateBasicInfo(ctx context.Context, uniqueid string, name, description string, datetime time.Time, rounds int, isPublic bool) error
	UpdateTeams(ctx context.Context, uniqueid string, teams models.Teams, standings models.StandingsTable, shouldCreateTeams bool) error
	UpdatePoints(ctx context.Context, uniqueid string, pointPerKill float64, distribution models.Distribution) error
	UpdatePrize(ctx context.Context, uniqueid string, hasPrizepool bool, prizepool, remaining float64, currency string, distribution models.Distribution) error
	UpdateLobbyCode(ctx context.Context, uniqueid string, lobbyCode string) error
	UpdateNotify(ctx context.Context, uniqueid string, notify bool) error
	AddWebhooks(ctx context.Context, uniqueid string, webhookIDs []int64) error
	RemoveWebhooks(ctx context.Context, uniqueid string, webhookIDs []int64) error

	UpdateStatusAndTables(ctx context.Context, uniqueid string, status models.EventStatus, tables models.RoundTables) error
	UpdateRoundsTables(ctx context.Context, uniqueid string, tables models.RoundTables) error
	FinishRound(ctx context.Context, uniqueid string, tables models.RoundTables, standings models.StandingsTable, currentRound int) error

	AutoStart(ctx context.Context, now time.Time) (int64, error)
	AutoEnd(ctx context.Context, cutoff time.Time) (int64, error)

	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListLive(ctx context.Context) ([]models.Event, error)
	ListBetween(ctx context.Context, from time.Time) ([]EventDate, error)
	CountAll(ctx context.Context) (int, error)
}

// EventDetail is an event joined with its owner projection and resolved
// notification channels, the shape returned by single-event reads.
type EventDetail struct {
	models.Event
	Owner    models.OwnerSummary `json:"owner"`
	Webhooks []models.Webhook    `json:"discord_webhooks"`
}

// EventDate is the minimal projection used by the calendar listing.
type EventDate struct {
	Name     string    `json:"name"`
	Datetime time.Time `json:"datetime"`
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (
			uniqueid, name, description, datetime, is_public, rounds,
			point_per_kill, points_distribution, teams, should_create_teams,
			has_prizepool, prizepool, remaining_prizepool, prizepool_currency,
			prizepool_distribution, lobby_code, notify, webhook_ids,
			rounds_tables, standings_table, current_round, status, bot_url,
			event_url, owner_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		e.UniqueID, e.Name, e.Description, e.Datetime.UTC(), e.IsPublic, e.Rounds,
		e.PointPerKill, e.PointsDistribution, e.Teams, e.ShouldCreateTeams,
		e.HasPrizepool, e.Prizepool, e.RemainingPrizepool, e.PrizepoolCurrency,
		e.PrizepoolDistribution, e.LobbyCode, e.Notify, pq.Array(e.WebhookIDs),
		e.RoundsTables, e.StandingsTable, e.CurrentRound, e.Status, e.BotURL,
		e.EventURL, e.OwnerID,
	).Scan(&e.ID, &e.CreatedAt)
}

func scanEvent(row interface{ Scan(...interface{}) error }, e *models.Event) error {
	return row.Scan(
		&e.ID, &e.UniqueID, &e.Name, &e.Description, &e.Datetime, &e.IsPublic,
		&e.Rounds, &e.PointPerKill, &e.PointsDistribution, &e.Teams,
		&e.ShouldCreateTeams, &e.HasPrizepool, &e.Prizepool,
		&e.RemainingPrizepool, &e.PrizepoolCurrency, &e.PrizepoolDistribution,
		&e.LobbyCode, &e.Notify, pq.Array(&e.WebhookIDs), &e.RoundsTables,
		&e.StandingsTable, &e.CurrentRound, &e.Status, &e.BotURL, &e.EventURL,
		&e.OwnerID, &e.IsDeleted, &e.CreatedAt,
	)
}

func (r *postgresEventRepository) GetByUniqueID(ctx context.Context, uniqueid string) (*models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE uniqueid = $1 AND is_deleted = FALSE`

	e := &models.Event{}
	err := scanEvent(r.db.QueryRowContext(ctx, query, uniqueid), e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEventRepository) GetDetailByUniqueID(ctx context.Context, uniqueid string) (*EventDetail, error) {
	event, err := r.GetByUniqueID(ctx, uniqueid)
	if err != nil {
		return nil, err
	}

	detail := &EventDetail{Event: *event, Webhooks: []models.Webhook{}}

	ownerQuery := `
		SELECT id, username, display_name, organization_status, organization_name
		FROM users
		WHERE id = $1`
	err = r.db.QueryRowContext(ctx, ownerQuery, event.OwnerID).Scan(
		&detail.Owner.ID, &detail.Owner.Username, &detail.Owner.DisplayName,
		&detail.Owner.OrganizationStatus, &detail.Owner.OrganizationName,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if len(event.WebhookIDs) == 0 {
		return detail, nil
	}

	hooksQuery := `
		SELECT id, uniqueid, server, channel, webhook_url, owner_id, last_pinged, is_deleted
		FROM webhooks
		WHERE id = ANY($1) AND is_deleted = FALSE`
	rows, err := r.db.QueryContext(ctx, hooksQuery, pq.Array(event.WebhookIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var w models.Webhook
		if scanErr := rows.Scan(&w.ID, &w.UniqueID, &w.Server, &w.Channel, &w.WebhookURL, &w.OwnerID, &w.LastPinged, &w.IsDeleted); scanErr != nil {
			return nil, scanErr
		}
		detail.Webhooks = append(detail.Webhooks, w)
	}
	return detail, rows.Err()
}

func (r *postgresEventRepository) SoftDelete(ctx context.Context, uniqueid string, ownerID int) error {
	query := `UPDATE events SET is_deleted = TRUE WHERE uniqueid = $1 AND owner_id = $2 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, uniqueid, ownerID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateBasicInfo(ctx context.Context, uniqueid string, name, description string, datetime time.Time, rounds int, isPublic bool) error {
	query := `
		UPDATE events SET name = $1, description = $2, datetime = $3, rounds = $4, is_public = $5
		WHERE uniqueid = $6 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, name, description, datetime.UTC(), rounds, isPublic, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateTeams(ctx context.Context, uniqueid string, teams models.Teams, standings models.StandingsTable, shouldCreateTeams bool) error {
	query := `
		UPDATE events SET teams = $1, standings_table = $2, should_create_teams = $3
		WHERE uniqueid = $4 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, teams, standings, shouldCreateTeams, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdatePoints(ctx context.Context, uniqueid string, pointPerKill float64, distribution models.Distribution) error {
	query := `
		UPDATE events SET point_per_kill = $1, points_distribution = $2
		WHERE uniqueid = $3 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, pointPerKill, distribution, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdatePrize(ctx context.Context, uniqueid string, hasPrizepool bool, prizepool, remaining float64, currency string, distribution models.Distribution) error {
	query := `
		UPDATE events SET has_prizepool = $1, prizepool = $2, remaining_prizepool = $3,
			prizepool_currency = $4, prizepool_distribution = $5
		WHERE uniqueid = $6 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, hasPrizepool, prizepool, remaining, currency, distribution, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateLobbyCode(ctx context.Context, uniqueid string, lobbyCode string) error {
	query := `UPDATE events SET lobby_code = $1 WHERE uniqueid = $2 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, lobbyCode, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateNotify(ctx context.Context, uniqueid string, notify bool) error {
	query := `UPDATE events SET notify = $1 WHERE uniqueid = $2 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, notify, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) AddWebhooks(ctx context.Context, uniqueid string, webhookIDs []int64) error {
	// Set-union on the array column keeps repeated adds idempotent.
	query := `
		UPDATE events
		SET webhook_ids = (
			SELECT ARRAY(SELECT DISTINCT unnest(webhook_ids || $1::bigint[]))
		)
		WHERE uniqueid = $2 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, pq.Array(webhookIDs), uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) RemoveWebhooks(ctx context.Context, uniqueid string, webhookIDs []int64) error {
	query := `
		UPDATE events
		SET webhook_ids = (
			SELECT COALESCE(ARRAY(SELECT unnest(webhook_ids) EXCEPT SELECT unnest($1::bigint[])), '{}')
		)
		WHERE uniqueid = $2 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, pq.Array(webhookIDs), uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateStatusAndTables(ctx context.Context, uniqueid string, status models.EventStatus, tables models.RoundTables) error {
	query := `UPDATE events SET status = $1, rounds_tables = $2 WHERE uniqueid = $3 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, status, tables, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateRoundsTables(ctx context.Context, uniqueid string, tables models.RoundTables) error {
	query := `UPDATE events SET rounds_tables = $1 WHERE uniqueid = $2 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, tables, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

// FinishRound writes the round table, the folded standings and the advanced
// round pointer in one statement, so a failed round end never leaves a
// half-applied result.
func (r *postgresEventRepository) FinishRound(ctx context.Context, uniqueid string, tables models.RoundTables, standings models.StandingsTable, currentRound int) error {
	query := `
		UPDATE events SET rounds_tables = $1, standings_table = $2, current_round = $3
		WHERE uniqueid = $4 AND is_deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, tables, standings, currentRound, uniqueid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

// AutoStart flips every upcoming event whose scheduled time has passed to
// ongoing. Bulk and idempotent: rerunning matches nothing new.
func (r *postgresEventRepository) AutoStart(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE events SET status = $1
		WHERE is_deleted = FALSE AND status = $2 AND datetime <= $3`
	result, err := r.db.ExecContext(ctx, query, models.StatusOngoing, models.StatusUpcoming, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AutoEnd completes ongoing events whose scheduled time is older than the
// cutoff (two days in the janitor).
func (r *postgresEventRepository) AutoEnd(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE events SET status = $1
		WHERE is_deleted = FALSE AND status = $2 AND datetime < $3`
	result, err := r.db.ExecContext(ctx, query, models.StatusCompleted, models.StatusOngoing, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresEventRepository) ListLive(ctx context.Context) ([]models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE is_deleted = FALSE AND status = $1 AND is_public = TRUE
		ORDER BY datetime ASC`

	rows, err := r.db.QueryContext(ctx, query, models.StatusOngoing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if scanErr := scanEvent(rows, &e); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) ListBetween(ctx context.Context, from time.Time) ([]EventDate, error) {
	query := `
		SELECT name, datetime FROM events
		WHERE is_deleted = FALSE AND datetime >= $1
		ORDER BY datetime ASC`

	rows, err := r.db.QueryContext(ctx, query, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]EventDate, 0)
	for rows.Next() {
		var d EventDate
		if scanErr := rows.Scan(&d.Name, &d.Datetime); scanErr != nil {
			return nil, scanErr
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *postgresEventRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_deleted = FALSE`).Scan(&total)
	return total, err
}
