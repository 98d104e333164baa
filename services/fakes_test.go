package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/Meshu-webDEV/singularity-api/notifier"
	"github.com/Meshu-webDEV/singularity-api/repositories"
)

// fakeEventRepo is an in-memory stand-in for the Postgres event repository.
type fakeEventRepo struct {
	events   map[string]*models.Event
	owner    models.OwnerSummary
	attached []models.Webhook
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events: make(map[string]*models.Event),
		owner:  models.OwnerSummary{ID: 1, Username: "meshu", DisplayName: "Meshu"},
	}
}

func (f *fakeEventRepo) get(uniqueid string) (*models.Event, error) {
	e, ok := f.events[uniqueid]
	if !ok || e.IsDeleted {
		return nil, repositories.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeEventRepo) Create(_ context.Context, e *models.Event) error {
	e.ID = len(f.events) + 1
	e.CreatedAt = time.Now().UTC()
	stored := *e
	f.events[e.UniqueID] = &stored
	return nil
}

func (f *fakeEventRepo) GetByUniqueID(_ context.Context, uniqueid string) (*models.Event, error) {
	e, err := f.get(uniqueid)
	if err != nil {
		return nil, err
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEventRepo) GetDetailByUniqueID(ctx context.Context, uniqueid string) (*repositories.EventDetail, error) {
	e, err := f.GetByUniqueID(ctx, uniqueid)
	if err != nil {
		return nil, err
	}
	return &repositories.EventDetail{Event: *e, Owner: f.owner, Webhooks: f.attached}, nil
}

func (f *fakeEventRepo) SoftDelete(_ context.Context, uniqueid string, ownerID int) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	if e.OwnerID != ownerID {
		return repositories.ErrEventNotFound
	}
	e.IsDeleted = true
	return nil
}

func (f *fakeEventRepo) UpdateBasicInfo(_ context.Context, uniqueid string, name, description string, datetime time.Time, rounds int, isPublic bool) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.Name, e.Description, e.Datetime, e.Rounds, e.IsPublic = name, description, datetime, rounds, isPublic
	return nil
}

func (f *fakeEventRepo) UpdateTeams(_ context.Context, uniqueid string, teams models.Teams, standings models.StandingsTable, shouldCreateTeams bool) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.Teams, e.StandingsTable, e.ShouldCreateTeams = teams, standings, shouldCreateTeams
	return nil
}

func (f *fakeEventRepo) UpdatePoints(_ context.Context, uniqueid string, pointPerKill float64, distribution models.Distribution) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.PointPerKill, e.PointsDistribution = pointPerKill, distribution
	return nil
}

func (f *fakeEventRepo) UpdatePrize(_ context.Context, uniqueid string, hasPrizepool bool, prizepool, remaining float64, currency string, distribution models.Distribution) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.HasPrizepool, e.Prizepool, e.RemainingPrizepool = hasPrizepool, prizepool, remaining
	e.PrizepoolCurrency, e.PrizepoolDistribution = currency, distribution
	return nil
}

func (f *fakeEventRepo) UpdateLobbyCode(_ context.Context, uniqueid string, lobbyCode string) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.LobbyCode = lobbyCode
	return nil
}

func (f *fakeEventRepo) UpdateNotify(_ context.Context, uniqueid string, notify bool) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.Notify = notify
	return nil
}

func (f *fakeEventRepo) AddWebhooks(_ context.Context, uniqueid string, webhookIDs []int64) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	have := make(map[int64]bool, len(e.WebhookIDs))
	for _, id := range e.WebhookIDs {
		have[id] = true
	}
	for _, id := range webhookIDs {
		if !have[id] {
			e.WebhookIDs = append(e.WebhookIDs, id)
		}
	}
	return nil
}

func (f *fakeEventRepo) RemoveWebhooks(_ context.Context, uniqueid string, webhookIDs []int64) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	drop := make(map[int64]bool, len(webhookIDs))
	for _, id := range webhookIDs {
		drop[id] = true
	}
	kept := e.WebhookIDs[:0]
	for _, id := range e.WebhookIDs {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	e.WebhookIDs = kept
	return nil
}

func (f *fakeEventRepo) UpdateStatusAndTables(_ context.Context, uniqueid string, status models.EventStatus, tables models.RoundTables) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.Status, e.RoundsTables = status, tables
	return nil
}

func (f *fakeEventRepo) UpdateRoundsTables(_ context.Context, uniqueid string, tables models.RoundTables) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.RoundsTables = tables
	return nil
}

func (f *fakeEventRepo) FinishRound(_ context.Context, uniqueid string, tables models.RoundTables, standings models.StandingsTable, currentRound int) error {
	e, err := f.get(uniqueid)
	if err != nil {
		return err
	}
	e.RoundsTables, e.StandingsTable, e.CurrentRound = tables, standings, currentRound
	return nil
}

func (f *fakeEventRepo) AutoStart(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, e := range f.events {
		if !e.IsDeleted && e.Status == models.StatusUpcoming && !e.Datetime.After(now) {
			e.Status = models.StatusOngoing
			count++
		}
	}
	return count, nil
}

func (f *fakeEventRepo) AutoEnd(_ context.Context, cutoff time.Time) (int64, error) {
	var count int64
	for _, e := range f.events {
		if !e.IsDeleted && e.Status == models.StatusOngoing && e.Datetime.Before(cutoff) {
			e.Status = models.StatusCompleted
			count++
		}
	}
	return count, nil
}

func (f *fakeEventRepo) List(_ context.Context, params repositories.ListParams) (*repositories.ListResult, error) {
	switch params.Action {
	case repositories.ActionInitial, repositories.ActionSearch:
	case repositories.ActionFiltered:
		noRange := params.Filters.From == nil || params.Filters.To == nil
		if params.Filters.Term == "" && noRange && len(params.Filters.Statuses) == 0 {
			return nil, repositories.ErrEmptyFilters
		}
	default:
		return nil, repositories.ErrInvalidListAction
	}
	return &repositories.ListResult{Events: []repositories.EventSummary{}}, nil
}

func (f *fakeEventRepo) ListLive(_ context.Context) ([]models.Event, error) {
	var live []models.Event
	for _, e := range f.events {
		if !e.IsDeleted && e.IsPublic && e.Status == models.StatusOngoing {
			live = append(live, *e)
		}
	}
	return live, nil
}

func (f *fakeEventRepo) ListBetween(_ context.Context, from time.Time) ([]repositories.EventDate, error) {
	var dates []repositories.EventDate
	for _, e := range f.events {
		if !e.IsDeleted && !e.Datetime.Before(from) {
			dates = append(dates, repositories.EventDate{Name: e.Name, Datetime: e.Datetime})
		}
	}
	return dates, nil
}

func (f *fakeEventRepo) CountAll(_ context.Context) (int, error) {
	count := 0
	for _, e := range f.events {
		if !e.IsDeleted {
			count++
		}
	}
	return count, nil
}

// fakeWebhookRepo keeps saved channels in a slice.
type fakeWebhookRepo struct {
	hooks  []models.Webhook
	nextID int64
}

func (f *fakeWebhookRepo) Create(_ context.Context, webhook *models.Webhook) error {
	f.nextID++
	webhook.ID = f.nextID
	f.hooks = append(f.hooks, *webhook)
	return nil
}

func (f *fakeWebhookRepo) GetByUniqueID(_ context.Context, uniqueID string) (*models.Webhook, error) {
	for i := range f.hooks {
		if f.hooks[i].UniqueID == uniqueID && !f.hooks[i].IsDeleted {
			copied := f.hooks[i]
			return &copied, nil
		}
	}
	return nil, repositories.ErrWebhookNotFound
}

func (f *fakeWebhookRepo) ListByOwner(_ context.Context, ownerID int) ([]models.Webhook, error) {
	var out []models.Webhook
	for _, w := range f.hooks {
		if w.OwnerID == ownerID && !w.IsDeleted {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) ResolveByUniqueIDs(_ context.Context, ownerID int, uniqueIDs []string) ([]models.Webhook, error) {
	want := make(map[string]bool, len(uniqueIDs))
	for _, id := range uniqueIDs {
		want[id] = true
	}
	var out []models.Webhook
	for _, w := range f.hooks {
		if w.OwnerID == ownerID && !w.IsDeleted && want[w.UniqueID] {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWebhookRepo) CountByOwner(_ context.Context, ownerID int) (int, error) {
	count := 0
	for _, w := range f.hooks {
		if w.OwnerID == ownerID && !w.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (f *fakeWebhookRepo) Update(_ context.Context, ownerID int, uniqueID string, server, channel, webhookURL string) error {
	for i := range f.hooks {
		if f.hooks[i].OwnerID == ownerID && f.hooks[i].UniqueID == uniqueID && !f.hooks[i].IsDeleted {
			f.hooks[i].Server, f.hooks[i].Channel, f.hooks[i].WebhookURL = server, channel, webhookURL
			return nil
		}
	}
	return repositories.ErrWebhookNotFound
}

func (f *fakeWebhookRepo) SoftDelete(_ context.Context, ownerID int, uniqueID string) error {
	for i := range f.hooks {
		if f.hooks[i].OwnerID == ownerID && f.hooks[i].UniqueID == uniqueID && !f.hooks[i].IsDeleted {
			f.hooks[i].IsDeleted = true
			return nil
		}
	}
	return repositories.ErrWebhookNotFound
}

func (f *fakeWebhookRepo) TouchLastPinged(_ context.Context, ownerID int, uniqueID string, pingedAt time.Time) error {
	for i := range f.hooks {
		if f.hooks[i].OwnerID == ownerID && f.hooks[i].UniqueID == uniqueID && !f.hooks[i].IsDeleted {
			f.hooks[i].LastPinged = pingedAt
			return nil
		}
	}
	return repositories.ErrWebhookNotFound
}

// fakeNotifier records outbound batches.
type fakeNotifier struct {
	started  [][]string
	progress [][]string
	ended    [][]string
	pinged   []string
	fail     bool
}

func (f *fakeNotifier) err() error {
	if f.fail {
		return fmt.Errorf("delivery failed")
	}
	return nil
}

func (f *fakeNotifier) EventStarted(_ context.Context, _ notifier.EventInfo, urls []string) error {
	f.started = append(f.started, urls)
	return f.err()
}

func (f *fakeNotifier) RoundProgress(_ context.Context, _ notifier.EventInfo, urls []string) error {
	f.progress = append(f.progress, urls)
	return f.err()
}

func (f *fakeNotifier) EventEnded(_ context.Context, _ notifier.EventInfo, urls []string) error {
	f.ended = append(f.ended, urls)
	return f.err()
}

func (f *fakeNotifier) Ping(_ context.Context, url string) error {
	f.pinged = append(f.pinged, url)
	return f.err()
}

type broadcastRecord struct {
	eventID string
	round   int
	status  models.EventStatus
}

type fakeBroadcaster struct {
	standings []broadcastRecord
	statuses  []broadcastRecord
}

func (f *fakeBroadcaster) BroadcastStandings(eventID string, currentRound int, _ models.StandingsTable) {
	f.standings = append(f.standings, broadcastRecord{eventID: eventID, round: currentRound})
}

func (f *fakeBroadcaster) BroadcastStatus(eventID string, status models.EventStatus) {
	f.statuses = append(f.statuses, broadcastRecord{eventID: eventID, status: status})
}

type fakeShortener struct {
	fail bool
}

func (f *fakeShortener) Shorten(_ context.Context, target string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("shortener unavailable")
	}
	return "https://sngty.io/abc123", nil
}
