package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/Meshu-webDEV/singularity-api/notifier"
	"github.com/Meshu-webDEV/singularity-api/repositories"
	"github.com/Meshu-webDEV/singularity-api/scoring"
	"github.com/Meshu-webDEV/singularity-api/utils"
)

// autoEndGrace is how long an ongoing event may sit past its scheduled time
// before the janitor force-completes it.
const autoEndGrace = 48 * time.Hour

// EventNotifier is the outbound announcement surface used by lifecycle
// operations. Satisfied by notifier.Notifier.
type EventNotifier interface {
	EventStarted(ctx context.Context, info notifier.EventInfo, urls []string) error
	RoundProgress(ctx context.Context, info notifier.EventInfo, urls []string) error
	EventEnded(ctx context.Context, info notifier.EventInfo, urls []string) error
}

// StandingsBroadcaster pushes standings and lifecycle updates to live
// subscribers. Satisfied by live.Hub.
type StandingsBroadcaster interface {
	BroadcastStandings(eventID string, currentRound int, standings models.StandingsTable)
	BroadcastStatus(eventID string, status models.EventStatus)
}

// LinkShortener produces short shareable links. Satisfied by
// shortener.Client.
type LinkShortener interface {
	Shorten(ctx context.Context, target string) (string, error)
}

type EventService interface {
	CreateEvent(ctx context.Context, ownerID int, input CreateEventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, ownerID int, uniqueid string) error

	UpdateBasicInfo(ctx context.Context, ownerID int, uniqueid string, input BasicInfoInput) error
	UpdateTeams(ctx context.Context, ownerID int, uniqueid string, input TeamsInput) error
	UpdatePoints(ctx context.Context, ownerID int, uniqueid string, input PointsInput) error
	UpdatePrize(ctx context.Context, ownerID int, uniqueid string, input PrizeInput) error
	UpdateLobbyCode(ctx context.Context, ownerID int, uniqueid string, lobbyCode string) error
	UpdateNotify(ctx context.Context, ownerID int, uniqueid string, notify bool) error
	UpdateWebhooks(ctx context.Context, ownerID int, uniqueid string, input WebhooksInput) error

	StartEvent(ctx context.Context, ownerID int, uniqueid string, opts NotifyOptions) (*StartStatus, error)
	EndEvent(ctx context.Context, ownerID int, uniqueid string, opts NotifyOptions) (*EndStatus, error)
	SubmitRoundTable(ctx context.Context, ownerID int, uniqueid string, round int, rows []models.RoundRow) error
	EndRound(ctx context.Context, ownerID int, uniqueid string, round int, rows []models.RoundRow, opts NotifyOptions) (*RoundStatus, error)

	GetEventDetail(ctx context.Context, uniqueid string) (*repositories.EventDetail, error)
	GetLobbyCode(ctx context.Context, ownerID int, uniqueid string) (string, error)
	BotScores(ctx context.Context, uniqueid string) (string, error)

	Explore(ctx context.Context, query ListQuery) (*repositories.ListResult, error)
	MyEvents(ctx context.Context, ownerID int, query ListQuery) (*repositories.ListResult, error)
	ByOrganizer(ctx context.Context, organizerID int, query ListQuery) (*repositories.ListResult, error)
	LiveEvents(ctx context.Context) ([]PublicEvent, error)
	EventsBetween(ctx context.Context, from time.Time) ([]repositories.EventDate, error)
	CountEvents(ctx context.Context) (int, error)

	AutoStart(ctx context.Context) (int64, error)
	AutoEnd(ctx context.Context) (int64, error)
}

type CreateEventInput struct {
	Name                  string
	Description           string
	Datetime              time.Time
	IsPublic              bool
	Rounds                int
	PointPerKill          float64
	PointsDistribution    models.Distribution
	Teams                 models.Teams
	ShouldCreateTeams     bool
	HasPrizepool          bool
	Prizepool             float64
	PrizepoolCurrency     string
	PrizepoolDistribution models.Distribution
	LobbyCode             string
	Notify                bool
	WebhookIDs            []string
}

type BasicInfoInput struct {
	Name        string
	Description string
	Datetime    time.Time
	Rounds      int
	IsPublic    bool
}

type TeamsInput struct {
	Teams             models.Teams
	ShouldCreateTeams bool
}

type PointsInput struct {
	PointPerKill       float64
	PointsDistribution models.Distribution
}

type PrizeInput struct {
	HasPrizepool          bool
	Prizepool             float64
	PrizepoolCurrency     string
	PrizepoolDistribution models.Distribution
}

// WebhooksInput references saved channels by their public ids.
type WebhooksInput struct {
	Add    []string
	Remove []string
}

// NotifyOptions carries the per-request notification switches of a lifecycle
// call: the notify toggle plus any ad-hoc webhook URLs supplied alongside the
// event's saved channels.
type NotifyOptions struct {
	Notify      bool
	WebhookURLs []string
}

type StartStatus struct {
	Started  bool `json:"started"`
	Notified bool `json:"notified"`
}

type EndStatus struct {
	Ended    bool `json:"ended"`
	Notified bool `json:"notified"`
}

type RoundStatus struct {
	Ended        bool `json:"ended"`
	CurrentRound int  `json:"currentRound"`
	Notified     bool `json:"notified"`
}

// ListQuery is the transport-agnostic shape of a listing request.
type ListQuery struct {
	Action   string
	Term     string
	From     *time.Time
	To       *time.Time
	Statuses []int
	Skip     int
	Limit    int
	Sort     string
}

type eventService struct {
	events    repositories.EventRepository
	webhooks  repositories.WebhookRepository
	notifier  EventNotifier
	live      StandingsBroadcaster
	shortener LinkShortener

	clientOrigin string
	apiOrigin    string
	logger       *slog.Logger
}

func NewEventService(
	events repositories.EventRepository,
	webhooks repositories.WebhookRepository,
	eventNotifier EventNotifier,
	live StandingsBroadcaster,
	linkShortener LinkShortener,
	clientOrigin string,
	apiOrigin string,
	logger *slog.Logger,
) EventService {
	return &eventService{
		events:       events,
		webhooks:     webhooks,
		notifier:     eventNotifier,
		live:         live,
		shortener:    linkShortener,
		clientOrigin: clientOrigin,
		apiOrigin:    apiOrigin,
		logger:       logger,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, ownerID int, input CreateEventInput) (*models.Event, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrMalformedInput)
	}
	if input.Rounds < 1 {
		return nil, fmt.Errorf("%w: rounds must be at least 1", ErrMalformedInput)
	}
	if input.PointPerKill < 0 {
		return nil, fmt.Errorf("%w: point per kill cannot be negative", ErrMalformedInput)
	}
	if len(input.PointsDistribution) == 0 {
		return nil, fmt.Errorf("%w: points distribution is required", ErrMalformedInput)
	}

	teams, err := stampTeams(input.Teams)
	if err != nil {
		return nil, err
	}

	webhookIDs, err := s.resolveWebhookIDs(ctx, ownerID, input.WebhookIDs)
	if err != nil {
		return nil, err
	}

	uniqueid, err := utils.NewUniqueID(utils.EventIDSize)
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	event := &models.Event{
		UniqueID:              uniqueid,
		Name:                  name,
		Description:           input.Description,
		Datetime:              input.Datetime.UTC(),
		IsPublic:              input.IsPublic,
		Rounds:                input.Rounds,
		PointPerKill:          input.PointPerKill,
		PointsDistribution:    input.PointsDistribution,
		Teams:                 teams,
		ShouldCreateTeams:     input.ShouldCreateTeams,
		HasPrizepool:          input.HasPrizepool,
		Prizepool:             input.Prizepool,
		RemainingPrizepool:    input.Prizepool,
		PrizepoolCurrency:     input.PrizepoolCurrency,
		PrizepoolDistribution: input.PrizepoolDistribution,
		LobbyCode:             input.LobbyCode,
		Notify:                input.Notify,
		WebhookIDs:            webhookIDs,
		RoundsTables:          models.RoundTables{},
		StandingsTable:        scoring.GenerateStandings(teams),
		CurrentRound:          0,
		Status:                models.StatusUpcoming,
		OwnerID:               ownerID,
	}
	event.EventURL = s.shortenOrFallback(ctx, fmt.Sprintf("%s/event/%s", s.clientOrigin, uniqueid))
	event.BotURL = s.shortenOrFallback(ctx, fmt.Sprintf("%s/v1/events/%s/bot-scores", s.apiOrigin, uniqueid))

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// shortenOrFallback returns a short link for target, or target itself when
// the shortener is unavailable. Shortening is never worth failing a create.
func (s *eventService) shortenOrFallback(ctx context.Context, target string) string {
	short, err := s.shortener.Shorten(ctx, target)
	if err != nil {
		s.logger.Warn("link shortening failed", slog.String("target", target), slog.Any("error", err))
		return target
	}
	return short
}

func (s *eventService) DeleteEvent(ctx context.Context, ownerID int, uniqueid string) error {
	if _, err := s.ownedEvent(ctx, ownerID, uniqueid); err != nil {
		return err
	}
	err := s.events.SoftDelete(ctx, uniqueid, ownerID)
	if errors.Is(err, repositories.ErrEventNotFound) {
		return ErrEventNotFound
	}
	return err
}

func (s *eventService) UpdateBasicInfo(ctx context.Context, ownerID int, uniqueid string, input BasicInfoInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: event name is required", ErrMalformedInput)
	}
	if input.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be at least 1", ErrMalformedInput)
	}
	if _, err := s.ownedEvent(ctx, ownerID, uniqueid); err != nil {
		return err
	}
	return s.events.UpdateBasicInfo(ctx, uniqueid, name, input.Description, input.Datetime, input.Rounds, input.IsPublic)
}

// UpdateTeams replaces the roster. Standings are regenerated from scratch, so
// any accumulated scores are reset along with the teams.
func (s *eventService) UpdateTeams(ctx context.Context, ownerID int, uniqueid string, input TeamsInput) error {
	teams, err := stampTeams(input.Teams)
	if err != nil {
		return err
	}
	if _, err := s.ownedEvent(ctx, ownerID, uniqueid); err != nil {
		return err
	}
	return s.events.UpdateTeams(ctx, uniqueid, teams, scoring.GenerateStandings(teams), input.ShouldCreateTeams)
}

func (s *eventService) UpdatePoints(ctx context.Context, ownerID int, uniqueid string, input PointsInput) error {
	if input.PointPerKill < 0 {
		return fmt.Errorf("%w: point per kill cannot be negative", ErrMalformedInput)
	}
	if len(input.PointsDistribution) == 0 {
		return fmt.Errorf("%w: points distribution is required", ErrMalformedInput)
	}
	if _, err := s.ownedEvent(ctx, ownerID, uniqueid); err != nil {
		return err
	}
	return s.events.UpdatePoints(ctx, uniqueid, input.PointPerKill, input.PointsDistribution)
}

func (s *eventService) UpdatePrize(ctx context.Context, ownerID int, uniqueid string, input PrizeInput) error {
	if input.HasPrizepool && input.Prizepool < 0 {
		return fmt.Errorf("%w: prizepool cannot be negative", ErrMalformedInput)
	}
	if _, err := s.ownedEvent(ctx, ownerID, uniqueid); err != nil {
		return err
	}
	return s.events.UpdatePrize(ctx, uniqueid, input.HasPrizepool, input.Prizepool, input.Prizepool, input.PrizepoolCurrency, input.PrizepoolDistribution)
}

func (s *eventService) UpdateLobbyCode(ctx context.Context, ownerID int, uniqueid string, lobbyCode string) error {
	if _, err := s.ownedEvent(ctx, ownerID, uniqueid); err != nil {
		return err
	}
	return s.events.UpdateLobbyCode(ctx, uniqueid, lobbyCode)
}

func (s *eventService) UpdateNotify(ctx context.Context, ownerID int, uniqueid string, notify bool) error {
	if _, err := s.ownedEvent(ctx, ownerID, uniqueid); err != nil {
		return err
	}
	return s.events.UpdateNotify(ctx, uniqueid, notify)
}

func (s *eventService) UpdateWebhooks(ctx context.Context, ownerID int, uniqueid string, input WebhooksInput) error {
	event, err := s.ownedEvent(ctx, ownerID, uniqueid)
	if err != nil {
		return err
	}

	final := make(map[int64]bool, len(event.WebhookIDs))
	for _, id := range event.WebhookIDs {
		final[id] = true
	}

	var removeIDs []int64
	if len(input.Remove) > 0 {
		hooks, resolveErr := s.webhooks.ResolveByUniqueIDs(ctx, ownerID, input.Remove)
		if resolveErr != nil {
			return resolveErr
		}
		// Only channels actually attached count as removals; anything else
		// is a no-op and must not loosen the cap check below.
		for _, w := range hooks {
			if final[w.ID] {
				removeIDs = append(removeIDs, w.ID)
				delete(final, w.ID)
			}
		}
	}

	var addIDs []int64
	if len(input.Add) > 0 {
		hooks, resolveErr := s.webhooks.ResolveByUniqueIDs(ctx, ownerID, input.Add)
		if resolveErr != nil {
			return resolveErr
		}
		for _, w := range hooks {
			addIDs = append(addIDs, w.ID)
			final[w.ID] = true
		}
		// The cap applies to the attachment set that would result, not the
		// raw add/remove counts.
		if len(final) > models.WebhooksPerEventLimit {
			return ErrWebhookEventLimit
		}
	}

	if len(removeIDs) > 0 {
		if err := s.events.RemoveWebhooks(ctx, uniqueid, removeIDs); err != nil {
			return err
		}
	}
	if len(addIDs) > 0 {
		if err := s.events.AddWebhooks(ctx, uniqueid, addIDs); err != nil {
			return err
		}
	}
	return nil
}

// resolveWebhookIDs maps the caller's channel uniqueids to internal ids,
// silently dropping anything the caller does not own, and enforces the
// per-event attachment cap.
func (s *eventService) resolveWebhookIDs(ctx context.Context, ownerID int, uniqueIDs []string) ([]int64, error) {
	if len(uniqueIDs) == 0 {
		return nil, nil
	}
	hooks, err := s.webhooks.ResolveByUniqueIDs(ctx, ownerID, uniqueIDs)
	if err != nil {
		return nil, err
	}
	if len(hooks) > models.WebhooksPerEventLimit {
		return nil, ErrWebhookEventLimit
	}
	ids := make([]int64, 0, len(hooks))
	for _, w := range hooks {
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func (s *eventService) StartEvent(ctx context.Context, ownerID int, uniqueid string, opts NotifyOptions) (*StartStatus, error) {
	detail, err := s.ownedDetail(ctx, ownerID, uniqueid)
	if err != nil {
		return nil, err
	}

	// Already live: report success without regenerating tables, a second
	// start must not wipe submitted rounds.
	if detail.Status == models.StatusOngoing {
		return &StartStatus{Started: true, Notified: false}, nil
	}
	if !detail.Status.CanTransitionTo(models.StatusOngoing) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, detail.Status, models.StatusOngoing)
	}

	tables := scoring.GenerateRoundTables(detail.Teams, detail.Rounds)
	if err := s.events.UpdateStatusAndTables(ctx, uniqueid, models.StatusOngoing, tables); err != nil {
		return nil, fmt.Errorf("start event: %w", err)
	}
	s.live.BroadcastStatus(uniqueid, models.StatusOngoing)

	notified := s.deliver(ctx, detail, opts, func(info notifier.EventInfo, urls []string) error {
		return s.notifier.EventStarted(ctx, info, urls)
	})
	return &StartStatus{Started: true, Notified: notified}, nil
}

func (s *eventService) EndEvent(ctx context.Context, ownerID int, uniqueid string, opts NotifyOptions) (*EndStatus, error) {
	detail, err := s.ownedDetail(ctx, ownerID, uniqueid)
	if err != nil {
		return nil, err
	}

	// An end request against an event that never progressed is treated as a
	// mistake: the event is reset to upcoming and its round tables cleared
	// instead of being frozen as an empty result.
	if detail.CurrentRound == 0 {
		if err := s.events.UpdateStatusAndTables(ctx, uniqueid, models.StatusUpcoming, models.RoundTables{}); err != nil {
			return nil, fmt.Errorf("reset event: %w", err)
		}
		s.live.BroadcastStatus(uniqueid, models.StatusUpcoming)
		return &EndStatus{Ended: false, Notified: false}, nil
	}

	if !detail.Status.CanTransitionTo(models.StatusCompleted) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, detail.Status, models.StatusCompleted)
	}
	if err := s.events.UpdateStatusAndTables(ctx, uniqueid, models.StatusCompleted, detail.RoundsTables); err != nil {
		return nil, fmt.Errorf("end event: %w", err)
	}
	s.live.BroadcastStatus(uniqueid, models.StatusCompleted)

	// Final announcements only go out for events that actually took place:
	// the scheduled time has passed and at least one round completed.
	notified := false
	if detail.IsPast(time.Now().UTC()) {
		notified = s.deliver(ctx, detail, opts, func(info notifier.EventInfo, urls []string) error {
			return s.notifier.EventEnded(ctx, info, urls)
		})
	}
	return &EndStatus{Ended: true, Notified: notified}, nil
}

func (s *eventService) SubmitRoundTable(ctx context.Context, ownerID int, uniqueid string, round int, rows []models.RoundRow) error {
	event, err := s.ownedEvent(ctx, ownerID, uniqueid)
	if err != nil {
		return err
	}
	if event.Status != models.StatusOngoing {
		return ErrEventNotOngoing
	}
	if !scoring.SameTeamSet(event.Teams, rows) {
		return ErrRosterMismatch
	}

	tables, err := replaceRoundTable(event.RoundsTables, round, rows)
	if err != nil {
		return err
	}
	return s.events.UpdateRoundsTables(ctx, uniqueid, tables)
}

// EndRound scores the submitted table, folds it into the standings and
// advances the round pointer in a single write. There is no per-event lock:
// two concurrent ends of the same round race on the currentRound check, and
// the loser's write wins silently. Accepted, round ends are a single
// organizer clicking a button.
func (s *eventService) EndRound(ctx context.Context, ownerID int, uniqueid string, round int, rows []models.RoundRow, opts NotifyOptions) (*RoundStatus, error) {
	detail, err := s.ownedDetail(ctx, ownerID, uniqueid)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.StatusOngoing {
		return nil, ErrEventNotOngoing
	}
	if round != detail.CurrentRound {
		return nil, fmt.Errorf("%w: got %d, current is %d", ErrWrongRound, round, detail.CurrentRound)
	}
	if !scoring.SameTeamSet(detail.Teams, rows) {
		return nil, ErrRosterMismatch
	}

	deltas := scoring.ComputeRoundDeltas(models.RoundTable{Round: round, Table: rows}, detail.PointPerKill, detail.PointsDistribution)
	standings, err := scoring.FoldIntoStandings(detail.StandingsTable, deltas)
	if err != nil {
		return nil, fmt.Errorf("fold round %d: %w", round, err)
	}
	tables, err := replaceRoundTable(detail.RoundsTables, round, rows)
	if err != nil {
		return nil, err
	}

	nextRound := round + 1
	if err := s.events.FinishRound(ctx, uniqueid, tables, standings, nextRound); err != nil {
		return nil, fmt.Errorf("finish round: %w", err)
	}
	s.live.BroadcastStandings(uniqueid, nextRound, standings)

	detail.StandingsTable = standings
	detail.CurrentRound = nextRound
	notified := s.deliver(ctx, detail, opts, func(info notifier.EventInfo, urls []string) error {
		return s.notifier.RoundProgress(ctx, info, urls)
	})
	return &RoundStatus{Ended: true, CurrentRound: nextRound, Notified: notified}, nil
}

func replaceRoundTable(tables models.RoundTables, round int, rows []models.RoundRow) (models.RoundTables, error) {
	updated := make(models.RoundTables, len(tables))
	copy(updated, tables)
	for i := range updated {
		if updated[i].Round == round {
			updated[i].Table = rows
			return updated, nil
		}
	}
	return nil, fmt.Errorf("%w: no table for round %d", ErrWrongRound, round)
}

func (s *eventService) GetEventDetail(ctx context.Context, uniqueid string) (*repositories.EventDetail, error) {
	detail, err := s.events.GetDetailByUniqueID(ctx, uniqueid)
	if errors.Is(err, repositories.ErrEventNotFound) {
		return nil, ErrEventNotFound
	}
	return detail, err
}

func (s *eventService) GetLobbyCode(ctx context.Context, ownerID int, uniqueid string) (string, error) {
	event, err := s.ownedEvent(ctx, ownerID, uniqueid)
	if err != nil {
		return "", err
	}
	return event.LobbyCode, nil
}

// BotScores renders the one-line leaderboard consumed by chat bots.
func (s *eventService) BotScores(ctx context.Context, uniqueid string) (string, error) {
	event, err := s.findEvent(ctx, uniqueid)
	if err != nil {
		return "", err
	}
	if event.Status == models.StatusUpcoming || event.CurrentRound == 0 {
		return fmt.Sprintf("%s has not started yet. %d teams over %d rounds, stay tuned!",
			event.Name, len(event.Teams), event.Rounds), nil
	}
	return fmt.Sprintf("%s | %d/%d rounds played | %s",
		event.Name, event.CurrentRound, event.Rounds,
		notifier.FormatStandings(event.StandingsTable, " | ")), nil
}

func (s *eventService) Explore(ctx context.Context, query ListQuery) (*repositories.ListResult, error) {
	return s.list(ctx, repositories.ScopeExplore, 0, query)
}

func (s *eventService) MyEvents(ctx context.Context, ownerID int, query ListQuery) (*repositories.ListResult, error) {
	return s.list(ctx, repositories.ScopeOwner, ownerID, query)
}

func (s *eventService) ByOrganizer(ctx context.Context, organizerID int, query ListQuery) (*repositories.ListResult, error) {
	if organizerID <= 0 {
		return nil, fmt.Errorf("%w: invalid organizer id", ErrMalformedInput)
	}
	return s.list(ctx, repositories.ScopeOrganizer, organizerID, query)
}

func (s *eventService) list(ctx context.Context, scope repositories.ListScope, ownerID int, query ListQuery) (*repositories.ListResult, error) {
	params, err := buildListParams(scope, ownerID, query)
	if err != nil {
		return nil, err
	}
	result, err := s.events.List(ctx, params)
	if errors.Is(err, repositories.ErrEmptyFilters) || errors.Is(err, repositories.ErrInvalidListAction) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return result, err
}

func buildListParams(scope repositories.ListScope, ownerID int, query ListQuery) (repositories.ListParams, error) {
	statuses := make([]models.EventStatus, 0, len(query.Statuses))
	for _, raw := range query.Statuses {
		status := models.EventStatus(raw)
		if !status.Valid() {
			return repositories.ListParams{}, fmt.Errorf("%w: unknown status %d", ErrMalformedInput, raw)
		}
		statuses = append(statuses, status)
	}

	filters := repositories.EventFilters{
		Term:     strings.TrimSpace(query.Term),
		Statuses: statuses,
	}
	if query.From != nil && query.To != nil {
		from, to := dayBounds(*query.From, *query.To)
		filters.From, filters.To = &from, &to
	}

	return repositories.ListParams{
		Scope:   scope,
		OwnerID: ownerID,
		Action:  repositories.SearchAction(query.Action),
		Filters: filters,
		Skip:    query.Skip,
		Limit:   query.Limit,
		Sort:    query.Sort,
	}, nil
}

func (s *eventService) LiveEvents(ctx context.Context) ([]PublicEvent, error) {
	events, err := s.events.ListLive(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PublicEvent, 0, len(events))
	for i := range events {
		views = append(views, publicEventFields(&events[i], ""))
	}
	return views, nil
}

func (s *eventService) EventsBetween(ctx context.Context, from time.Time) ([]repositories.EventDate, error) {
	return s.events.ListBetween(ctx, from)
}

func (s *eventService) CountEvents(ctx context.Context) (int, error) {
	return s.events.CountAll(ctx)
}

func (s *eventService) AutoStart(ctx context.Context) (int64, error) {
	return s.events.AutoStart(ctx, time.Now().UTC())
}

func (s *eventService) AutoEnd(ctx context.Context) (int64, error) {
	return s.events.AutoEnd(ctx, time.Now().UTC().Add(-autoEndGrace))
}

func (s *eventService) findEvent(ctx context.Context, uniqueid string) (*models.Event, error) {
	event, err := s.events.GetByUniqueID(ctx, uniqueid)
	if errors.Is(err, repositories.ErrEventNotFound) {
		return nil, ErrEventNotFound
	}
	return event, err
}

func (s *eventService) ownedEvent(ctx context.Context, ownerID int, uniqueid string) (*models.Event, error) {
	event, err := s.findEvent(ctx, uniqueid)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return event, nil
}

func (s *eventService) ownedDetail(ctx context.Context, ownerID int, uniqueid string) (*repositories.EventDetail, error) {
	detail, err := s.GetEventDetail(ctx, uniqueid)
	if err != nil {
		return nil, err
	}
	if detail.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return detail, nil
}

// deliver fans a notification out to the event's saved channels plus any
// ad-hoc URLs from the request. Returns whether the whole batch went through;
// delivery failures never fail the operation that triggered them.
func (s *eventService) deliver(ctx context.Context, detail *repositories.EventDetail, opts NotifyOptions, send func(notifier.EventInfo, []string) error) bool {
	if !opts.Notify {
		return false
	}
	urls := collectTargets(detail, opts)
	if len(urls) == 0 {
		return false
	}
	if err := send(buildEventInfo(detail), urls); err != nil {
		s.logger.Warn("notification batch incomplete",
			slog.String("event", detail.UniqueID), slog.Any("error", err))
		return false
	}
	return true
}

func collectTargets(detail *repositories.EventDetail, opts NotifyOptions) []string {
	seen := make(map[string]bool)
	urls := make([]string, 0, len(detail.Webhooks)+len(opts.WebhookURLs))
	if detail.Notify {
		for _, w := range detail.Webhooks {
			if w.WebhookURL != "" && !seen[w.WebhookURL] {
				seen[w.WebhookURL] = true
				urls = append(urls, w.WebhookURL)
			}
		}
	}
	for _, url := range opts.WebhookURLs {
		if url != "" && !seen[url] {
			seen[url] = true
			urls = append(urls, url)
		}
	}
	return urls
}

func buildEventInfo(detail *repositories.EventDetail) notifier.EventInfo {
	return notifier.EventInfo{
		Name:              detail.Name,
		Organizer:         detail.Owner.OrganizerName(),
		EventURL:          detail.EventURL,
		LobbyCode:         detail.LobbyCode,
		CurrentRound:      detail.CurrentRound,
		Rounds:            detail.Rounds,
		Standings:         detail.StandingsTable,
		HasPrizepool:      detail.HasPrizepool,
		Prizepool:         detail.Prizepool,
		PrizepoolCurrency: detail.PrizepoolCurrency,
	}
}
