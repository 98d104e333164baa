package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/Meshu-webDEV/singularity-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service   EventService
	events    *fakeEventRepo
	webhooks  *fakeWebhookRepo
	notifier  *fakeNotifier
	broadcast *fakeBroadcaster
	shortener *fakeShortener
}

func newFixture() *fixture {
	f := &fixture{
		events:    newFakeEventRepo(),
		webhooks:  &fakeWebhookRepo{},
		notifier:  &fakeNotifier{},
		broadcast: &fakeBroadcaster{},
		shortener: &fakeShortener{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewEventService(
		f.events, f.webhooks, f.notifier, f.broadcast, f.shortener,
		"https://singularity.events", "https://api.singularity.events", logger,
	)
	return f
}

func seedEvent(f *fixture, mutate func(*models.Event)) *models.Event {
	event := &models.Event{
		UniqueID:           "evt-1",
		Name:               "Apex Customs",
		Datetime:           time.Now().UTC().Add(-time.Hour),
		IsPublic:           true,
		Rounds:             2,
		PointPerKill:       1,
		PointsDistribution: models.Distribution{10, 6, 4, 3, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		Teams: models.Teams{
			{UniqueID: "a", Name: "Alpha"},
			{UniqueID: "b", Name: "Bravo"},
		},
		StandingsTable: models.StandingsTable{
			{UniqueID: "a", Name: "Alpha", Points: 0},
			{UniqueID: "b", Name: "Bravo", Points: 0},
		},
		RoundsTables: models.RoundTables{
			{Round: 0, Table: []models.RoundRow{{UniqueID: "a", Name: "Alpha"}, {UniqueID: "b", Name: "Bravo"}}},
			{Round: 1, Table: []models.RoundRow{{UniqueID: "a", Name: "Alpha"}, {UniqueID: "b", Name: "Bravo"}}},
		},
		Status:  models.StatusUpcoming,
		OwnerID: 1,
	}
	if mutate != nil {
		mutate(event)
	}
	f.events.events[event.UniqueID] = event
	return event
}

func TestCreateEventStampsCreatableTeams(t *testing.T) {
	f := newFixture()
	f.shortener.fail = true

	event, err := f.service.CreateEvent(context.Background(), 1, CreateEventInput{
		Name:               "Winter Scrims",
		Datetime:           time.Now().Add(24 * time.Hour),
		Rounds:             3,
		PointPerKill:       1,
		PointsDistribution: models.Distribution{5, 3, 1},
		Teams: models.Teams{
			{Name: "Fresh", Creatable: true},
			{UniqueID: "imported", Name: "Imported"},
		},
	})
	require.NoError(t, err)

	assert.Len(t, event.UniqueID, utils.EventIDSize)
	assert.Len(t, event.Teams[0].UniqueID, utils.TeamIDSize)
	assert.Equal(t, "imported", event.Teams[1].UniqueID)

	require.Len(t, event.StandingsTable, 2)
	for _, row := range event.StandingsTable {
		assert.Zero(t, row.Points)
	}

	assert.Equal(t, models.StatusUpcoming, event.Status)
	assert.Zero(t, event.CurrentRound)
	// Shortener down: shareable links fall back to the full URLs.
	assert.Contains(t, event.EventURL, "https://singularity.events/event/")
	assert.Contains(t, event.BotURL, "/bot-scores")
}

func TestCreateEventRejectsMissingName(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateEvent(context.Background(), 1, CreateEventInput{
		Name:               "   ",
		Rounds:             2,
		PointsDistribution: models.Distribution{1},
	})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestCreateEventRejectsImportedTeamWithoutID(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateEvent(context.Background(), 1, CreateEventInput{
		Name:               "Scrims",
		Rounds:             1,
		PointsDistribution: models.Distribution{1},
		Teams:              models.Teams{{Name: "NoID", Creatable: false}},
	})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestStartEventGeneratesTables(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.RoundsTables = models.RoundTables{}
	})

	status, err := f.service.StartEvent(context.Background(), 1, event.UniqueID, NotifyOptions{Notify: true})
	require.NoError(t, err)

	assert.True(t, status.Started)
	assert.False(t, status.Notified) // no channels attached

	stored := f.events.events[event.UniqueID]
	assert.Equal(t, models.StatusOngoing, stored.Status)
	require.Len(t, stored.RoundsTables, 2)
	require.Len(t, f.broadcast.statuses, 1)
	assert.Equal(t, models.StatusOngoing, f.broadcast.statuses[0].status)
}

func TestStartEventAlreadyOngoingKeepsTables(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
		e.RoundsTables[0].Table[0].Kills = 5
	})

	status, err := f.service.StartEvent(context.Background(), 1, event.UniqueID, NotifyOptions{Notify: true})
	require.NoError(t, err)

	assert.True(t, status.Started)
	assert.Equal(t, 5, f.events.events[event.UniqueID].RoundsTables[0].Table[0].Kills)
	assert.Empty(t, f.broadcast.statuses)
}

func TestStartEventCompletedRejected(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusCompleted
		e.CurrentRound = 2
	})

	_, err := f.service.StartEvent(context.Background(), 1, event.UniqueID, NotifyOptions{})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestStartEventNotOwner(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, nil)

	_, err := f.service.StartEvent(context.Background(), 99, event.UniqueID, NotifyOptions{})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func roundRows(kills map[string]int, placements map[string]int) []models.RoundRow {
	rows := []models.RoundRow{
		{UniqueID: "a", Name: "Alpha"},
		{UniqueID: "b", Name: "Bravo"},
	}
	for i := range rows {
		rows[i].Kills = kills[rows[i].UniqueID]
		rows[i].Placement = placements[rows[i].UniqueID]
	}
	return rows
}

func TestEndRoundFoldsStandingsAndAdvances(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
		e.Notify = true
	})
	f.events.attached = []models.Webhook{{ID: 1, WebhookURL: "https://discord.test/hook"}}

	rows := roundRows(map[string]int{"a": 3, "b": 1}, map[string]int{"a": 1, "b": 2})
	status, err := f.service.EndRound(context.Background(), 1, event.UniqueID, 0, rows, NotifyOptions{Notify: true})
	require.NoError(t, err)

	assert.True(t, status.Ended)
	assert.Equal(t, 1, status.CurrentRound)
	assert.True(t, status.Notified)

	stored := f.events.events[event.UniqueID]
	assert.Equal(t, 1, stored.CurrentRound)
	assert.Equal(t, 13.0, stored.StandingsTable[0].Points)
	assert.Equal(t, 7.0, stored.StandingsTable[1].Points)
	assert.Equal(t, rows, stored.RoundsTables[0].Table)

	require.Len(t, f.broadcast.standings, 1)
	assert.Equal(t, 1, f.broadcast.standings[0].round)
	require.Len(t, f.notifier.progress, 1)
	assert.Equal(t, []string{"https://discord.test/hook"}, f.notifier.progress[0])
}

func TestEndRoundWrongRoundLeavesStateUntouched(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
		e.CurrentRound = 1
	})

	rows := roundRows(map[string]int{"a": 3, "b": 1}, map[string]int{"a": 1, "b": 2})
	_, err := f.service.EndRound(context.Background(), 1, event.UniqueID, 0, rows, NotifyOptions{})
	require.ErrorIs(t, err, ErrWrongRound)

	stored := f.events.events[event.UniqueID]
	assert.Equal(t, 1, stored.CurrentRound)
	assert.Zero(t, stored.StandingsTable[0].Points)
	assert.Empty(t, f.broadcast.standings)
}

func TestEndRoundRosterMismatch(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
	})

	rows := []models.RoundRow{
		{UniqueID: "a", Kills: 1, Placement: 1},
		{UniqueID: "ghost", Kills: 2, Placement: 2},
	}
	_, err := f.service.EndRound(context.Background(), 1, event.UniqueID, 0, rows, NotifyOptions{})
	require.ErrorIs(t, err, ErrRosterMismatch)
	assert.Zero(t, f.events.events[event.UniqueID].StandingsTable[0].Points)
}

func TestEndRoundRequiresOngoing(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, nil) // upcoming

	rows := roundRows(nil, nil)
	_, err := f.service.EndRound(context.Background(), 1, event.UniqueID, 0, rows, NotifyOptions{})
	assert.ErrorIs(t, err, ErrEventNotOngoing)
}

func TestSubmitRoundTableReplacesTable(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
	})

	rows := roundRows(map[string]int{"a": 2, "b": 4}, map[string]int{"a": 2, "b": 1})
	err := f.service.SubmitRoundTable(context.Background(), 1, event.UniqueID, 1, rows)
	require.NoError(t, err)

	stored := f.events.events[event.UniqueID]
	assert.Equal(t, rows, stored.RoundsTables[1].Table)
	// Submitting is not ending: standings and round pointer stay put.
	assert.Zero(t, stored.CurrentRound)
	assert.Zero(t, stored.StandingsTable[0].Points)
}

func TestSubmitRoundTableRosterMismatch(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
	})

	err := f.service.SubmitRoundTable(context.Background(), 1, event.UniqueID, 0, []models.RoundRow{{UniqueID: "a"}})
	assert.ErrorIs(t, err, ErrRosterMismatch)
}

func TestEndEventNeverProgressedResetsToUpcoming(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
		e.CurrentRound = 0
	})

	status, err := f.service.EndEvent(context.Background(), 1, event.UniqueID, NotifyOptions{Notify: true})
	require.NoError(t, err)

	assert.False(t, status.Ended)
	assert.False(t, status.Notified)

	stored := f.events.events[event.UniqueID]
	assert.Equal(t, models.StatusUpcoming, stored.Status)
	assert.Empty(t, stored.RoundsTables)
	assert.Empty(t, f.notifier.ended)
}

func TestEndEventCompletesAndNotifies(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
		e.CurrentRound = 2
		e.Notify = true
	})
	f.events.attached = []models.Webhook{{ID: 1, WebhookURL: "https://discord.test/hook"}}

	status, err := f.service.EndEvent(context.Background(), 1, event.UniqueID, NotifyOptions{Notify: true})
	require.NoError(t, err)

	assert.True(t, status.Ended)
	assert.True(t, status.Notified)
	assert.Equal(t, models.StatusCompleted, f.events.events[event.UniqueID].Status)
	require.Len(t, f.notifier.ended, 1)
}

func TestEndEventFutureDatetimeSkipsNotification(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
		e.CurrentRound = 2
		e.Notify = true
		e.Datetime = time.Now().UTC().Add(24 * time.Hour)
	})
	f.events.attached = []models.Webhook{{ID: 1, WebhookURL: "https://discord.test/hook"}}

	status, err := f.service.EndEvent(context.Background(), 1, event.UniqueID, NotifyOptions{Notify: true})
	require.NoError(t, err)

	assert.True(t, status.Ended)
	assert.False(t, status.Notified)
	assert.Equal(t, models.StatusCompleted, f.events.events[event.UniqueID].Status)
	assert.Empty(t, f.notifier.ended)
}

func TestDeliveryFailureReportsNotNotified(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Notify = true
	})
	f.events.attached = []models.Webhook{{ID: 1, WebhookURL: "https://discord.test/hook"}}
	f.notifier.fail = true

	status, err := f.service.StartEvent(context.Background(), 1, event.UniqueID, NotifyOptions{Notify: true})
	require.NoError(t, err)

	assert.True(t, status.Started)
	assert.False(t, status.Notified)
	assert.Equal(t, models.StatusOngoing, f.events.events[event.UniqueID].Status)
}

func TestBotScoresUpcomingEvent(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, nil)

	line, err := f.service.BotScores(context.Background(), event.UniqueID)
	require.NoError(t, err)
	assert.Contains(t, line, "has not started yet")
}

func TestBotScoresRankedLine(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.Status = models.StatusOngoing
		e.CurrentRound = 1
		e.StandingsTable = models.StandingsTable{
			{UniqueID: "a", Name: "Alpha", Points: 7},
			{UniqueID: "b", Name: "Bravo", Points: 13},
		}
	})

	line, err := f.service.BotScores(context.Background(), event.UniqueID)
	require.NoError(t, err)
	assert.Contains(t, line, "1/2 rounds played")
	assert.Contains(t, line, "🥇 Bravo 13pts")
	assert.Contains(t, line, "🥈 Alpha 7pts")
}

func TestGetLobbyCodeOwnerOnly(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.LobbyCode = "1234"
	})

	code, err := f.service.GetLobbyCode(context.Background(), 1, event.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, "1234", code)

	_, err = f.service.GetLobbyCode(context.Background(), 2, event.UniqueID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func seedOwnedChannels(f *fixture, ownerID int, count int) {
	for i := 1; i <= count; i++ {
		f.webhooks.nextID++
		f.webhooks.hooks = append(f.webhooks.hooks, models.Webhook{
			ID:       f.webhooks.nextID,
			UniqueID: fmt.Sprintf("wh-%d", i),
			Server:   "Server",
			Channel:  "announcements",
			OwnerID:  ownerID,
		})
	}
}

func TestUpdateWebhooksCapCountsResultingAttachments(t *testing.T) {
	f := newFixture()
	seedOwnedChannels(f, 1, models.WebhooksPerEventLimit+2)
	event := seedEvent(f, func(e *models.Event) {
		for i := 1; i <= models.WebhooksPerEventLimit; i++ {
			e.WebhookIDs = append(e.WebhookIDs, int64(i))
		}
	})

	// Removing an owned channel that is not attached frees no slot.
	err := f.service.UpdateWebhooks(context.Background(), 1, event.UniqueID, WebhooksInput{
		Add:    []string{fmt.Sprintf("wh-%d", models.WebhooksPerEventLimit+2)},
		Remove: []string{fmt.Sprintf("wh-%d", models.WebhooksPerEventLimit+1)},
	})
	require.ErrorIs(t, err, ErrWebhookEventLimit)
	assert.Len(t, event.WebhookIDs, models.WebhooksPerEventLimit)

	// Removing an attached one does.
	err = f.service.UpdateWebhooks(context.Background(), 1, event.UniqueID, WebhooksInput{
		Add:    []string{fmt.Sprintf("wh-%d", models.WebhooksPerEventLimit+2)},
		Remove: []string{"wh-1"},
	})
	require.NoError(t, err)
	assert.Len(t, event.WebhookIDs, models.WebhooksPerEventLimit)
	assert.NotContains(t, event.WebhookIDs, int64(1))
	assert.Contains(t, event.WebhookIDs, int64(models.WebhooksPerEventLimit+2))
}

func TestUpdateWebhooksReaddingAttachedChannelKeepsCap(t *testing.T) {
	f := newFixture()
	seedOwnedChannels(f, 1, models.WebhooksPerEventLimit)
	event := seedEvent(f, func(e *models.Event) {
		for i := 1; i <= models.WebhooksPerEventLimit; i++ {
			e.WebhookIDs = append(e.WebhookIDs, int64(i))
		}
	})

	// Re-adding an already-attached channel leaves the set at the cap.
	err := f.service.UpdateWebhooks(context.Background(), 1, event.UniqueID, WebhooksInput{
		Add: []string{"wh-1"},
	})
	require.NoError(t, err)
	assert.Len(t, event.WebhookIDs, models.WebhooksPerEventLimit)
}

func TestListRejectsEmptyFilteredQuery(t *testing.T) {
	f := newFixture()

	_, err := f.service.Explore(context.Background(), ListQuery{Action: "FILTERED"})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture()

	_, err := f.service.Explore(context.Background(), ListQuery{
		Action:   "FILTERED",
		Statuses: []int{9},
	})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestPublicViewRedaction(t *testing.T) {
	f := newFixture()
	event := seedEvent(f, func(e *models.Event) {
		e.LobbyCode = "Lobby 99"
		e.BotURL = "https://sngty.io/bot"
	})

	detail, err := f.service.GetEventDetail(context.Background(), event.UniqueID)
	require.NoError(t, err)

	hidden := PublicView(detail, "")
	assert.Empty(t, hidden.LobbyCode)

	unlocked := PublicView(detail, "lobby99")
	assert.Equal(t, "Lobby 99", unlocked.LobbyCode)

	wrong := PublicView(detail, "lobby42")
	assert.Empty(t, wrong.LobbyCode)
}
