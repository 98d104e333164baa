package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventStatus mirrors the numeric status stored in the events table. The
// numeric order is load-bearing: listings sort by status ascending, which puts
// live events first, then upcoming, then completed.
type EventStatus int

const (
	StatusOngoing   EventStatus = 0
	StatusUpcoming  EventStatus = 1
	StatusCompleted EventStatus = 2
)

// eventTransitions is the closed set of allowed forward transitions. The
// downgrade of a never-started event (Completed requested while
// currentRound == 0) is handled by the service, not the table.
var eventTransitions = map[EventStatus][]EventStatus{
	StatusUpcoming:  {StatusOngoing, StatusCompleted},
	StatusOngoing:   {StatusCompleted},
	StatusCompleted: {},
}

func (s EventStatus) Valid() bool {
	switch s {
	case StatusOngoing, StatusUpcoming, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move to next. Same-status
// requests are allowed so repeated lifecycle calls stay idempotent upstream.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range eventTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

func (s EventStatus) String() string {
	switch s {
	case StatusOngoing:
		return "ongoing"
	case StatusUpcoming:
		return "upcoming"
	case StatusCompleted:
		return "completed"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Team is embedded in the event roster. Creatable teams get a short uniqueid
// stamped at create/update time; imported teams arrive with one.
type Team struct {
	UniqueID  string   `json:"uniqueid"`
	Name      string   `json:"name"`
	Players   []string `json:"players,omitempty"`
	Creatable bool     `json:"creatable,omitempty"`
}

// RoundRow is a single team's submission for one round. A placement of 0 (or
// anything below 1) means "unset" and scores as the worst distribution slot.
type RoundRow struct {
	UniqueID  string `json:"uniqueid"`
	Name      string `json:"name"`
	Kills     int    `json:"kills"`
	Placement int    `json:"placement"`
}

// RoundTable holds the per-team rows for one round, 0-indexed.
type RoundTable struct {
	Round int        `json:"round"`
	Table []RoundRow `json:"table"`
}

// StandingsRow is a team's cumulative score across completed rounds.
type StandingsRow struct {
	UniqueID string  `json:"uniqueid"`
	Name     string  `json:"name"`
	Points   float64 `json:"points"`
}

type Teams []Team
type RoundTables []RoundTable
type StandingsTable []StandingsRow
type Distribution []float64

// Event is the tournament aggregate. Teams, round tables, standings and the
// points distributions are denormalized JSONB documents owned exclusively by
// the event row; they are never shared between events.
type Event struct {
	ID                    int            `json:"-" db:"id"`
	UniqueID              string         `json:"uniqueid" db:"uniqueid"`
	Name                  string         `json:"name" db:"name"`
	Description           string         `json:"description" db:"description"`
	Datetime              time.Time      `json:"datetime" db:"datetime"`
	IsPublic              bool           `json:"isPublic" db:"is_public"`
	Rounds                int            `json:"rounds" db:"rounds"`
	PointPerKill          float64        `json:"pointPerKill" db:"point_per_kill"`
	PointsDistribution    Distribution   `json:"pointsDistribution" db:"points_distribution"`
	Teams                 Teams          `json:"teams" db:"teams"`
	ShouldCreateTeams     bool           `json:"shouldCreateTeams" db:"should_create_teams"`
	HasPrizepool          bool           `json:"hasPrizepool" db:"has_prizepool"`
	Prizepool             float64        `json:"prizepool" db:"prizepool"`
	RemainingPrizepool    float64        `json:"remainingPrizepool" db:"remaining_prizepool"`
	PrizepoolCurrency     string         `json:"prizepoolCurrency" db:"prizepool_currency"`
	PrizepoolDistribution Distribution   `json:"prizepoolDistribution" db:"prizepool_distribution"`
	LobbyCode             string         `json:"lobbyCode" db:"lobby_code"`
	Notify                bool           `json:"notify" db:"notify"`
	WebhookIDs            []int64        `json:"-" db:"webhook_ids"`
	RoundsTables          RoundTables    `json:"roundsTables" db:"rounds_tables"`
	StandingsTable        StandingsTable `json:"standingsTable" db:"standings_table"`
	CurrentRound          int            `json:"currentRound" db:"current_round"`
	Status                EventStatus    `json:"status" db:"status"`
	BotURL                string         `json:"botUrl" db:"bot_url"`
	EventURL              string         `json:"eventUrl" db:"event_url"`
	OwnerID               int            `json:"-" db:"owner_id"`
	IsDeleted             bool           `json:"-" db:"is_deleted"`
	CreatedAt             time.Time      `json:"createdAt" db:"created_at"`
}

// IsPast reports whether the event's scheduled time has already passed.
func (e *Event) IsPast(now time.Time) bool {
	return e.Datetime.Before(now)
}

// OwnerSummary is the projection of the owning user joined into event reads.
type OwnerSummary struct {
	ID                 int     `json:"_id"`
	Username           string  `json:"username"`
	DisplayName        string  `json:"displayName"`
	OrganizationStatus int     `json:"organization_status"`
	OrganizationName   *string `json:"organizationName,omitempty"`
}

// OrganizerName resolves the display identity used in notifications: the
// organization name for approved organizations, the display name otherwise.
func (o OwnerSummary) OrganizerName() string {
	if o.OrganizationStatus == OrganizationApproved && o.OrganizationName != nil {
		return *o.OrganizationName
	}
	return o.DisplayName
}

// JSONB plumbing for the embedded document columns.

func jsonbValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func jsonbScan(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
	return json.Unmarshal(b, dst)
}

func (t Teams) Value() (driver.Value, error) { return jsonbValue([]Team(t)) }
func (t *Teams) Scan(src interface{}) error  { return jsonbScan(src, (*[]Team)(t)) }

func (r RoundTables) Value() (driver.Value, error) { return jsonbValue([]RoundTable(r)) }
func (r *RoundTables) Scan(src interface{}) error  { return jsonbScan(src, (*[]RoundTable)(r)) }

func (s StandingsTable) Value() (driver.Value, error) { return jsonbValue([]StandingsRow(s)) }
func (s *StandingsTable) Scan(src interface{}) error  { return jsonbScan(src, (*[]StandingsRow)(s)) }

func (d Distribution) Value() (driver.Value, error) { return jsonbValue([]float64(d)) }
func (d *Distribution) Scan(src interface{}) error  { return jsonbScan(src, (*[]float64)(d)) }
