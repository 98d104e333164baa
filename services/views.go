package services

import (
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/Meshu-webDEV/singularity-api/repositories"
	"github.com/Meshu-webDEV/singularity-api/utils"
)

// PublicEvent is the redacted projection served to non-owners. It drops the
// notify flag, the remaining prizepool, team-creation settings, attached
// channels, the visibility flag and the bot URL, and only carries the lobby
// code when the caller already knows it.
type PublicEvent struct {
	UniqueID              string                `json:"uniqueid"`
	Name                  string                `json:"name"`
	Description           string                `json:"description"`
	Datetime              time.Time             `json:"datetime"`
	Rounds                int                   `json:"rounds"`
	CurrentRound          int                   `json:"currentRound"`
	Status                models.EventStatus    `json:"status"`
	PointPerKill          float64               `json:"pointPerKill"`
	PointsDistribution    models.Distribution   `json:"pointsDistribution"`
	Teams                 models.Teams          `json:"teams"`
	HasPrizepool          bool                  `json:"hasPrizepool"`
	Prizepool             float64               `json:"prizepool"`
	PrizepoolCurrency     string                `json:"prizepoolCurrency"`
	PrizepoolDistribution models.Distribution   `json:"prizepoolDistribution"`
	RoundsTables          models.RoundTables    `json:"roundsTables"`
	StandingsTable        models.StandingsTable `json:"standingsTable"`
	LobbyCode             string                `json:"lobbyCode,omitempty"`
	EventURL              string                `json:"eventUrl"`
	CreatedAt             time.Time             `json:"createdAt"`
	Owner                 *models.OwnerSummary  `json:"owner,omitempty"`
}

// PublicView redacts an event detail for a non-owner. suppliedCode unlocks
// the lobby code only when it matches the stored one (loose comparison,
// spacing and case insensitive).
func PublicView(detail *repositories.EventDetail, suppliedCode string) PublicEvent {
	view := publicEventFields(&detail.Event, suppliedCode)
	owner := detail.Owner
	view.Owner = &owner
	return view
}

func publicEventFields(event *models.Event, suppliedCode string) PublicEvent {
	view := PublicEvent{
		UniqueID:              event.UniqueID,
		Name:                  event.Name,
		Description:           event.Description,
		Datetime:              event.Datetime,
		Rounds:                event.Rounds,
		CurrentRound:          event.CurrentRound,
		Status:                event.Status,
		PointPerKill:          event.PointPerKill,
		PointsDistribution:    event.PointsDistribution,
		Teams:                 event.Teams,
		HasPrizepool:          event.HasPrizepool,
		Prizepool:             event.Prizepool,
		PrizepoolCurrency:     event.PrizepoolCurrency,
		PrizepoolDistribution: event.PrizepoolDistribution,
		RoundsTables:          event.RoundsTables,
		StandingsTable:        event.StandingsTable,
		EventURL:              event.EventURL,
		CreatedAt:             event.CreatedAt,
	}
	if event.LobbyCode != "" && suppliedCode != "" &&
		utils.Normalize(suppliedCode) == utils.Normalize(event.LobbyCode) {
		view.LobbyCode = event.LobbyCode
	}
	return view
}
