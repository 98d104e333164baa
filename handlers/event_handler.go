package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Meshu-webDEV/singularity-api/middleware"
	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/Meshu-webDEV/singularity-api/services"
	"github.com/go-chi/chi/v5"
)

type EventHandler struct {
	events services.EventService
}

func NewEventHandler(events services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

type createEventRequest struct {
	Name                  string              `json:"name"`
	Description           string              `json:"description"`
	Datetime              time.Time           `json:"datetime"`
	IsPublic              bool                `json:"isPublic"`
	Rounds                int                 `json:"rounds"`
	PointPerKill          float64             `json:"pointPerKill"`
	PointsDistribution    models.Distribution `json:"pointsDistribution"`
	Teams                 models.Teams        `json:"teams"`
	ShouldCreateTeams     bool                `json:"shouldCreateTeams"`
	HasPrizepool          bool                `json:"hasPrizepool"`
	Prizepool             float64             `json:"prizepool"`
	PrizepoolCurrency     string              `json:"prizepoolCurrency"`
	PrizepoolDistribution models.Distribution `json:"prizepoolDistribution"`
	LobbyCode             string              `json:"lobbyCode"`
	Notify                bool                `json:"notify"`
	DiscordWebhooks       []string            `json:"discordWebhooks"`
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var req createEventRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.events.CreateEvent(r.Context(), userID, services.CreateEventInput{
		Name:                  req.Name,
		Description:           req.Description,
		Datetime:              req.Datetime,
		IsPublic:              req.IsPublic,
		Rounds:                req.Rounds,
		PointPerKill:          req.PointPerKill,
		PointsDistribution:    req.PointsDistribution,
		Teams:                 req.Teams,
		ShouldCreateTeams:     req.ShouldCreateTeams,
		HasPrizepool:          req.HasPrizepool,
		Prizepool:             req.Prizepool,
		PrizepoolCurrency:     req.PrizepoolCurrency,
		PrizepoolDistribution: req.PrizepoolDistribution,
		LobbyCode:             req.LobbyCode,
		Notify:                req.Notify,
		WebhookIDs:            req.DiscordWebhooks,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"event": event}, nil)
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	if err := h.events.DeleteEvent(r.Context(), userID, chi.URLParam(r, "uniqueid")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type basicInfoRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Datetime    time.Time `json:"datetime"`
	Rounds      int       `json:"rounds"`
	IsPublic    bool      `json:"isPublic"`
}

type teamsRequest struct {
	Teams             models.Teams `json:"teams"`
	ShouldCreateTeams bool         `json:"shouldCreateTeams"`
}

type pointsRequest struct {
	PointPerKill       float64             `json:"pointPerKill"`
	PointsDistribution models.Distribution `json:"pointsDistribution"`
}

type prizeRequest struct {
	HasPrizepool          bool                `json:"hasPrizepool"`
	Prizepool             float64             `json:"prizepool"`
	PrizepoolCurrency     string              `json:"prizepoolCurrency"`
	PrizepoolDistribution models.Distribution `json:"prizepoolDistribution"`
}

type lobbyCodeRequest struct {
	LobbyCode string `json:"lobbyCode"`
}

type notifyRequest struct {
	Notify bool `json:"notify"`
}

type webhooksRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// UpdateCriteria dispatches the per-criteria partial updates.
func (h *EventHandler) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	uniqueid := chi.URLParam(r, "uniqueid")

	switch criteria := chi.URLParam(r, "criteria"); criteria {
	case "basic-info":
		var req basicInfoRequest
		if err = readJSON(w, r, &req); err == nil {
			err = h.events.UpdateBasicInfo(r.Context(), userID, uniqueid, services.BasicInfoInput(req))
		}
	case "teams":
		var req teamsRequest
		if err = readJSON(w, r, &req); err == nil {
			err = h.events.UpdateTeams(r.Context(), userID, uniqueid, services.TeamsInput(req))
		}
	case "points":
		var req pointsRequest
		if err = readJSON(w, r, &req); err == nil {
			err = h.events.UpdatePoints(r.Context(), userID, uniqueid, services.PointsInput(req))
		}
	case "prize":
		var req prizeRequest
		if err = readJSON(w, r, &req); err == nil {
			err = h.events.UpdatePrize(r.Context(), userID, uniqueid, services.PrizeInput(req))
		}
	case "lobby-code":
		var req lobbyCodeRequest
		if err = readJSON(w, r, &req); err == nil {
			err = h.events.UpdateLobbyCode(r.Context(), userID, uniqueid, req.LobbyCode)
		}
	case "notify":
		var req notifyRequest
		if err = readJSON(w, r, &req); err == nil {
			err = h.events.UpdateNotify(r.Context(), userID, uniqueid, req.Notify)
		}
	case "discord-webhooks":
		var req webhooksRequest
		if err = readJSON(w, r, &req); err == nil {
			err = h.events.UpdateWebhooks(r.Context(), userID, uniqueid, services.WebhooksInput(req))
		}
	default:
		badRequestResponse(w, r, fmt.Errorf("unknown update criteria %q", criteria))
		return
	}

	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) StartEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	status, err := h.events.StartEvent(r.Context(), userID, chi.URLParam(r, "uniqueid"), notifyOptionsFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status, nil)
}

func (h *EventHandler) EndEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	status, err := h.events.EndEvent(r.Context(), userID, chi.URLParam(r, "uniqueid"), notifyOptionsFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status, nil)
}

type roundTableRequest struct {
	Table []models.RoundRow `json:"table"`
}

func (h *EventHandler) UpdateRoundTable(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	round, err := roundParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req roundTableRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.events.SubmitRoundTable(r.Context(), userID, chi.URLParam(r, "uniqueid"), round, req.Table); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) EndRound(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	round, err := roundParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req roundTableRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	status, err := h.events.EndRound(r.Context(), userID, chi.URLParam(r, "uniqueid"), round, req.Table, notifyOptionsFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status, nil)
}

func (h *EventHandler) AutoStart(w http.ResponseWriter, r *http.Request) {
	updated, err := h.events.AutoStart(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"updated": updated}, nil)
}

func (h *EventHandler) AutoEnd(w http.ResponseWriter, r *http.Request) {
	updated, err := h.events.AutoEnd(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"updated": updated}, nil)
}

type listRequest struct {
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
	Sort  string `json:"sort"`
	Meta  struct {
		Type    string `json:"type"`
		Filters struct {
			Term   string     `json:"term"`
			Gte    *time.Time `json:"gte"`
			Lte    *time.Time `json:"lte"`
			Status []int      `json:"status"`
		} `json:"filters"`
	} `json:"meta"`
}

func (req listRequest) toQuery() services.ListQuery {
	action := req.Meta.Type
	if action == "" {
		action = "INITIAL"
	}
	return services.ListQuery{
		Action:   action,
		Term:     req.Meta.Filters.Term,
		From:     req.Meta.Filters.Gte,
		To:       req.Meta.Filters.Lte,
		Statuses: req.Meta.Filters.Status,
		Skip:     req.Skip,
		Limit:    req.Limit,
		Sort:     req.Sort,
	}
}

func (h *EventHandler) Explore(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	result, err := h.events.Explore(r.Context(), req.toQuery())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result, nil)
}

func (h *EventHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	var req listRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	result, err := h.events.MyEvents(r.Context(), userID, req.toQuery())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result, nil)
}

func (h *EventHandler) ByOrganizer(w http.ResponseWriter, r *http.Request) {
	organizerID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("invalid organizer id"))
		return
	}
	var req listRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	result, err := h.events.ByOrganizer(r.Context(), organizerID, req.toQuery())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result, nil)
}

func (h *EventHandler) LiveEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.LiveEvents(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil)
}

type byDatesRequest struct {
	Gte time.Time `json:"gte"`
}

func (h *EventHandler) EventsBetween(w http.ResponseWriter, r *http.Request) {
	var req byDatesRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	dates, err := h.events.EventsBetween(r.Context(), req.Gte)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"events": dates}, nil)
}

func (h *EventHandler) CountEvents(w http.ResponseWriter, r *http.Request) {
	total, err := h.events.CountEvents(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"total": total}, nil)
}

// GetEvent serves the authenticated read: owners get the full aggregate,
// everyone else the redacted public view.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	detail, err := h.events.GetEventDetail(r.Context(), chi.URLParam(r, "uniqueid"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if detail.OwnerID == userID {
		writeJSON(w, http.StatusOK, jsonResponse{"isOwner": true, "event": detail}, nil)
		return
	}
	view := services.PublicView(detail, r.URL.Query().Get("code"))
	writeJSON(w, http.StatusOK, jsonResponse{"isOwner": false, "event": view}, nil)
}

func (h *EventHandler) GetPublicEvent(w http.ResponseWriter, r *http.Request) {
	detail, err := h.events.GetEventDetail(r.Context(), chi.URLParam(r, "uniqueid"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	view := services.PublicView(detail, r.URL.Query().Get("code"))
	writeJSON(w, http.StatusOK, jsonResponse{"isOwner": false, "event": view}, nil)
}

func (h *EventHandler) GetLobbyCode(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	code, err := h.events.GetLobbyCode(r.Context(), userID, chi.URLParam(r, "uniqueid"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"lobbyCode": code}, nil)
}

// BotScores answers plain text so chat bots can relay the line verbatim.
func (h *EventHandler) BotScores(w http.ResponseWriter, r *http.Request) {
	line, err := h.events.BotScores(r.Context(), chi.URLParam(r, "uniqueid"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(line))
}

func roundParam(r *http.Request) (int, error) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 0 {
		return 0, fmt.Errorf("invalid round number")
	}
	return round, nil
}

// notifyOptionsFromQuery reads the lifecycle notification switches:
// ?notify=false suppresses everything, ?webhookUrls= adds ad-hoc targets
// (repeatable, comma-separated values accepted).
func notifyOptionsFromQuery(r *http.Request) services.NotifyOptions {
	query := r.URL.Query()
	opts := services.NotifyOptions{Notify: query.Get("notify") != "false"}
	for _, raw := range query["webhookUrls"] {
		for _, url := range strings.Split(raw, ",") {
			if url = strings.TrimSpace(url); url != "" {
				opts.WebhookURLs = append(opts.WebhookURLs, url)
			}
		}
	}
	return opts
}
