package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/lib/pq"
)

var (
	ErrInvalidListAction = errors.New("unsupported listing action")
	ErrEmptyFilters      = errors.New("filtered listing requires at least one filter")
)

// DefaultListLimit is the page size used when a listing asks for none.
const DefaultListLimit = 8

// ListScope selects the base match every listing starts from.
type ListScope int

const (
	// ScopeExplore: public, non-deleted events, for anybody.
	ScopeExplore ListScope = iota
	// ScopeOwner: every non-deleted event owned by the caller.
	ScopeOwner
	// ScopeOrganizer: the public events of one organizer, for anybody.
	ScopeOrganizer
)

// SearchAction is the client-declared listing kind.
type SearchAction string

const (
	ActionInitial  SearchAction = "INITIAL"
	ActionSearch   SearchAction = "SEARCH"
	ActionFiltered SearchAction = "FILTERED"
)

// EventFilters carries the three independent, optional filter dimensions of a
// FILTERED listing. Presence is truthiness: empty term, nil range bounds and
// an empty status set all mean "not filtering on this".
type EventFilters struct {
	Term     string
	From     *time.Time
	To       *time.Time
	Statuses []models.EventStatus
}

type ListParams struct {
	Scope   ListScope
	OwnerID int
	Action  SearchAction
	Filters EventFilters
	Skip    int
	Limit   int
	Sort    string
}

type Pagination struct {
	Total       int  `json:"total"`
	Remaining   int  `json:"remaining"`
	HasMore     bool `json:"hasMore"`
	ResultCount int  `json:"resultCount"`
}

// ListStats are the dashboard counters computed alongside owner listings.
type ListStats struct {
	Total     int `json:"total"`
	Ongoing   int `json:"ongoing"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
}

// EventSummary is the listing projection of an event.
type EventSummary struct {
	UniqueID          string              `json:"uniqueid"`
	Name              string              `json:"name"`
	Datetime          time.Time           `json:"datetime"`
	Rounds            int                 `json:"rounds"`
	CurrentRound      int                 `json:"currentRound"`
	Status            models.EventStatus  `json:"status"`
	HasPrizepool      bool                `json:"hasPrizepool"`
	Prizepool         float64             `json:"prizepool"`
	PrizepoolCurrency string              `json:"prizepoolCurrency"`
	IsPublic          bool                `json:"isPublic"`
	BotURL            string              `json:"botUrl,omitempty"`
	Owner             models.OwnerSummary `json:"owner"`
}

type ListResult struct {
	Events     []EventSummary `json:"events"`
	Pagination Pagination     `json:"pagination"`
	Stats      *ListStats     `json:"stats,omitempty"`
}

// NewPagination computes the uniform pagination envelope.
func NewPagination(total, skip, limit, resultCount int) Pagination {
	remaining := total - (skip + limit)
	if remaining < 0 {
		remaining = 0
	}
	return Pagination{
		Total:       total,
		Remaining:   remaining,
		HasMore:     remaining != 0,
		ResultCount: resultCount,
	}
}

// NormalizePage clamps paging inputs instead of rejecting them: a negative
// skip becomes 0, a non-positive limit falls back to the endpoint default.
func NormalizePage(skip, limit, defaultLimit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return skip, limit
}

// NormalizeSort accepts only asc/desc and defaults to asc.
func NormalizeSort(sort string) string {
	if sort != "asc" && sort != "desc" {
		return "asc"
	}
	return sort
}

// condBuilder accumulates WHERE conditions with positional args.
type condBuilder struct {
	conds []string
	args  []interface{}
}

// addf appends a condition; each %s in format is replaced with the next
// positional placeholder.
func (b *condBuilder) addf(format string, args ...interface{}) {
	placeholders := make([]interface{}, len(args))
	for i := range args {
		b.args = append(b.args, args[i])
		placeholders[i] = fmt.Sprintf("$%d", len(b.args))
	}
	b.conds = append(b.conds, fmt.Sprintf(format, placeholders...))
}

func (b *condBuilder) where() string {
	return strings.Join(b.conds, " AND ")
}

func addTermCond(b *condBuilder, f EventFilters) {
	b.addf("e.name ILIKE %s", "%"+f.Term+"%")
}

func addRangeCond(b *condBuilder, f EventFilters) {
	b.addf("e.datetime BETWEEN %s AND %s", f.From.UTC(), f.To.UTC())
}

func addStatusCond(b *condBuilder, f EventFilters) {
	statuses := make([]int64, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, int64(s))
	}
	b.addf("e.status = ANY(%s)", pq.Array(statuses))
}

// filterKey is the presence triple of a FILTERED listing.
type filterKey struct {
	hasTerm   bool
	hasRange  bool
	hasStatus bool
}

func (f EventFilters) key() filterKey {
	return filterKey{
		hasTerm:   f.Term != "",
		hasRange:  f.From != nil && f.To != nil,
		hasStatus: len(f.Statuses) > 0,
	}
}

// filterBranches maps each valid presence combination to its pipeline
// builder. Seven combinations are valid; the all-false triple is absent on
// purpose and resolves to ErrEmptyFilters. Keeping this a lookup table (and
// not nested conditionals) makes the branch set exhaustively testable.
var filterBranches = map[filterKey]func(*condBuilder, EventFilters){
	{true, true, true}:   func(b *condBuilder, f EventFilters) { addTermCond(b, f); addRangeCond(b, f); addStatusCond(b, f) },
	{true, true, false}:  func(b *condBuilder, f EventFilters) { addTermCond(b, f); addRangeCond(b, f) },
	{true, false, true}:  func(b *condBuilder, f EventFilters) { addTermCond(b, f); addStatusCond(b, f) },
	{false, true, true}:  func(b *condBuilder, f EventFilters) { addRangeCond(b, f); addStatusCond(b, f) },
	{true, false, false}: func(b *condBuilder, f EventFilters) { addTermCond(b, f) },
	{false, true, false}: func(b *condBuilder, f EventFilters) { addRangeCond(b, f) },
	{false, false, true}: func(b *condBuilder, f EventFilters) { addStatusCond(b, f) },
}

// buildListConditions assembles the full WHERE for a listing: the scope's
// base match first, then the action's additional conditions.
func buildListConditions(params ListParams) (*condBuilder, error) {
	b := &condBuilder{}
	b.conds = append(b.conds, "e.is_deleted = FALSE")

	switch params.Scope {
	case ScopeExplore:
		b.conds = append(b.conds, "e.is_public = TRUE")
	case ScopeOwner:
		b.addf("e.owner_id = %s", params.OwnerID)
	case ScopeOrganizer:
		b.conds = append(b.conds, "e.is_public = TRUE")
		b.addf("e.owner_id = %s", params.OwnerID)
	default:
		return nil, fmt.Errorf("unknown listing scope %d", params.Scope)
	}

	switch params.Action {
	case ActionInitial:
		// base match only
	case ActionSearch:
		addTermCond(b, params.Filters)
	case ActionFiltered:
		branch, ok := filterBranches[params.Filters.key()]
		if !ok {
			return nil, ErrEmptyFilters
		}
		branch(b, params.Filters)
	default:
		return nil, ErrInvalidListAction
	}

	return b, nil
}

// List executes a composed listing: match, sort by status then datetime,
// paginate, join the owner, and count the same predicate for the envelope.
// An empty result is a well-formed zeroed envelope, never an error.
func (r *postgresEventRepository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	params.Skip, params.Limit = NormalizePage(params.Skip, params.Limit, DefaultListLimit)
	params.Sort = NormalizeSort(params.Sort)

	b, err := buildListConditions(params)
	if err != nil {
		return nil, err
	}

	dir := "ASC"
	if params.Sort == "desc" {
		dir = "DESC"
	}

	args := append([]interface{}{}, b.args...)
	pageQuery := fmt.Sprintf(`
		SELECT
			e.uniqueid, e.name, e.datetime, e.rounds, e.current_round, e.status,
			e.has_prizepool, e.prizepool, e.prizepool_currency, e.is_public, e.bot_url,
			u.id, u.username, u.display_name, u.organization_status, u.organization_name
		FROM events e
		JOIN users u ON u.id = e.owner_id
		WHERE %s
		ORDER BY e.status ASC, e.datetime %s
		LIMIT $%d OFFSET $%d`,
		b.where(), dir, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Skip)

	rows, err := r.db.QueryContext(ctx, pageQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]EventSummary, 0, params.Limit)
	for rows.Next() {
		var s EventSummary
		if scanErr := rows.Scan(
			&s.UniqueID, &s.Name, &s.Datetime, &s.Rounds, &s.CurrentRound, &s.Status,
			&s.HasPrizepool, &s.Prizepool, &s.PrizepoolCurrency, &s.IsPublic, &s.BotURL,
			&s.Owner.ID, &s.Owner.Username, &s.Owner.DisplayName,
			&s.Owner.OrganizationStatus, &s.Owner.OrganizationName,
		); scanErr != nil {
			return nil, scanErr
		}
		if params.Scope != ScopeOwner {
			s.BotURL = ""
		}
		events = append(events, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Events: events}

	if params.Scope == ScopeOwner {
		// Dashboard counters ride the same predicate in a single pass.
		statsQuery := fmt.Sprintf(`
			SELECT
				COUNT(*),
				COUNT(*) FILTER (WHERE e.status = %d),
				COUNT(*) FILTER (WHERE e.status = %d),
				COUNT(*) FILTER (WHERE e.status = %d)
			FROM events e
			WHERE %s`,
			models.StatusOngoing, models.StatusUpcoming, models.StatusCompleted, b.where())

		stats := &ListStats{}
		if err := r.db.QueryRowContext(ctx, statsQuery, b.args...).Scan(
			&stats.Total, &stats.Ongoing, &stats.Upcoming, &stats.Completed,
		); err != nil {
			return nil, err
		}
		result.Stats = stats
		result.Pagination = NewPagination(stats.Total, params.Skip, params.Limit, len(events))
		return result, nil
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM events e WHERE %s`, b.where())
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, b.args...).Scan(&total); err != nil {
		return nil, err
	}
	result.Pagination = NewPagination(total, params.Skip, params.Limit, len(events))
	return result, nil
}
