// Package scoring holds the pure round-scoring arithmetic: computing per-round
// point deltas from a submitted table and folding them into the cumulative
// standings. Nothing here touches the database.
package scoring

import (
	"fmt"

	"github.com/Meshu-webDEV/singularity-api/models"
)

// Delta is one team's earned points for a single round.
type Delta struct {
	UniqueID string
	Name     string
	Points   float64
}

// ComputeRoundDeltas scores every row of a round table. Kills are worth
// pointPerKill each; placement points come from the distribution table,
// 1-based placement mapping to index placement-1. A placement below 1 means
// the team never got one recorded and scores the worst slot, the last index
// of the distribution. That is a policy, not an error.
func ComputeRoundDeltas(table models.RoundTable, pointPerKill float64, distribution []float64) []Delta {
	deltas := make([]Delta, 0, len(table.Table))
	for _, row := range table.Table {
		idx := row.Placement - 1
		if row.Placement < 1 || idx >= len(distribution) {
			idx = len(distribution) - 1
		}
		var placementPoints float64
		if idx >= 0 {
			placementPoints = distribution[idx]
		}
		deltas = append(deltas, Delta{
			UniqueID: row.UniqueID,
			Name:     row.Name,
			Points:   float64(row.Kills)*pointPerKill + placementPoints,
		})
	}
	return deltas
}

// FoldIntoStandings adds each delta onto the matching standings row and
// returns a new table; the input is not mutated. A delta referencing a team
// absent from the standings is an input-consistency failure: membership is
// validated when the round table is submitted, so hitting it here means state
// has diverged and nothing is folded.
func FoldIntoStandings(standings models.StandingsTable, deltas []Delta) (models.StandingsTable, error) {
	next := make(models.StandingsTable, len(standings))
	copy(next, standings)

	index := make(map[string]int, len(next))
	for i, row := range next {
		index[row.UniqueID] = i
	}

	for _, d := range deltas {
		i, ok := index[d.UniqueID]
		if !ok {
			return nil, fmt.Errorf("delta references unknown team %q", d.UniqueID)
		}
		next[i].Points += d.Points
	}
	return next, nil
}

// GenerateStandings builds the zeroed cumulative table for a roster.
func GenerateStandings(teams models.Teams) models.StandingsTable {
	standings := make(models.StandingsTable, 0, len(teams))
	for _, team := range teams {
		standings = append(standings, models.StandingsRow{
			UniqueID: team.UniqueID,
			Name:     team.Name,
			Points:   0,
		})
	}
	return standings
}

// GenerateRoundTables synthesizes one zero-initialized table per round.
func GenerateRoundTables(teams models.Teams, rounds int) models.RoundTables {
	tables := make(models.RoundTables, 0, rounds)
	for i := 0; i < rounds; i++ {
		tables = append(tables, models.RoundTable{
			Round: i,
			Table: generateSingleRoundTable(teams),
		})
	}
	return tables
}

func generateSingleRoundTable(teams models.Teams) []models.RoundRow {
	rows := make([]models.RoundRow, 0, len(teams))
	for _, team := range teams {
		rows = append(rows, models.RoundRow{
			UniqueID:  team.UniqueID,
			Name:      team.Name,
			Kills:     0,
			Placement: 0,
		})
	}
	return rows
}

// SameTeamSet reports whether a submitted round table covers exactly the
// roster's team ids, regardless of order.
func SameTeamSet(teams models.Teams, rows []models.RoundRow) bool {
	if len(teams) != len(rows) {
		return false
	}
	want := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		want[t.UniqueID] = struct{}{}
	}
	for _, r := range rows {
		if _, ok := want[r.UniqueID]; !ok {
			return false
		}
		delete(want, r.UniqueID)
	}
	return len(want) == 0
}
