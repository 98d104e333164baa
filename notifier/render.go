package notifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Meshu-webDEV/singularity-api/models"
)

// rankMarkers decorate the podium in rendered standings.
var rankMarkers = []string{"🥇", "🥈", "🥉"}

// SortedStandings returns a copy ordered by points descending. Ties keep
// their roster order.
func SortedStandings(standings models.StandingsTable) models.StandingsTable {
	sorted := make(models.StandingsTable, len(standings))
	copy(sorted, standings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Points > sorted[j].Points
	})
	return sorted
}

// FormatStandings renders ranked standings joined by sep. The top three rows
// get medal markers, the rest their numeric rank.
func FormatStandings(standings models.StandingsTable, sep string) string {
	sorted := SortedStandings(standings)
	lines := make([]string, 0, len(sorted))
	for i, row := range sorted {
		marker := fmt.Sprintf("#%d", i+1)
		if i < len(rankMarkers) {
			marker = rankMarkers[i]
		}
		lines = append(lines, fmt.Sprintf("%s %s %spts", marker, row.Name, formatPoints(row.Points)))
	}
	return strings.Join(lines, sep)
}

// formatPoints trims trailing zeros so whole scores render without decimals.
func formatPoints(points float64) string {
	return strconv.FormatFloat(points, 'f', -1, 64)
}
