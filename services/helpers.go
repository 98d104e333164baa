package services

import (
	"fmt"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/Meshu-webDEV/singularity-api/utils"
)

// stampTeams assigns short unique ids to creatable teams that arrive without
// one. Imported teams must already carry an id.
func stampTeams(teams models.Teams) (models.Teams, error) {
	stamped := make(models.Teams, len(teams))
	copy(stamped, teams)
	for i := range stamped {
		if stamped[i].UniqueID != "" {
			continue
		}
		if !stamped[i].Creatable {
			return nil, fmt.Errorf("%w: team %q has no id", ErrMalformedInput, stamped[i].Name)
		}
		id, err := utils.NewUniqueID(utils.TeamIDSize)
		if err != nil {
			return nil, fmt.Errorf("stamp team id: %w", err)
		}
		stamped[i].UniqueID = id
	}
	return stamped, nil
}

// dayBounds widens a date pair to the full UTC days they fall in, so a range
// filter of [Jan 3, Jan 5] matches events any time on Jan 5.
func dayBounds(from, to time.Time) (time.Time, time.Time) {
	from = from.UTC()
	to = to.UTC()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	return start, end
}
