package scoring

import "time"

const (
	ReasonInitial   = "Initial score calculation"
	ReasonAutomated = "Automated score update"

	ChangedAll         = "all"
	ChangedDemographic = "demographic"
	ChangedBehavioral  = "behavioral"
	ChangedEngagement  = "engagement"

	// SignificantCompositeDelta is the composite movement that earns a history entry.
	SignificantCompositeDelta = 5
	// SignificantSubScoreDelta is the sub-score movement that lists a field as changed.
	SignificantSubScoreDelta = 2
)

// TrackHistory decides which history entry, if any, a rescoring produces.
// A nil previous means the lead is scored for the first time.
func TrackHistory(previous *Computation, next Computation, now time.Time) *HistoryEntry {
	if previous == nil {
		return &HistoryEntry{
			Date:          now,
			Score:         next.CompositeScore,
			Reason:        ReasonInitial,
			ChangedFields: []string{ChangedAll},
		}
	}

	if absInt(previous.CompositeScore-next.CompositeScore) < SignificantCompositeDelta {
		return nil
	}

	return &HistoryEntry{
		Date:          now,
		Score:         next.CompositeScore,
		Reason:        ReasonAutomated,
		ChangedFields: ChangedFields(*previous, next),
	}
}

// ChangedFields lists the sub-scores whose totals moved by at least two points.
func ChangedFields(previous, next Computation) []string {
	changed := make([]string, 0, 3)
	if absInt(previous.DemographicScore.Total-next.DemographicScore.Total) >= SignificantSubScoreDelta {
		changed = append(changed, ChangedDemographic)
	}
	if absInt(previous.BehavioralScore.Total-next.BehavioralScore.Total) >= SignificantSubScoreDelta {
		changed = append(changed, ChangedBehavioral)
	}
	if absInt(previous.EngagementScore.Total-next.EngagementScore.Total) >= SignificantSubScoreDelta {
		changed = append(changed, ChangedEngagement)
	}
	return changed
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
