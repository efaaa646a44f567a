package scoring

import (
	"reflect"
	"testing"
	"time"
)

func computationWith(composite, demographic, behavioral, engagement int) Computation {
	return Computation{
		CompositeScore:   composite,
		DemographicScore: DemographicScore{Total: demographic},
		BehavioralScore:  BehavioralScore{Total: behavioral},
		EngagementScore:  EngagementScore{Total: engagement},
	}
}

func TestTrackHistoryInitialEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := TrackHistory(nil, computationWith(62, 70, 60, 55), now)
	if entry == nil {
		t.Fatal("expected an initial entry")
	}
	if entry.Reason != ReasonInitial || entry.Score != 62 || !entry.Date.Equal(now) {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !reflect.DeepEqual(entry.ChangedFields, []string{ChangedAll}) {
		t.Fatalf("expected [all], got %v", entry.ChangedFields)
	}
}

func TestTrackHistorySkipsSmallMoves(t *testing.T) {
	prev := computationWith(60, 70, 60, 50)
	for _, next := range []int{56, 57, 60, 63, 64} {
		if entry := TrackHistory(&prev, computationWith(next, 70, 60, 50), time.Now()); entry != nil {
			t.Fatalf("composite %d: expected no entry, got %+v", next, entry)
		}
	}
}

func TestTrackHistoryRecordsSignificantMoves(t *testing.T) {
	prev := computationWith(60, 70, 60, 50)

	entry := TrackHistory(&prev, computationWith(65, 71, 72, 48), time.Now())
	if entry == nil {
		t.Fatal("expected an entry for a 5 point move")
	}
	if entry.Reason != ReasonAutomated || entry.Score != 65 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !reflect.DeepEqual(entry.ChangedFields, []string{ChangedBehavioral, ChangedEngagement}) {
		t.Fatalf("unexpected changed fields %v", entry.ChangedFields)
	}

	down := TrackHistory(&prev, computationWith(55, 60, 60, 50), time.Now())
	if down == nil || !reflect.DeepEqual(down.ChangedFields, []string{ChangedDemographic}) {
		t.Fatalf("expected demographic-only entry for a drop, got %+v", down)
	}
}

func TestChangedFieldsMayBeEmpty(t *testing.T) {
	got := ChangedFields(computationWith(60, 70, 60, 50), computationWith(65, 71, 61, 51))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
