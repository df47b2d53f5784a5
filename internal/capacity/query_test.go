package capacity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

// testQuery builds a query service over the store with a frozen clock
// before the exam date.
func testQuery(store Store) *Query {
	q := NewQuery(store, Defaults{MaxCapacity: 300, FreeLimit: 150}, time.UTC)
	q.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return q
}

func seed(t *testing.T, store *memStore, session model.SessionTime, free, adv int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < free; i++ {
		_, err := store.ApplyDelta(ctx, session, testDate, model.PackageFree, +1)
		require.NoError(t, err)
	}
	for i := 0; i < adv; i++ {
		_, err := store.ApplyDelta(ctx, session, testDate, model.PackageAdvanced, +1)
		require.NoError(t, err)
	}
}

func TestSessionViewShowsCountsWhileAvailable(t *testing.T) {
	store := newMemStore(300, 150)
	seed(t, store, model.SessionMorning, 10, 5)
	q := testQuery(store)

	view, err := q.SessionView(context.Background(), model.SessionMorning, testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, view.Status)
	assert.False(t, view.HideExact)
	require.NotNil(t, view.TotalCount)
	assert.Equal(t, 15, *view.TotalCount)
	assert.Equal(t, 10, *view.FreeCount)
	assert.Equal(t, 5, *view.AdvancedCount)
	assert.Equal(t, 5, *view.PercentFull)
}

func TestSessionViewHidesCountsWhenLimited(t *testing.T) {
	store := newMemStore(300, 150)
	seed(t, store, model.SessionMorning, 150, 0)
	q := testQuery(store)

	view, err := q.SessionView(context.Background(), model.SessionMorning, testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLimited, view.Status)
	assert.Equal(t, ReasonFreeQuotaExhausted, view.LimitedReason)
	assert.True(t, view.HideExact)
	assert.Nil(t, view.TotalCount)
	assert.Nil(t, view.FreeCount)
	assert.Nil(t, view.AdvancedCount)
	assert.Nil(t, view.PercentFull)
	assert.Contains(t, view.Message, "Advanced packages")
}

func TestSessionViewHidesCountsWhenFull(t *testing.T) {
	store := newMemStore(2, 1)
	seed(t, store, model.SessionMorning, 1, 1)
	q := testQuery(store)

	view, err := q.SessionView(context.Background(), model.SessionMorning, testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFull, view.Status)
	assert.True(t, view.HideExact)
	assert.Nil(t, view.TotalCount)
}

func TestSessionViewUntouchedSession(t *testing.T) {
	// A session nobody registered for is presented with default limits
	// without creating a row.
	store := newMemStore(300, 150)
	q := testQuery(store)

	view, err := q.SessionView(context.Background(), model.SessionAfternoon, testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, view.Status)
	assert.Equal(t, 300, view.MaxCapacity)
	assert.Equal(t, 150, view.FreeLimit)
	require.NotNil(t, view.TotalCount)
	assert.Equal(t, 0, *view.TotalCount)
	assert.Empty(t, store.rows)
}

func TestSessionViewOverlaysClosedFromClock(t *testing.T) {
	store := newMemStore(300, 150)
	seed(t, store, model.SessionMorning, 1, 0)
	q := testQuery(store)
	// Between the two session starts: morning closed, afternoon open.
	q.now = func() time.Time { return time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC) }

	morning, err := q.SessionView(context.Background(), model.SessionMorning, testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, morning.Status)

	afternoon, err := q.SessionView(context.Background(), model.SessionAfternoon, testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, afternoon.Status)
}

func TestDateSummaryRollUp(t *testing.T) {
	testCases := []struct {
		name            string
		morningFree     int
		morningAdv      int
		afternoonFree   int
		afternoonAdv    int
		maxCapacity     int
		freeLimit       int
		expectedOverall model.AvailabilityStatus
	}{
		{
			name:            "both empty rolls up available",
			maxCapacity:     300,
			freeLimit:       150,
			expectedOverall: model.StatusAvailable,
		},
		{
			name:            "one full one available stays available",
			morningFree:     1,
			morningAdv:      1,
			maxCapacity:     2,
			freeLimit:       1,
			expectedOverall: model.StatusAvailable,
		},
		{
			name:            "one full one limited rolls up limited",
			morningFree:     1,
			morningAdv:      1,
			afternoonFree:   1,
			maxCapacity:     2,
			freeLimit:       1,
			expectedOverall: model.StatusLimited,
		},
		{
			name:            "full only when every session is full",
			morningFree:     1,
			morningAdv:      1,
			afternoonFree:   1,
			afternoonAdv:    1,
			maxCapacity:     2,
			freeLimit:       1,
			expectedOverall: model.StatusFull,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore(tc.maxCapacity, tc.freeLimit)
			seed(t, store, model.SessionMorning, tc.morningFree, tc.morningAdv)
			seed(t, store, model.SessionAfternoon, tc.afternoonFree, tc.afternoonAdv)
			q := NewQuery(store, Defaults{MaxCapacity: tc.maxCapacity, FreeLimit: tc.freeLimit}, time.UTC)
			q.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }

			summary, err := q.DateSummary(context.Background(), testDate)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedOverall, summary.Overall)
			assert.Len(t, summary.Sessions, 2)
			assert.Contains(t, summary.Sessions, "morning")
			assert.Contains(t, summary.Sessions, "afternoon")
		})
	}
}

func TestDateSummaryClosedOnlyWhenAllClosed(t *testing.T) {
	store := newMemStore(300, 150)
	q := testQuery(store)

	// Morning has started: morning CLOSED, afternoon still open, so the
	// date overall is not closed.
	q.now = func() time.Time { return time.Date(2026, 10, 10, 9, 30, 0, 0, time.UTC) }
	summary, err := q.DateSummary(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, summary.Overall)

	// Afternoon has started too: now the whole date is closed.
	q.now = func() time.Time { return time.Date(2026, 10, 10, 13, 0, 0, 0, time.UTC) }
	summary, err = q.DateSummary(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, summary.Overall)
}
