package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
	"github.com/medcamp/exam-seat-registration/internal/model"
)

func newTestQuery(store capacity.Store) *capacity.Query {
	return capacity.NewQuery(store, capacity.Defaults{MaxCapacity: 300, FreeLimit: 150}, time.UTC)
}

func TestDateSummaryEndpoint(t *testing.T) {
	store := newFakeStore(300, 150)
	_, err := store.ApplyDelta(context.Background(), model.SessionMorning, testDate, model.PackageFree, +1)
	require.NoError(t, err)
	h := NewCapacityHandler(newTestQuery(store))

	rec := doRequest(t, http.MethodGet, "/v1/capacity/"+testDate, "", map[string]string{"date": testDate}, h.DateSummary)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp capacity.DateSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testDate, resp.ExamDate)
	assert.Len(t, resp.Sessions, 2)
	assert.Equal(t, model.StatusAvailable, resp.Overall)
}

func TestDateSummaryEndpointRejectsBadDate(t *testing.T) {
	h := NewCapacityHandler(newTestQuery(newFakeStore(300, 150)))

	rec := doRequest(t, http.MethodGet, "/v1/capacity/tomorrow", "", map[string]string{"date": "tomorrow"}, h.DateSummary)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionViewEndpoint(t *testing.T) {
	store := newFakeStore(2, 1)
	_, err := store.ApplyDelta(context.Background(), model.SessionMorning, testDate, model.PackageFree, +1)
	require.NoError(t, err)
	h := NewCapacityHandler(newTestQuery(store))

	rec := doRequest(t, http.MethodGet, "/v1/capacity/"+testDate+"/morning", "",
		map[string]string{"date": testDate, "session": "morning"}, h.SessionView)
	require.Equal(t, http.StatusOK, rec.Code)

	var view capacity.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, model.StatusLimited, view.Status)
	assert.True(t, view.HideExact)
	// Hidden counts must be absent from the payload entirely.
	assert.NotContains(t, rec.Body.String(), "total_count")
}

func TestSessionViewEndpointRejectsBadSession(t *testing.T) {
	h := NewCapacityHandler(newTestQuery(newFakeStore(300, 150)))

	rec := doRequest(t, http.MethodGet, "/v1/capacity/"+testDate+"/evening", "",
		map[string]string{"date": testDate, "session": "evening"}, h.SessionView)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
