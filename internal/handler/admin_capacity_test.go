package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcamp/exam-seat-registration/internal/repository"
)

func newAdminHandler(t *testing.T) (*AdminHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewAdminHandler(repository.NewCapacityRepo(db, 300, 150), repository.NewRegistrationRepo(db)), mock
}

func TestAdminCapacityShowsExactCounts(t *testing.T) {
	h, mock := newAdminHandler(t)

	day, _ := time.Parse("2006-01-02", testDate)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, session_time, exam_date`)).
		WithArgs(testDate).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_time", "exam_date", "total_count", "free_count", "advanced_count",
			"max_capacity", "free_limit", "availability_status", "last_updated",
		}).AddRow(1, "MORNING", day, 280, 150, 130, 300, 150, "LIMITED", time.Now()))

	rec := doRequest(t, http.MethodGet, "/v1/admin/capacity/"+testDate, "", map[string]string{"date": testDate}, h.Capacity)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sessions []adminSessionView `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	// Staff always see the numbers, even for LIMITED sessions.
	assert.Equal(t, 280, resp.Sessions[0].TotalCount)
	assert.Equal(t, 150, resp.Sessions[0].FreeCount)
	assert.Equal(t, 93, resp.Sessions[0].PercentFull)
}

func TestAdminUpdateLimitsValidation(t *testing.T) {
	h, _ := newAdminHandler(t)

	testCases := []struct {
		name string
		body string
	}{
		{"zero capacity", `{"max_capacity":0,"free_limit":0}`},
		{"negative free limit", `{"max_capacity":100,"free_limit":-1}`},
		{"free limit above capacity", `{"max_capacity":100,"free_limit":101}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodPut, "/v1/admin/capacity/"+testDate+"/morning", tc.body,
				map[string]string{"date": testDate, "session": "morning"}, h.UpdateLimits)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAdminUpdateLimitsConflictWhenBelowCommitted(t *testing.T) {
	h, mock := newAdminHandler(t)

	day, _ := time.Parse("2006-01-02", testDate)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, session_time, exam_date`)).
		WithArgs("MORNING", testDate).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_time", "exam_date", "total_count", "free_count", "advanced_count",
			"max_capacity", "free_limit", "availability_status", "last_updated",
		}).AddRow(1, "MORNING", day, 200, 120, 80, 300, 150, "AVAILABLE", time.Now()))
	mock.ExpectRollback()

	rec := doRequest(t, http.MethodPut, "/v1/admin/capacity/"+testDate+"/morning",
		`{"max_capacity":150,"free_limit":100}`,
		map[string]string{"date": testDate, "session": "morning"}, h.UpdateLimits)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminRegistrationsByDate(t *testing.T) {
	h, mock := newAdminHandler(t)

	day, _ := time.Parse("2006-01-02", testDate)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, exam_code`)).
		WithArgs(testDate).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_code", "user_id", "package_type", "session_time", "exam_date", "payment_ref", "created_at"}).
			AddRow(1, "AAA", "user-1", "FREE", "MORNING", day, nil, time.Now()))

	rec := doRequest(t, http.MethodGet, "/v1/admin/registrations/"+testDate, "", map[string]string{"date": testDate}, h.Registrations)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AAA")
}
