package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcamp/exam-seat-registration/internal/model"
	"github.com/medcamp/exam-seat-registration/internal/repository"
)

func TestExportPersonalData(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewPDPAHandler(repository.NewUserRepo(db), repository.NewRegistrationRepo(db), newTestAllocator(newFakeStore(300, 150)))

	day, _ := time.Parse("2006-01-02", testDate)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, full_name, created_at FROM users`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "created_at"}).
			AddRow("user-1", "a@b.c", "Somsri T", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, exam_code`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_code", "user_id", "package_type", "session_time", "exam_date", "payment_ref", "created_at"}).
			AddRow(1, "AAA", "user-1", "FREE", "MORNING", day, nil, time.Now()))

	rec := doRequest(t, http.MethodGet, "/v1/me/data", "", nil, h.Export)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID        string                 `json:"user_id"`
		Email         string                 `json:"email"`
		FullName      string                 `json:"full_name"`
		Registrations []registrationResponse `json:"registrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, "a@b.c", resp.Email)
	require.Len(t, resp.Registrations, 1)
	assert.Equal(t, "AAA", resp.Registrations[0].ExamCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErasePersonalDataReleasesSeats(t *testing.T) {
	store := newFakeStore(300, 150)
	alloc := newTestAllocator(store)
	ctx := context.Background()
	_, err := alloc.ReserveSeat(ctx, model.SessionMorning, testDate, model.PackageFree)
	require.NoError(t, err)
	_, err = alloc.ReserveSeat(ctx, model.SessionAfternoon, testDate, model.PackageAdvanced)
	require.NoError(t, err)

	db, mock := newMockDB(t)
	h := NewPDPAHandler(repository.NewUserRepo(db), repository.NewRegistrationRepo(db), alloc)

	day, _ := time.Parse("2006-01-02", testDate)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, exam_code`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_code", "user_id", "package_type", "session_time", "exam_date", "payment_ref", "created_at"}).
			AddRow(1, "AAA", "user-1", "FREE", "MORNING", day, nil, time.Now()).
			AddRow(2, "BBB", "user-1", "ADVANCED", "AFTERNOON", day, "PAY-9", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM registrations`)).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM registrations`)).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users`)).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := doRequest(t, http.MethodDelete, "/v1/me/data", "", nil, h.Erase)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Cancelled int `json:"registrations_cancelled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Cancelled)

	// Both seats went back to their sessions.
	cs, err := store.GetOrCreate(ctx, model.SessionMorning, testDate)
	require.NoError(t, err)
	assert.Equal(t, 0, cs.TotalCount)
	cs, err = store.GetOrCreate(ctx, model.SessionAfternoon, testDate)
	require.NoError(t, err)
	assert.Equal(t, 0, cs.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEraseWithNoData(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewPDPAHandler(repository.NewUserRepo(db), repository.NewRegistrationRepo(db), newTestAllocator(newFakeStore(300, 150)))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, exam_code`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_code", "user_id", "package_type", "session_time", "exam_date", "payment_ref", "created_at"}))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users`)).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rec := doRequest(t, http.MethodDelete, "/v1/me/data", "", nil, h.Erase)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
