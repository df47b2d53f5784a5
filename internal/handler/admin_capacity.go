package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
	"github.com/medcamp/exam-seat-registration/internal/model"
	"github.com/medcamp/exam-seat-registration/internal/repository"
)

// AdminHandler serves the staff monitoring and correction endpoints.  It
// talks to the concrete repository rather than the Store interface
// because admins see exact counts with no display policy applied, and
// limit corrections are not part of the allocator's contract.
type AdminHandler struct {
	CapRepo *repository.CapacityRepo
	RegRepo *repository.RegistrationRepo
}

// NewAdminHandler constructs the handler.  Both repositories must be
// non-nil.
func NewAdminHandler(capRepo *repository.CapacityRepo, regRepo *repository.RegistrationRepo) *AdminHandler {
	if capRepo == nil || regRepo == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{CapRepo: capRepo, RegRepo: regRepo}
}

// adminSessionView is the unredacted projection of one session for
// staff.  Counts are always present here.
type adminSessionView struct {
	SessionTime   model.SessionTime        `json:"session_time"`
	ExamDate      string                   `json:"exam_date"`
	Status        model.AvailabilityStatus `json:"availability_status"`
	TotalCount    int                      `json:"total_count"`
	FreeCount     int                      `json:"free_count"`
	AdvancedCount int                      `json:"advanced_count"`
	MaxCapacity   int                      `json:"max_capacity"`
	FreeLimit     int                      `json:"free_limit"`
	PercentFull   int                      `json:"percent_full"`
}

func toAdminView(cs model.CapacityStatus) adminSessionView {
	snap := capacity.SnapshotOf(cs)
	return adminSessionView{
		SessionTime:   cs.SessionTime,
		ExamDate:      cs.ExamDate,
		Status:        cs.AvailabilityStatus,
		TotalCount:    cs.TotalCount,
		FreeCount:     cs.FreeCount,
		AdvancedCount: cs.AdvancedCount,
		MaxCapacity:   cs.MaxCapacity,
		FreeLimit:     cs.FreeLimit,
		PercentFull:   capacity.PercentFull(snap),
	}
}

// Capacity handles GET /v1/admin/capacity/:date and returns the exact
// counts for every session that has a row on the date.
func (h *AdminHandler) Capacity(c echo.Context) error {
	examDate, err := parseExamDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	rows, err := h.CapRepo.ReadMany(c.Request().Context(), examDate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]adminSessionView, 0, len(rows))
	for _, cs := range rows {
		out = append(out, toAdminView(cs))
	}
	return c.JSON(http.StatusOK, echo.Map{"exam_date": examDate, "sessions": out})
}

// updateLimitsRequest is the body for PUT /v1/admin/capacity/:date/:session.
type updateLimitsRequest struct {
	MaxCapacity int `json:"max_capacity"`
	FreeLimit   int `json:"free_limit"`
}

// UpdateLimits handles PUT /v1/admin/capacity/:date/:session.  It
// adjusts a session's limits under the row lock; a correction that would
// shrink limits below the already committed counts is refused with 409
// so staff cannot put a session into an impossible state.
func (h *AdminHandler) UpdateLimits(c echo.Context) error {
	examDate, err := parseExamDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	session, ok := parseSession(c.Param("session"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session must be MORNING or AFTERNOON"})
	}
	var body updateLimitsRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MaxCapacity <= 0 || body.FreeLimit < 0 || body.FreeLimit > body.MaxCapacity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "limits must satisfy 0 <= free_limit <= max_capacity and max_capacity > 0"})
	}
	cs, err := h.CapRepo.UpdateLimits(c.Request().Context(), session, examDate, body.MaxCapacity, body.FreeLimit)
	if err != nil {
		switch {
		case errors.Is(err, capacity.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "limits are below the seats already committed"})
		case errors.Is(err, capacity.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no capacity row for this session"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusOK, toAdminView(cs))
}

// Registrations handles GET /v1/admin/registrations/:date and lists all
// registrations on the date for check-in preparation.
func (h *AdminHandler) Registrations(c echo.Context) error {
	examDate, err := parseExamDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	regs, err := h.RegRepo.ListByDate(c.Request().Context(), examDate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(regs))
	for _, reg := range regs {
		out = append(out, echo.Map{
			"exam_code":    reg.ExamCode,
			"user_id":      reg.UserID,
			"package_type": reg.PackageType,
			"session_time": reg.SessionTime,
			"exam_date":    reg.ExamDate,
			"created_at":   reg.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"exam_date": examDate, "registrations": out})
}
