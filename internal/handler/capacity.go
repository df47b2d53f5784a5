package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
)

// CapacityHandler serves the public availability views.  Responses come
// from the query service, which never mutates capacity; the routes are
// safe to cache for a few seconds because the accept decision is always
// re-made from fresh counts at reservation time.
type CapacityHandler struct {
	Query *capacity.Query
}

// NewCapacityHandler constructs the handler.  query must be non-nil.
func NewCapacityHandler(query *capacity.Query) *CapacityHandler {
	if query == nil {
		panic("nil query passed to NewCapacityHandler")
	}
	return &CapacityHandler{Query: query}
}

// DateSummary handles GET /v1/capacity/:date.  It returns both sessions
// of the date plus the overall roll-up.
func (h *CapacityHandler) DateSummary(c echo.Context) error {
	examDate, err := parseExamDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	summary, err := h.Query.DateSummary(c.Request().Context(), examDate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, summary)
}

// SessionView handles GET /v1/capacity/:date/:session and returns the
// display projection of one session.
func (h *CapacityHandler) SessionView(c echo.Context) error {
	examDate, err := parseExamDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	session, ok := parseSession(c.Param("session"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session must be MORNING or AFTERNOON"})
	}
	view, err := h.Query.SessionView(c.Request().Context(), session, examDate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, view)
}
