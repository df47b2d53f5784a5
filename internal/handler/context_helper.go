package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

// getUserID extracts the authenticated subject stored by the JWT
// middleware.  An empty or missing value means the middleware chain was
// bypassed, which handlers report as 401.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("missing user_id in context")
}

// parseExamDate validates the YYYY-MM-DD date used in paths and bodies.
func parseExamDate(s string) (string, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// parseSession normalises and validates a session path parameter.
func parseSession(s string) (model.SessionTime, bool) {
	session := model.SessionTime(strings.ToUpper(s))
	return session, session.Valid()
}
