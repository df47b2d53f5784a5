package handler

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
	"github.com/medcamp/exam-seat-registration/internal/repository"
)

// PDPAHandler serves the personal-data endpoints: export of everything
// held about the caller and the right-to-erasure delete.  Erasure also
// cancels the caller's registrations, because a seat held by a deleted
// user would otherwise be locked forever.
type PDPAHandler struct {
	UserRepo *repository.UserRepo
	RegRepo  *repository.RegistrationRepo
	Alloc    *capacity.Allocator
}

// NewPDPAHandler constructs the handler.  All dependencies must be
// non-nil.
func NewPDPAHandler(userRepo *repository.UserRepo, regRepo *repository.RegistrationRepo, alloc *capacity.Allocator) *PDPAHandler {
	if userRepo == nil || regRepo == nil || alloc == nil {
		panic("nil dependency passed to NewPDPAHandler")
	}
	return &PDPAHandler{UserRepo: userRepo, RegRepo: regRepo, Alloc: alloc}
}

// Export handles GET /v1/me/data and returns the caller's profile and
// registrations in one document.
func (h *PDPAHandler) Export(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	user, err := h.UserRepo.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	regs, err := h.RegRepo.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]registrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toRegistrationResponse(reg))
	}
	doc := echo.Map{"user_id": userID, "registrations": out}
	if user != nil {
		doc["email"] = user.Email
		doc["full_name"] = user.FullName
		doc["created_at"] = user.CreatedAt
	}
	return c.JSON(http.StatusOK, doc)
}

// Erase handles DELETE /v1/me/data.  The caller's registrations and
// profile row are removed in one transaction, with the registration rows
// locked so a concurrent registration cannot slip between listing and
// deletion.  Seat releases run after commit; each one is idempotent, so
// a crash mid-way leaves only already-released or still-held seats that
// the capacity audit reconciles.
func (h *PDPAHandler) Erase(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	tx, err := h.RegRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	regs, err := h.RegRepo.ListByUserTx(ctx, tx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	for _, reg := range regs {
		if err := h.RegRepo.DeleteTx(ctx, tx, reg.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if err := h.UserRepo.DeleteTx(ctx, tx, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed = true

	for _, reg := range regs {
		tok := capacity.Token{SessionTime: reg.SessionTime, ExamDate: reg.ExamDate, PackageType: reg.PackageType}
		if err := h.Alloc.ReleaseSeat(ctx, tok); err != nil {
			log.Printf("pdpa: release after erasure of %s failed: %v", reg.ExamCode, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "personal data erased", "registrations_cancelled": len(regs)})
}
