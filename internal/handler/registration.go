package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
	"github.com/medcamp/exam-seat-registration/internal/model"
	"github.com/medcamp/exam-seat-registration/internal/payment"
	"github.com/medcamp/exam-seat-registration/internal/queue"
	"github.com/medcamp/exam-seat-registration/internal/repository"
)

// codeRetries bounds how many times a colliding exam code is regenerated
// before giving up.  Collisions on 16 random bytes are effectively
// impossible; the retry exists so a freak collision is an extra round
// trip rather than a user-visible failure.
const codeRetries = 3

// RegistrationHandler serves the student-facing registration endpoints.
// The allocator is the only path through which a seat is committed or
// returned; the handler's job is the orchestration around it: payment
// verification before the seat, the registration row after it, and
// compensation (a release) when the row cannot be written.  All methods
// assume JWT authentication and role validation already ran in
// middleware and return 401 when the user ID is missing from context.
type RegistrationHandler struct {
	Alloc    *capacity.Allocator
	RegRepo  *repository.RegistrationRepo
	UserRepo *repository.UserRepo
	Payments payment.Verifier
	// Publish sends the confirmation event after commit.  It is
	// best-effort: a broker outage must never undo a committed
	// registration.  Nil disables publishing.
	Publish func(ctx context.Context, event queue.RegistrationConfirmedEvent) error
}

// NewRegistrationHandler constructs the handler.  Alloc, RegRepo and
// UserRepo must be non-nil; Payments and Publish may be nil when the
// respective integration is disabled.
func NewRegistrationHandler(alloc *capacity.Allocator, regRepo *repository.RegistrationRepo, userRepo *repository.UserRepo, payments payment.Verifier, publish func(context.Context, queue.RegistrationConfirmedEvent) error) *RegistrationHandler {
	if alloc == nil || regRepo == nil || userRepo == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{
		Alloc:    alloc,
		RegRepo:  regRepo,
		UserRepo: userRepo,
		Payments: payments,
		Publish:  publish,
	}
}

// createRegistrationRequest is the body for POST /v1/registrations.
// Email and full name are carried on the request because the identity
// provider that issued the JWT is external; the first registration
// upserts them into the local users table.
type createRegistrationRequest struct {
	PackageType string `json:"package_type"`
	SessionTime string `json:"session_time"`
	ExamDate    string `json:"exam_date"`
	PaymentRef  string `json:"payment_ref,omitempty"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
}

// registrationResponse is the JSON shape of a registration in responses.
type registrationResponse struct {
	ExamCode    string    `json:"exam_code"`
	PackageType string    `json:"package_type"`
	SessionTime string    `json:"session_time"`
	ExamDate    string    `json:"exam_date"`
	PaymentRef  *string   `json:"payment_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRegistrationResponse(reg model.Registration) registrationResponse {
	return registrationResponse{
		ExamCode:    reg.ExamCode,
		PackageType: string(reg.PackageType),
		SessionTime: string(reg.SessionTime),
		ExamDate:    reg.ExamDate,
		PaymentRef:  reg.PaymentRef,
		CreatedAt:   reg.CreatedAt,
	}
}

// Create handles POST /v1/registrations.  The flow is: validate input,
// verify payment for the advanced package, reserve the seat through the
// allocator, then write the registration row in a transaction.  A policy
// refusal from the allocator maps to 409 with the structured reason so
// the client can suggest the other tier or another session.  If the row
// write fails after the seat was committed, the seat is released before
// the error response; a failed release is logged and left for the
// capacity audit to reconcile.
func (h *RegistrationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createRegistrationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	pkg := model.PackageType(body.PackageType)
	if !pkg.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "package_type must be FREE or ADVANCED"})
	}
	session, ok := parseSession(body.SessionTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_time must be MORNING or AFTERNOON"})
	}
	examDate, err := parseExamDate(body.ExamDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exam_date must be YYYY-MM-DD"})
	}
	if body.Email == "" || body.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and full_name are required"})
	}

	ctx := c.Request().Context()

	// Payment is verified before any seat is touched so a declined
	// payment never holds capacity, even transiently.
	var payRef *string
	if pkg == model.PackageAdvanced {
		if body.PaymentRef == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref is required for the ADVANCED package"})
		}
		if h.Payments == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment verification is unavailable"})
		}
		confirmed, err := h.Payments.Confirmed(ctx, body.PaymentRef)
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment verification is unavailable"})
		}
		if !confirmed {
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment is not confirmed"})
		}
		ref := body.PaymentRef
		payRef = &ref
	}

	tok, err := h.Alloc.ReserveSeat(ctx, session, examDate, pkg)
	if err != nil {
		var rej *capacity.RejectionError
		switch {
		case errors.As(err, &rej):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":   "registration refused",
				"reason":  string(rej.Reason),
				"message": rejectionMessage(rej.Reason),
			})
		case errors.Is(err, capacity.ErrTransient):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "registration is busy, please retry"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	reg, err := h.writeRegistration(ctx, userID, body, pkg, session, examDate, payRef)
	if err != nil {
		// The seat was committed but the record could not be written;
		// compensate by returning the seat before reporting failure.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if relErr := h.Alloc.ReleaseSeat(relCtx, *tok); relErr != nil {
			log.Printf("registration: compensating release failed for %s %s %s: %v", tok.SessionTime, tok.ExamDate, tok.PackageType, relErr)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save registration"})
	}

	if h.Publish != nil {
		event := queue.RegistrationConfirmedEvent{
			ExamCode:    reg.ExamCode,
			UserID:      userID,
			Email:       body.Email,
			FullName:    body.FullName,
			PackageType: string(pkg),
			SessionTime: string(session),
			ExamDate:    examDate,
			ConfirmedAt: reg.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := h.Publish(ctx, event); err != nil {
			log.Printf("registration: publish confirmation for %s failed: %v", reg.ExamCode, err)
		}
	}

	return c.JSON(http.StatusCreated, toRegistrationResponse(*reg))
}

// writeRegistration upserts the user and inserts the registration row in
// one transaction.  A colliding exam code rolls back and retries with a
// fresh code.
func (h *RegistrationHandler) writeRegistration(ctx context.Context, userID string, body createRegistrationRequest, pkg model.PackageType, session model.SessionTime, examDate string, payRef *string) (*model.Registration, error) {
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := repository.NewExamCode()
		if err != nil {
			return nil, err
		}
		reg, err := h.insertOnce(ctx, userID, body, pkg, session, examDate, payRef, code)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, repository.ErrDuplicate
}

func (h *RegistrationHandler) insertOnce(ctx context.Context, userID string, body createRegistrationRequest, pkg model.PackageType, session model.SessionTime, examDate string, payRef *string, code string) (*model.Registration, error) {
	tx, err := h.RegRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.UserRepo.UpsertTx(ctx, tx, model.User{ID: userID, Email: body.Email, FullName: body.FullName}); err != nil {
		return nil, err
	}
	reg := &model.Registration{
		ExamCode:    code,
		UserID:      userID,
		PackageType: pkg,
		SessionTime: session,
		ExamDate:    examDate,
		PaymentRef:  payRef,
	}
	if err := h.RegRepo.CreateTx(ctx, tx, reg); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return reg, nil
}

// List handles GET /v1/registrations and returns the caller's
// registrations, newest first.
func (h *RegistrationHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regs, err := h.RegRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]registrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toRegistrationResponse(reg))
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": out})
}

// Cancel handles DELETE /v1/registrations/:code.  The row is removed in
// a transaction with an ownership check, then the seat is released
// through the allocator.  Deleting first and releasing second means a
// crash in between leaves a phantom seat (pessimistic for capacity)
// rather than a registration without a seat; ReleaseSeat is idempotent
// so the audit job can replay it safely.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exam code is required"})
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
	reg, err := h.RegRepo.GetByCodeTx(ctx, tx, code, userID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "registration belongs to another user"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if err := h.RegRepo.DeleteTx(ctx, tx, reg.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed = true

	tok := capacity.Token{SessionTime: reg.SessionTime, ExamDate: reg.ExamDate, PackageType: reg.PackageType}
	if err := h.Alloc.ReleaseSeat(ctx, tok); err != nil {
		log.Printf("registration: release after cancel of %s failed: %v", reg.ExamCode, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "registration cancelled"})
}

// rejectionMessage maps a refusal reason onto the calculator's message
// for the matching status, so refusals and views tell the same story.
func rejectionMessage(reason capacity.Reason) string {
	switch reason {
	case capacity.ReasonFreeQuotaExhausted:
		return capacity.StatusMessage(model.StatusLimited, reason)
	case capacity.ReasonSessionFull:
		return capacity.StatusMessage(model.StatusFull, capacity.ReasonNone)
	case capacity.ReasonRegistrationClosed:
		return capacity.StatusMessage(model.StatusClosed, capacity.ReasonNone)
	default:
		return "Registration refused."
	}
}
