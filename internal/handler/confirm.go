package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/repository"
	"github.com/jmorales/wedding-pass-api/internal/service"
	"github.com/jmorales/wedding-pass-api/internal/utils"
)

// ConfirmHandler serves the unauthenticated guest surface: a family
// opens the invitation link, confirms attendance and downloads the
// pass. Only the access code gates these routes, so responses reveal
// nothing beyond the family's own pass.
type ConfirmHandler struct {
	Tables *repository.TableRepo
	Passes *repository.GuestPassRepo
	Svc    *service.PassService
}

func NewConfirmHandler(tables *repository.TableRepo, passes *repository.GuestPassRepo, svc *service.PassService) *ConfirmHandler {
	if tables == nil || passes == nil || svc == nil {
		panic("nil dependency passed to NewConfirmHandler")
	}
	return &ConfirmHandler{Tables: tables, Passes: passes, Svc: svc}
}

type confirmResp struct {
	Pass             passResp   `json:"pass"`
	Table            *tableResp `json:"table"`
	AlreadyConfirmed bool       `json:"already_confirmed"`
}

// GetInvitation shows the invitation for a code: family name, party
// size and table. Guests hit this from the link before confirming.
func (h *ConfirmHandler) GetInvitation(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if !utils.IsValidAccessCode(code) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid access code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Passes.GetByCode(ctx, code)
	if err != nil {
		return domainError(c, err)
	}
	resp := confirmResp{Pass: toPassResp(p), AlreadyConfirmed: p.Confirmed}
	h.attachTable(ctx, &resp)
	return c.JSON(http.StatusOK, resp)
}

// Confirm marks attendance for the code. Repeat confirmations are
// acknowledged without changing confirmed_at.
func (h *ConfirmHandler) Confirm(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if !utils.IsValidAccessCode(code) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid access code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, already, err := h.Svc.Confirm(ctx, code)
	if err != nil {
		return domainError(c, err)
	}
	resp := confirmResp{Pass: toPassResp(p), AlreadyConfirmed: already}
	h.attachTable(ctx, &resp)
	return c.JSON(http.StatusOK, resp)
}

// RecordDownload notes that the family saved their invitation. The
// counter feeds the dashboard; failures to record are not surfaced
// to the guest.
func (h *ConfirmHandler) RecordDownload(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if !utils.IsValidAccessCode(code) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid access code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Passes.GetByCode(ctx, code)
	if err != nil {
		return domainError(c, err)
	}
	if err := h.Passes.RecordDownload(ctx, p.ID); err != nil {
		c.Logger().Warnf("record download failed for pass %d: %v", p.ID, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"recorded": true})
}

func (h *ConfirmHandler) attachTable(ctx context.Context, resp *confirmResp) {
	if resp.Pass.TableID == nil {
		return
	}
	if t, err := h.Tables.GetByID(ctx, *resp.Pass.TableID); err == nil {
		tr := toTableResp(t)
		resp.Table = &tr
	}
}
