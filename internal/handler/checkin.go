package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/model"
	"github.com/jmorales/wedding-pass-api/internal/repository"
	"github.com/jmorales/wedding-pass-api/internal/service"
	"github.com/jmorales/wedding-pass-api/internal/utils"
)

// CheckinHandler serves the door station: code lookup, entry
// recording and the live arrivals view.
type CheckinHandler struct {
	Tables  *repository.TableRepo
	Passes  *repository.GuestPassRepo
	Entries *repository.EntryLogRepo
	Engine  *service.CheckinEngine
}

func NewCheckinHandler(tables *repository.TableRepo, passes *repository.GuestPassRepo, entries *repository.EntryLogRepo, engine *service.CheckinEngine) *CheckinHandler {
	if tables == nil || passes == nil || entries == nil || engine == nil {
		panic("nil dependency passed to NewCheckinHandler")
	}
	return &CheckinHandler{Tables: tables, Passes: passes, Entries: entries, Engine: engine}
}

type scanResp struct {
	Pass  passResp   `json:"pass"`
	Table *tableResp `json:"table"`
}

// GetPassByCode previews a scanned code before the station commits
// an entry: family, party, remaining allowance and assigned table.
func (h *CheckinHandler) GetPassByCode(c echo.Context) error {
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

	resp := scanResp{Pass: toPassResp(p)}
	if p.TableID != nil {
		if t, err := h.Tables.GetByID(ctx, *p.TableID); err == nil {
			tr := toTableResp(t)
			resp.Table = &tr
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type recordEntryReq struct {
	Count     uint32 `json:"count"`
	RequestID string `json:"request_id"`
}

type recordEntryResp struct {
	Pass     passResp `json:"pass"`
	Replayed bool     `json:"replayed"`
}

// RecordEntry admits count people on the scanned pass. request_id
// makes retries safe: a replayed id returns the recorded state with
// replayed=true and admits nobody twice.
func (h *CheckinHandler) RecordEntry(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if !utils.IsValidAccessCode(code) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid access code"})
	}
	var req recordEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.RecordEntry(ctx, code, req.Count, uid, strings.TrimSpace(req.RequestID))
	if err != nil {
		return domainError(c, err)
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, recordEntryResp{Pass: toPassResp(res.Pass), Replayed: res.Replayed})
}

// ListEntries returns the most recent entries, newest first.
// ?limit caps the page (default 50, max 200).
func (h *CheckinHandler) ListEntries(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Entries.ListRecent(ctx, limit)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

type checkinStatsResp struct {
	PendingPasses  int    `json:"pending_passes"`
	PartialPasses  int    `json:"partial_passes"`
	CompletePasses int    `json:"complete_passes"`
	GuestsEntered  uint64 `json:"guests_entered"`
	GuestsExpected uint64 `json:"guests_expected"`
}

// CheckinStats summarizes arrivals for the door display.
func (h *CheckinHandler) CheckinStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	passes, err := h.Passes.List(ctx, nil)
	if err != nil {
		return domainError(c, err)
	}

	var resp checkinStatsResp
	for _, p := range passes {
		switch p.Status() {
		case model.PassStatusPending:
			resp.PendingPasses++
		case model.PassStatusPartial:
			resp.PartialPasses++
		default:
			resp.CompletePasses++
		}
		resp.GuestsEntered += uint64(p.EnteredCount)
		resp.GuestsExpected += uint64(p.PartySize)
	}
	return c.JSON(http.StatusOK, resp)
}
