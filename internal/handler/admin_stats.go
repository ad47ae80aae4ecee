package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/repository"
)

// StatsHandler serves the dashboard aggregates and the event
// configuration.
type StatsHandler struct {
	Tables *repository.TableRepo
	Passes *repository.GuestPassRepo
	Config *repository.EventConfigRepo
}

func NewStatsHandler(tables *repository.TableRepo, passes *repository.GuestPassRepo, cfg *repository.EventConfigRepo) *StatsHandler {
	if tables == nil || passes == nil || cfg == nil {
		panic("nil dependency passed to NewStatsHandler")
	}
	return &StatsHandler{Tables: tables, Passes: passes, Config: cfg}
}

type statsResp struct {
	TotalPasses     int    `json:"total_passes"`
	ConfirmedPasses int    `json:"confirmed_passes"`
	CompletedPasses int    `json:"completed_passes"`
	TotalGuests     uint64 `json:"total_guests"`
	GuestsEntered   uint64 `json:"guests_entered"`
	TotalTables     int    `json:"total_tables"`
	TotalSeats      uint64 `json:"total_seats"`
	OccupiedSeats   uint64 `json:"occupied_seats"`
}

// Stats aggregates the evening at a glance: invitations, arrivals and
// seat usage. Two list queries and in-memory sums; the data set is a
// few hundred rows at most.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tables, err := h.Tables.List(ctx)
	if err != nil {
		return domainError(c, err)
	}
	passes, err := h.Passes.List(ctx, nil)
	if err != nil {
		return domainError(c, err)
	}

	var resp statsResp
	resp.TotalTables = len(tables)
	for _, t := range tables {
		resp.TotalSeats += uint64(t.Capacity)
		resp.OccupiedSeats += uint64(t.OccupiedSeats)
	}
	resp.TotalPasses = len(passes)
	for _, p := range passes {
		resp.TotalGuests += uint64(p.PartySize)
		resp.GuestsEntered += uint64(p.EnteredCount)
		if p.Confirmed {
			resp.ConfirmedPasses++
		}
		if p.Completed {
			resp.CompletedPasses++
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type eventConfigResp struct {
	TotalTables   uint32 `json:"total_tables"`
	SeatsPerTable uint32 `json:"seats_per_table"`
}

// GetEventConfig returns the venue defaults, seeding them on first
// read.
func (h *StatsHandler) GetEventConfig(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.Config.Get(ctx)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, eventConfigResp{
		TotalTables:   cfg.TotalTables,
		SeatsPerTable: cfg.SeatsPerTable,
	})
}

// UpdateEventConfig stores new venue defaults. It does not touch
// existing tables; use the bulk table endpoint to grow the plan.
func (h *StatsHandler) UpdateEventConfig(c echo.Context) error {
	var req eventConfigResp
	if err := c.Bind(&req); err != nil || req.TotalTables < 1 || req.SeatsPerTable < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_tables and seats_per_table must be >= 1"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.Config.Update(ctx, req.TotalTables, req.SeatsPerTable)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, eventConfigResp{
		TotalTables:   cfg.TotalTables,
		SeatsPerTable: cfg.SeatsPerTable,
	})
}
