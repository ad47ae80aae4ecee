package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/queue"
	"github.com/jmorales/wedding-pass-api/internal/repository"
)

// TableHandler exposes the seating plan to the admin dashboard.
type TableHandler struct {
	Tables *repository.TableRepo
}

func NewTableHandler(tables *repository.TableRepo) *TableHandler {
	if tables == nil {
		panic("nil repository passed to NewTableHandler")
	}
	return &TableHandler{Tables: tables}
}

type createTableReq struct {
	Capacity uint32 `json:"capacity"`
}

type createTablesBulkReq struct {
	Count    uint32 `json:"count"`
	Capacity uint32 `json:"capacity"`
}

// CreateTable adds one table with the next free table number.
func (h *TableHandler) CreateTable(c echo.Context) error {
	var req createTableReq
	if err := c.Bind(&req); err != nil || req.Capacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be >= 1"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tables.Create(ctx, req.Capacity)
	if err != nil {
		return domainError(c, err)
	}
	publishTableChanged(ctx, t.ID)
	return c.JSON(http.StatusCreated, toTableResp(t))
}

// CreateTablesBulk adds count tables in one shot, numbered
// consecutively. Used for initial venue setup.
func (h *TableHandler) CreateTablesBulk(c echo.Context) error {
	var req createTablesBulkReq
	if err := c.Bind(&req); err != nil || req.Count < 1 || req.Capacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "count and capacity must be >= 1"})
	}
	if req.Count > 500 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "count too large"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	created, err := h.Tables.CreateBulk(ctx, req.Count, req.Capacity)
	if err != nil {
		return domainError(c, err)
	}
	out := make([]tableResp, 0, len(created))
	for _, t := range created {
		out = append(out, toTableResp(t))
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": len(out), "tables": out})
}

// ListTables returns the seating plan ordered by table number.
func (h *TableHandler) ListTables(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tables, err := h.Tables.List(ctx)
	if err != nil {
		return domainError(c, err)
	}
	out := make([]tableResp, 0, len(tables))
	for _, t := range tables {
		out = append(out, toTableResp(t))
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteTable removes a table. Passes seated at it are kept but
// unassigned; the response reports how many.
func (h *TableHandler) DeleteTable(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	unassigned, err := h.Tables.Delete(ctx, id)
	if err != nil {
		return domainError(c, err)
	}
	publishTableChanged(ctx, id)
	return c.JSON(http.StatusOK, echo.Map{"deleted": true, "passes_unassigned": unassigned})
}

// DeleteEmptyTables removes every table with no seats taken and no
// passes assigned.
func (h *TableHandler) DeleteEmptyTables(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	removed, err := h.Tables.DeleteEmpty(ctx)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": removed})
}

func publishTableChanged(ctx context.Context, tableID uint64) {
	ev := queue.NewEvent(queue.EventTableChanged)
	ev.TableID = tableID
	_ = queue.Publish(ctx, ev)
}
