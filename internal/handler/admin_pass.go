package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/repository"
	"github.com/jmorales/wedding-pass-api/internal/service"
)

// PassHandler exposes guest-pass CRUD to the admin dashboard. All
// mutations go through PassService so seat accounting and events stay
// consistent.
type PassHandler struct {
	Passes *repository.GuestPassRepo
	Svc    *service.PassService
}

func NewPassHandler(passes *repository.GuestPassRepo, svc *service.PassService) *PassHandler {
	if passes == nil || svc == nil {
		panic("nil dependency passed to NewPassHandler")
	}
	return &PassHandler{Passes: passes, Svc: svc}
}

type createPassReq struct {
	FamilyName string  `json:"family_name"`
	PartySize  uint32  `json:"party_size"`
	TableID    uint64  `json:"table_id"`
	Phone      *string `json:"phone"`
}

type updatePassReq struct {
	FamilyName *string `json:"family_name"`
	PartySize  *uint32 `json:"party_size"`
	TableID    *uint64 `json:"table_id"`
	ClearTable bool    `json:"clear_table"`
	Phone      *string `json:"phone"`
	ClearPhone bool    `json:"clear_phone"`
}

// CreatePass issues a new pass: seats reserved, code generated and
// row inserted atomically.
func (h *PassHandler) CreatePass(c echo.Context) error {
	var req createPassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_id required"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Svc.Create(ctx, service.CreatePassInput{
		FamilyName: req.FamilyName,
		PartySize:  req.PartySize,
		TableID:    req.TableID,
		Phone:      req.Phone,
		CreatedBy:  uid,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, toPassResp(p))
}

// ListPasses returns all passes, newest first. ?created_by=<id>
// narrows to one issuer; ?mine=true is shorthand for the caller.
func (h *PassHandler) ListPasses(c echo.Context) error {
	var createdBy *uint64
	switch {
	case c.QueryParam("mine") == "true":
		uid, err := getUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		createdBy = &uid
	case c.QueryParam("created_by") != "":
		uid, err := strconv.ParseUint(c.QueryParam("created_by"), 10, 64)
		if err != nil || uid == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid created_by"})
		}
		createdBy = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	passes, err := h.Passes.List(ctx, createdBy)
	if err != nil {
		return domainError(c, err)
	}
	out := make([]passResp, 0, len(passes))
	for _, p := range passes {
		out = append(out, toPassResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// GetPass returns one pass by id.
func (h *PassHandler) GetPass(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Passes.GetByID(ctx, id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, toPassResp(p))
}

// UpdatePass applies a partial edit. Omitted fields keep their
// value; clear_table / clear_phone null the column explicitly.
func (h *PassHandler) UpdatePass(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
	}
	var req updatePassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Svc.Edit(ctx, id, service.EditPassInput{
		FamilyName: req.FamilyName,
		PartySize:  req.PartySize,
		TableID:    req.TableID,
		ClearTable: req.ClearTable,
		Phone:      req.Phone,
		ClearPhone: req.ClearPhone,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, toPassResp(p))
}

// DeletePass removes a pass, releasing its seats and purging its
// entry history.
func (h *PassHandler) DeletePass(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Delete(ctx, id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
