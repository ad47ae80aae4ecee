// Package handler defines the HTTP layer: request DTOs, response
// shaping and status-code mapping. Domain rules live in the service
// and repository layers; handlers only translate.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/model"
	"github.com/jmorales/wedding-pass-api/internal/repository"
)

// getUserID extracts the authenticated user id stored by the JWT
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// domainError translates repository sentinels into HTTP responses.
// Capacity rejections carry the remaining allowance so the client can
// offer a corrected retry.
func domainError(c echo.Context, err error) error {
	var capErr *repository.CapacityError
	switch {
	case errors.Is(err, repository.ErrTableNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
	case errors.Is(err, repository.ErrPassNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pass not found"})
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "capacity exceeded",
			"remaining": capErr.Remaining,
		})
	case errors.Is(err, repository.ErrCodeSpaceExhausted):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "access code space exhausted"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// ----- response DTOs -----

type tableResp struct {
	ID             uint64 `json:"id"`
	TableNumber    uint32 `json:"table_number"`
	Capacity       uint32 `json:"capacity"`
	OccupiedSeats  uint32 `json:"occupied_seats"`
	SeatsAvailable uint32 `json:"seats_available"`
}

func toTableResp(t model.Table) tableResp {
	return tableResp{
		ID:             t.ID,
		TableNumber:    t.TableNumber,
		Capacity:       t.Capacity,
		OccupiedSeats:  t.OccupiedSeats,
		SeatsAvailable: t.SeatsAvailable(),
	}
}

type passResp struct {
	ID           uint64     `json:"id"`
	AccessCode   string     `json:"access_code"`
	FamilyName   string     `json:"family_name"`
	PartySize    uint32     `json:"party_size"`
	EnteredCount uint32     `json:"entered_count"`
	Remaining    uint32     `json:"remaining"`
	Status       string     `json:"status"`
	TableID      *uint64    `json:"table_id"`
	Phone        *string    `json:"phone"`
	Confirmed    bool       `json:"confirmed"`
	ConfirmedAt  *time.Time `json:"confirmed_at"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toPassResp(p model.GuestPass) passResp {
	return passResp{
		ID:           p.ID,
		AccessCode:   p.AccessCode,
		FamilyName:   p.FamilyName,
		PartySize:    p.PartySize,
		EnteredCount: p.EnteredCount,
		Remaining:    p.Remaining(),
		Status:       p.Status(),
		TableID:      p.TableID,
		Phone:        p.Phone,
		Confirmed:    p.Confirmed,
		ConfirmedAt:  p.ConfirmedAt,
		Completed:    p.Completed,
		CreatedAt:    p.CreatedAt,
	}
}
