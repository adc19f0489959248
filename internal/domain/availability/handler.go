package availability

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medcore/hms/internal/domain/directory"
	"github.com/medcore/hms/internal/platform/auth"
	"github.com/medcore/hms/internal/platform/middleware"
)

type Handler struct {
	svc         *Service
	slotMinutes int
}

// NewHandler builds the availability HTTP surface. defaultSlotMinutes is the
// granularity applied when a declare request omits granularity_minutes; values
// of zero or less fall back to DefaultGranularity.
func NewHandler(svc *Service, defaultSlotMinutes int) *Handler {
	if defaultSlotMinutes <= 0 {
		defaultSlotMinutes = int(DefaultGranularity / time.Minute)
	}
	return &Handler{svc: svc, slotMinutes: defaultSlotMinutes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/availability", h.DeclareWindow, auth.RequireRole("doctor", "staff"))
	api.GET("/availability", h.ListForDay, auth.RequireRole("doctor", "staff", "patient"))
}

type declareWindowRequest struct {
	DoctorID           uuid.UUID `json:"doctor_id"`
	FromTime           time.Time `json:"from_time"`
	ToTime             time.Time `json:"to_time"`
	GranularityMinutes int       `json:"granularity_minutes"`
}

func (h *Handler) DeclareWindow(c echo.Context) error {
	hospitalID := middleware.HospitalFromContext(c.Request().Context())
	if hospitalID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital scope is required")
	}

	var req declareWindowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	minutes := req.GranularityMinutes
	if minutes == 0 {
		minutes = h.slotMinutes
	}
	w := Window{
		DoctorID:    req.DoctorID,
		HospitalID:  hospitalID,
		From:        req.FromTime,
		To:          req.ToTime,
		Granularity: time.Duration(minutes) * time.Minute,
	}
	slots, err := h.svc.DeclareWindow(c.Request().Context(), w)
	if err != nil {
		return availabilityError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"doctor_id": w.DoctorID,
		"from_time": w.From,
		"to_time":   w.To,
		"slots":     slots,
	})
}

func (h *Handler) ListForDay(c echo.Context) error {
	hospitalID := middleware.HospitalFromContext(c.Request().Context())
	if hospitalID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital scope is required")
	}

	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	var doctorID *uuid.UUID
	if param := c.QueryParam("doctor_id"); param != "" {
		id, err := uuid.Parse(param)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = &id
	}

	days, err := h.svc.ListForDay(c.Request().Context(), hospitalID, date, doctorID)
	if err != nil {
		return availabilityError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": days})
}

func availabilityError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSlotNotFound), errors.Is(err, ErrAmbiguousSlot), errors.Is(err, directory.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotAlreadyBooked):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrRoleMismatch):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrVerificationFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "could not persist availability")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
