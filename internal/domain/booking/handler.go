package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medcore/hms/internal/domain/availability"
	"github.com/medcore/hms/internal/domain/directory"
	"github.com/medcore/hms/internal/platform/auth"
	"github.com/medcore/hms/internal/platform/middleware"
	"github.com/medcore/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.POST("", h.Book, auth.RequireRole("patient", "staff"))
	g.GET("", h.List, auth.RequireRole("doctor", "staff", "patient"))
	g.GET("/:id", h.Get, auth.RequireRole("doctor", "staff", "patient"))
	g.POST("/:id/cancel", h.Cancel, auth.RequireRole("patient", "staff"))
	g.POST("/:id/complete", h.Complete, auth.RequireRole("doctor", "staff"))
}

type bookRequest struct {
	DoctorID  uuid.UUID  `json:"doctor_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	SlotID    *uuid.UUID `json:"slot_id"`
	SlotLabel string     `json:"slot_label"`
	Date      string     `json:"date"`
}

func (h *Handler) Book(c echo.Context) error {
	hospitalID := middleware.HospitalFromContext(c.Request().Context())
	if hospitalID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital scope is required")
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == uuid.Nil || req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id and patient_id are required")
	}

	book := BookRequest{
		HospitalID: hospitalID,
		DoctorID:   req.DoctorID,
		PatientID:  req.PatientID,
		SlotID:     req.SlotID,
		SlotLabel:  req.SlotLabel,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		book.Date = date
	}

	result, err := h.svc.Book(c.Request().Context(), book)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), id, middleware.HospitalFromContext(c.Request().Context()))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	opts := ListOptions{
		HospitalID: middleware.HospitalFromContext(c.Request().Context()),
		Status:     c.QueryParam("status"),
		Limit:      pg.Limit,
		Offset:     pg.Offset,
	}

	if param := c.QueryParam("doctor_id"); param != "" {
		id, err := uuid.Parse(param)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		opts.DoctorID = &id
	}
	if param := c.QueryParam("patient_id"); param != "" {
		id, err := uuid.Parse(param)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		opts.PatientID = &id
	}
	if param := c.QueryParam("date"); param != "" {
		date, err := time.Parse("2006-01-02", param)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		from, to := availability.DayWindow(date)
		opts.From, opts.To = &from, &to
	}

	items, total, err := h.svc.List(c.Request().Context(), opts)
	if err != nil {
		return bookingError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Cancel(c.Request().Context(), id, middleware.HospitalFromContext(c.Request().Context()))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Complete(c.Request().Context(), id, middleware.HospitalFromContext(c.Request().Context()))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func bookingError(err error) error {
	switch {
	case errors.Is(err, ErrMissingSlotRef):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound),
		errors.Is(err, availability.ErrSlotNotFound),
		errors.Is(err, availability.ErrAmbiguousSlot),
		errors.Is(err, directory.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, availability.ErrSlotAlreadyBooked),
		errors.Is(err, ErrDoctorSlotConflict),
		errors.Is(err, ErrPatientDoubleBooking),
		errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrPastSlot), errors.Is(err, directory.ErrRoleMismatch):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
