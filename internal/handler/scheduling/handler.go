package scheduling

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/service/scheduling"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

type Handler struct {
	service *scheduling.Service
}

func NewHandler(service *scheduling.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors/:id")
	{
		doctors.GET("/availability", h.CheckAvailability)
		doctors.GET("/slots", h.ListSlots)
	}

	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/complete", h.CompleteAppointment)
	}
}

// CheckAvailability handles GET /doctors/:id/availability?start=<RFC3339>&duration=<minutes>.
func (h *Handler) CheckAvailability(c *gin.Context) {
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		handler.Fail(c, apperrors.NewBadRequest("start must be an RFC3339 timestamp", err))
		return
	}
	duration, err := strconv.Atoi(c.Query("duration"))
	if err != nil {
		handler.Fail(c, apperrors.NewBadRequest("duration must be a number of minutes", err))
		return
	}

	availability, err := h.service.CheckAvailability(c.Request.Context(), doctorID, start, duration)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(availability))
}

// ListSlots handles GET /doctors/:id/slots?date=YYYY-MM-DD.
func (h *Handler) ListSlots(c *gin.Context) {
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}
	date, err := time.Parse(model.DateLayout, c.Query("date"))
	if err != nil {
		handler.Fail(c, apperrors.NewBadRequest("date must be YYYY-MM-DD", err))
		return
	}

	slots, err := h.service.FreeSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"doctor_id": doctorID,
		"date":      date.Format(model.DateLayout),
		"slots":     slots,
	}))
}

// BookAppointment lets patients book for themselves; admins may book for anyone.
func (h *Handler) BookAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	if !actor.IsAdmin() {
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			handler.Fail(c, apperrors.NewBadRequest("invalid patient_id", err))
			return
		}
		if actor.Role != model.RolePatient || patientID != actor.ID {
			handler.Fail(c, apperrors.NewForbidden("patients may only book for themselves"))
			return
		}
	}

	appointment, err := h.service.BookAppointment(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appointment))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.service.GetAppointment(c.Request.Context(), id, actor)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var filters model.AppointmentFilters
	if id := c.Query("doctor_id"); id != "" {
		doctorID, err := uuid.Parse(id)
		if err != nil {
			handler.Fail(c, apperrors.NewBadRequest("invalid doctor ID", err))
			return
		}
		filters.DoctorID = doctorID
	}
	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			handler.Fail(c, apperrors.NewBadRequest("invalid patient ID", err))
			return
		}
		filters.PatientID = patientID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	for param, dst := range map[string]*time.Time{"from": &filters.From, "to": &filters.To} {
		if v := c.Query(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				handler.Fail(c, apperrors.NewBadRequest(param+" must be an RFC3339 timestamp", err))
				return
			}
			*dst = t
		}
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), filters, actor)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if appointments == nil {
		appointments = []*model.Appointment{}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id", "appointment")
	if !ok {
		return
	}

	var req model.CancelAppointmentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.Fail(c, apperrors.NewBadRequest("invalid request body", err))
			return
		}
	}

	appointment, err := h.service.CancelAppointment(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.service.CompleteAppointment(c.Request.Context(), id, actor)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}
