package availability

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/service/availability"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

type Handler struct {
	service *availability.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *availability.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctor := r.Group("/doctors/:id")
	// Patients never manage schedules; ownership is checked by the service.
	manage := h.auth.RequireRole(model.RoleAdmin, model.RoleDoctor)
	{
		doctor.GET("/availability-windows", h.ListWindows)
		doctor.POST("/availability-windows", manage, h.CreateWindow)
		doctor.PATCH("/availability-windows/:windowId", manage, h.UpdateWindow)
		doctor.DELETE("/availability-windows/:windowId", manage, h.DeleteWindow)

		doctor.GET("/exceptions", h.ListExceptions)
		doctor.POST("/exceptions", manage, h.CreateException)
		doctor.PATCH("/exceptions/:exceptionId", manage, h.UpdateException)
		doctor.DELETE("/exceptions/:exceptionId", manage, h.DeleteException)
	}
}

func (h *Handler) ListWindows(c *gin.Context) {
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}

	windows, err := h.service.ListWindows(c.Request.Context(), doctorID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if windows == nil {
		windows = []*model.AvailabilityWindow{}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(windows))
}

func (h *Handler) CreateWindow(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}

	var req model.CreateAvailabilityWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	window, err := h.service.CreateWindow(c.Request.Context(), actor, doctorID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(window))
}

func (h *Handler) UpdateWindow(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}
	windowID, ok := handler.ParseID(c, "windowId", "availability window")
	if !ok {
		return
	}

	var req model.UpdateAvailabilityWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	window, err := h.service.UpdateWindow(c.Request.Context(), actor, doctorID, windowID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(window))
}

func (h *Handler) DeleteWindow(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}
	windowID, ok := handler.ParseID(c, "windowId", "availability window")
	if !ok {
		return
	}

	if err := h.service.DeleteWindow(c.Request.Context(), actor, doctorID, windowID); err != nil {
		handler.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListExceptions(c *gin.Context) {
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}

	exceptions, err := h.service.ListExceptions(c.Request.Context(), doctorID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if exceptions == nil {
		exceptions = []*model.Exception{}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(exceptions))
}

func (h *Handler) CreateException(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}

	var req model.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	exception, err := h.service.CreateException(c.Request.Context(), actor, doctorID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(exception))
}

func (h *Handler) UpdateException(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}
	exceptionID, ok := handler.ParseID(c, "exceptionId", "exception")
	if !ok {
		return
	}

	var req model.UpdateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	exception, err := h.service.UpdateException(c.Request.Context(), actor, doctorID, exceptionID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(exception))
}

func (h *Handler) DeleteException(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	doctorID, ok := handler.ParseID(c, "id", "doctor")
	if !ok {
		return
	}
	exceptionID, ok := handler.ParseID(c, "exceptionId", "exception")
	if !ok {
		return
	}

	if err := h.service.DeleteException(c.Request.Context(), actor, doctorID, exceptionID); err != nil {
		handler.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
