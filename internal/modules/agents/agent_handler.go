package agents

import (
	"errors"
	"net/http"

	"courier-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the delivery agent's own resources.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the agent routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/status", h.SetAvailability)
	g.PUT("/orders/:orderId/location", h.ReportLocation)
	g.GET("/orders/:orderId/track", h.GetTrack)
}

func (h *Handler) GetProfile(c echo.Context) error {
	agentID := c.Get("agentID").(string)

	agent, err := h.svc.GetProfile(c.Request().Context(), agentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Agent not found"})
		}
		c.Logger().Error("Handler.GetProfile: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve profile"})
	}
	return c.JSON(http.StatusOK, agent)
}

func (h *Handler) SetAvailability(c echo.Context) error {
	agentID := c.Get("agentID").(string)

	var req models.AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	if err := h.svc.SetAvailability(c.Request().Context(), agentID, *req.IsOnline); err != nil {
		if errors.Is(err, models.ErrAgentBusy) {
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Cannot go offline during an active delivery"})
		}
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Agent not found"})
		}
		c.Logger().Error("Handler.SetAvailability: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update availability"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReportLocation(c echo.Context) error {
	agentID := c.Get("agentID").(string)
	orderID := c.Param("orderId")

	var req models.LocationReport
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	if err := h.svc.ReportLocation(c.Request().Context(), agentID, orderID, req); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Order not found"})
		}
		if errors.Is(err, models.ErrForbidden) {
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Order is not assigned to you"})
		}
		c.Logger().Error("Handler.ReportLocation: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to record location"})
	}
	return c.NoContent(http.StatusCreated)
}

func (h *Handler) GetTrack(c echo.Context) error {
	orderID := c.Param("orderId")

	events, err := h.svc.GetTrack(c.Request().Context(), orderID)
	if err != nil {
		c.Logger().Error("Handler.GetTrack: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to get tracking"})
	}
	return c.JSON(http.StatusOK, events)
}
