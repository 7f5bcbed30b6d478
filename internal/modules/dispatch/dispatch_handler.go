package dispatch

import (
	"errors"
	"net/http"

	"courier-dispatch/internal/models"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the agent's notification queue.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the notification routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications/next", h.Next)
	g.POST("/notifications/:orderId/accept", h.Accept)
	g.POST("/notifications/:orderId/reject", h.Reject)
}

func (h *Handler) Next(c echo.Context) error {
	agentID := c.Get("agentID").(string)

	n, err := h.svc.NextNotification(c.Request().Context(), agentID)
	if err != nil {
		c.Logger().Error("Handler.Next: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to fetch notifications"})
	}
	if n == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) Accept(c echo.Context) error {
	agentID := c.Get("agentID").(string)
	orderID := c.Param("orderId")

	result, err := h.svc.Accept(c.Request().Context(), agentID, orderID)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return c.JSON(http.StatusConflict, result)
		}
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, result)
		}
		c.Logger().Error("Handler.Accept: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to accept order"})
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Reject(c echo.Context) error {
	agentID := c.Get("agentID").(string)
	orderID := c.Param("orderId")

	result, err := h.svc.Reject(c.Request().Context(), agentID, orderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, result)
		}
		c.Logger().Error("Handler.Reject: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to reject order"})
	}
	return c.JSON(http.StatusOK, result)
}
