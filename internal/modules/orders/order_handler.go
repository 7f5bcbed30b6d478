package orders

import (
	"errors"
	"net/http"

	"courier-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for orders assigned to a delivery agent.
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

// RegisterRoutes mounts the order routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/orders/:orderId", h.GetOrder)
	g.PUT("/orders/:orderId/status", h.UpdateStatus)
	g.GET("/orders/:orderId/sellers", h.GetSellerLocations)
	g.POST("/orders/:orderId/otp", h.SendOTP)
	g.POST("/orders/:orderId/otp/verify", h.VerifyOTP)
}

func (h *Handler) GetOrder(c echo.Context) error {
	agentID := c.Get("agentID").(string)
	orderID := c.Param("orderId")

	order, err := h.svc.GetOrder(c.Request().Context(), orderID, agentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Order not found"})
		}
		c.Logger().Error("Handler.GetOrder: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve order"})
	}
	return c.JSON(http.StatusOK, models.OrderEnvelope{Data: order})
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	agentID := c.Get("agentID").(string)
	orderID := c.Param("orderId")

	var req models.StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	order, err := h.svc.AdvanceStatus(c.Request().Context(), orderID, agentID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Order not found"})
		case errors.Is(err, models.ErrOTPRequired):
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Delivery must be confirmed with the customer's OTP"})
		case errors.Is(err, models.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Status transition not allowed"})
		}
		c.Logger().Error("Handler.UpdateStatus: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update order status"})
	}
	return c.JSON(http.StatusOK, models.OrderEnvelope{Data: order})
}

func (h *Handler) GetSellerLocations(c echo.Context) error {
	orderID := c.Param("orderId")

	locations, err := h.svc.GetSellerLocations(c.Request().Context(), orderID)
	if err != nil {
		c.Logger().Error("Handler.GetSellerLocations: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve seller locations"})
	}
	return c.JSON(http.StatusOK, locations)
}

func (h *Handler) SendOTP(c echo.Context) error {
	agentID := c.Get("agentID").(string)
	orderID := c.Param("orderId")

	if err := h.svc.SendDeliveryOTP(c.Request().Context(), orderID, agentID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Order not found"})
		case errors.Is(err, models.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "OTP can only be sent after pickup"})
		}
		c.Logger().Error("Handler.SendOTP: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to send OTP"})
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	agentID := c.Get("agentID").(string)
	orderID := c.Param("orderId")

	var req models.OTPVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "OTP must be a 6-digit code"})
	}

	order, err := h.svc.VerifyDeliveryOTP(c.Request().Context(), orderID, agentID, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Order not found"})
		case errors.Is(err, models.ErrOTPExpired):
			return c.JSON(http.StatusGone, models.ErrorResponse{Message: "OTP expired, request a new one"})
		case errors.Is(err, models.ErrOTPMismatch):
			return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: "Incorrect OTP"})
		case errors.Is(err, models.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Order is not awaiting delivery confirmation"})
		}
		c.Logger().Error("Handler.VerifyOTP: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to verify OTP"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "Order delivered", "data": order})
}
