package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"courier-dispatch/internal/models"
)

// API is the thin intents layer between the session core and the delivery
// backend. Each method maps to exactly one REST call.
type API interface {
	Profile(ctx context.Context) (*models.Agent, error)
	SetAvailability(ctx context.Context, online bool) error

	NextNotification(ctx context.Context) (*models.OrderNotification, error)
	AcceptOrder(ctx context.Context, orderID string) (models.ActionResult, error)
	RejectOrder(ctx context.Context, orderID string) (models.ActionResult, error)

	Order(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) (*models.Order, error)
	SellerLocations(ctx context.Context, orderID string) ([]models.SellerLocation, error)
	SendOTP(ctx context.Context, orderID string) error
	VerifyOTP(ctx context.Context, orderID, code string) (*models.Order, error)
	ReportLocation(ctx context.Context, orderID string, report models.LocationReport) error
}

// HTTPAPI implements API over the backend's REST surface.
type HTTPAPI struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// do issues one JSON request and decodes the response into out (when out is
// non-nil and the response has a body). Non-2xx responses are returned as
// errors carrying the server's message.
func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode >= 400 {
		var errResp models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Message != "" {
			return fmt.Errorf("api: %s %s: %s", method, path, errResp.Message)
		}
		return fmt.Errorf("api: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (a *HTTPAPI) Profile(ctx context.Context) (*models.Agent, error) {
	var agent models.Agent
	if err := a.do(ctx, http.MethodGet, "/api/delivery/profile", nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (a *HTTPAPI) SetAvailability(ctx context.Context, online bool) error {
	return a.do(ctx, http.MethodPut, "/api/delivery/status", models.AvailabilityRequest{IsOnline: &online}, nil)
}

func (a *HTTPAPI) NextNotification(ctx context.Context) (*models.OrderNotification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/delivery/notifications/next", nil)
	if err != nil {
		return nil, err
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api: GET notifications/next: status %d", resp.StatusCode)
	}
	var n models.OrderNotification
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (a *HTTPAPI) AcceptOrder(ctx context.Context, orderID string) (models.ActionResult, error) {
	var result models.ActionResult
	err := a.do(ctx, http.MethodPost, "/api/delivery/notifications/"+orderID+"/accept", nil, &result)
	return result, err
}

func (a *HTTPAPI) RejectOrder(ctx context.Context, orderID string) (models.ActionResult, error) {
	var result models.ActionResult
	err := a.do(ctx, http.MethodPost, "/api/delivery/notifications/"+orderID+"/reject", nil, &result)
	return result, err
}

func (a *HTTPAPI) Order(ctx context.Context, orderID string) (*models.Order, error) {
	var envelope models.OrderEnvelope
	if err := a.do(ctx, http.MethodGet, "/api/delivery/orders/"+orderID, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (a *HTTPAPI) UpdateOrderStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	var envelope models.OrderEnvelope
	err := a.do(ctx, http.MethodPut, "/api/delivery/orders/"+orderID+"/status",
		models.StatusUpdateRequest{Status: status}, &envelope)
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (a *HTTPAPI) SellerLocations(ctx context.Context, orderID string) ([]models.SellerLocation, error) {
	var locations []models.SellerLocation
	if err := a.do(ctx, http.MethodGet, "/api/delivery/orders/"+orderID+"/sellers", nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

func (a *HTTPAPI) SendOTP(ctx context.Context, orderID string) error {
	return a.do(ctx, http.MethodPost, "/api/delivery/orders/"+orderID+"/otp", nil, nil)
}

func (a *HTTPAPI) VerifyOTP(ctx context.Context, orderID, code string) (*models.Order, error) {
	var resp struct {
		Message string        `json:"message"`
		Data    *models.Order `json:"data"`
	}
	err := a.do(ctx, http.MethodPost, "/api/delivery/orders/"+orderID+"/otp/verify",
		models.OTPVerifyRequest{OTP: code}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *HTTPAPI) ReportLocation(ctx context.Context, orderID string, report models.LocationReport) error {
	return a.do(ctx, http.MethodPut, "/api/delivery/orders/"+orderID+"/location", report, nil)
}
