package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"courier-dispatch/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const (
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 3
)

// OTPSender delivers a one-time code to the customer. Implemented by
// pkg/notify over SES.
type OTPSender interface {
	SendOTP(ctx context.Context, toEmail, customerName, orderNumber, code string) error
}

// ServiceInterface defines the order operations exposed to the handler.
type ServiceInterface interface {
	GetOrder(ctx context.Context, orderID, agentID string) (*models.Order, error)
	AdvanceStatus(ctx context.Context, orderID, agentID, status string) (*models.Order, error)
	GetSellerLocations(ctx context.Context, orderID string) ([]models.SellerLocation, error)
	SendDeliveryOTP(ctx context.Context, orderID, agentID string) error
	VerifyDeliveryOTP(ctx context.Context, orderID, agentID, code string) (*models.Order, error)
}

type service struct {
	repo   RepositoryInterface
	sender OTPSender
}

func NewService(repo RepositoryInterface, sender OTPSender) ServiceInterface {
	return &service{repo: repo, sender: sender}
}

func (s *service) GetOrder(ctx context.Context, orderID, agentID string) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.GetOrder: %w", err)
	}
	if order.AgentID == nil || *order.AgentID != agentID {
		// Return NotFound rather than Forbidden to avoid leaking order existence.
		return nil, models.ErrNotFound
	}
	return order, nil
}

// AdvanceStatus applies an agent-requested transition. Only the immediate
// happy-path successor is accepted; Cancelled/Returned are allowed from any
// non-terminal status. Delivered is never reachable here, only through OTP
// verification.
func (s *service) AdvanceStatus(ctx context.Context, orderID, agentID, status string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID, agentID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminal(order.Status) {
		return nil, models.ErrInvalidTransition
	}

	switch status {
	case models.StatusCancelled, models.StatusReturned:
		// side branches, always reachable before a terminal status
	case models.StatusDelivered:
		return nil, models.ErrOTPRequired
	default:
		next, ok := models.NextStatus(order.Status)
		if !ok || next != status {
			return nil, models.ErrInvalidTransition
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, fmt.Errorf("service.AdvanceStatus: %w", err)
	}
	return updated, nil
}

func (s *service) GetSellerLocations(ctx context.Context, orderID string) ([]models.SellerLocation, error) {
	locations, err := s.repo.ListSellerLocations(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.GetSellerLocations: %w", err)
	}
	return locations, nil
}

// SendDeliveryOTP issues a fresh 6-digit code to the customer. Valid only
// while the order is in the agent's hands.
func (s *service) SendDeliveryOTP(ctx context.Context, orderID, agentID string) error {
	order, err := s.GetOrder(ctx, orderID, agentID)
	if err != nil {
		return err
	}
	if order.Status != models.StatusPickedUp {
		return models.ErrInvalidTransition
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("service.SendDeliveryOTP: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("service.SendDeliveryOTP: %w", err)
	}
	if err := s.repo.SaveOTP(ctx, orderID, string(hash), time.Now().Add(otpTTL)); err != nil {
		return fmt.Errorf("service.SendDeliveryOTP: %w", err)
	}

	if err := s.sender.SendOTP(ctx, order.CustomerEmail, order.CustomerName, order.OrderNumber, code); err != nil {
		return fmt.Errorf("service.SendDeliveryOTP: send: %w", err)
	}
	return nil
}

// VerifyDeliveryOTP checks the typed code and, on success, completes the
// order. Three wrong codes invalidate the current OTP.
func (s *service) VerifyDeliveryOTP(ctx context.Context, orderID, agentID, code string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID, agentID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPickedUp {
		return nil, models.ErrInvalidTransition
	}

	hash, expiresAt, attempts, err := s.repo.GetOTP(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if time.Now().After(expiresAt) || attempts >= otpMaxAttempts {
		_ = s.repo.InvalidateOTP(ctx, orderID)
		return nil, models.ErrOTPExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		if err := s.repo.RecordOTPAttempt(ctx, orderID); err != nil {
			return nil, fmt.Errorf("service.VerifyDeliveryOTP: %w", err)
		}
		return nil, models.ErrOTPMismatch
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, models.StatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("service.VerifyDeliveryOTP: %w", err)
	}
	_ = s.repo.InvalidateOTP(ctx, orderID)
	return updated, nil
}

// generateOTP returns a uniformly random 6-digit code with leading zeros kept.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
