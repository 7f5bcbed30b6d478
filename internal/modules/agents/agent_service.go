package agents

import (
	"context"
	"fmt"

	"courier-dispatch/internal/models"
)

// ServiceInterface defines the agent-facing business operations.
type ServiceInterface interface {
	GetProfile(ctx context.Context, agentID string) (*models.Agent, error)
	SetAvailability(ctx context.Context, agentID string, online bool) error
	ReportLocation(ctx context.Context, agentID, orderID string, report models.LocationReport) error
	GetTrack(ctx context.Context, orderID string) ([]*models.TrackingEvent, error)
}

type service struct {
	repo RepositoryInterface
}

func NewService(repo RepositoryInterface) ServiceInterface {
	return &service{repo: repo}
}

func (s *service) GetProfile(ctx context.Context, agentID string) (*models.Agent, error) {
	agent, err := s.repo.FindByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("service.GetProfile: %w", err)
	}
	return agent, nil
}

// SetAvailability persists the agent's online flag. Going offline is refused
// while a picked-up delivery is still in the agent's hands.
func (s *service) SetAvailability(ctx context.Context, agentID string, online bool) error {
	if !online {
		active, err := s.repo.HasActiveTrip(ctx, agentID)
		if err != nil {
			return fmt.Errorf("service.SetAvailability: %w", err)
		}
		if active {
			return models.ErrAgentBusy
		}
	}
	if err := s.repo.SetAvailability(ctx, agentID, online); err != nil {
		return fmt.Errorf("service.SetAvailability: %w", err)
	}
	return nil
}

// ReportLocation records one GPS sample against the order's trace and the
// agent's current-location row. Only the assigned agent may report.
func (s *service) ReportLocation(ctx context.Context, agentID, orderID string, report models.LocationReport) error {
	assigned, err := s.repo.OrderAgentID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service.ReportLocation: %w", err)
	}
	if assigned != agentID {
		return models.ErrForbidden
	}

	ev := &models.TrackingEvent{
		OrderID:   orderID,
		AgentID:   agentID,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
	}
	if err := s.repo.InsertTrackingEvent(ctx, ev); err != nil {
		return fmt.Errorf("service.ReportLocation: %w", err)
	}
	if err := s.repo.UpsertCurrentLocation(ctx, agentID, report); err != nil {
		return fmt.Errorf("service.ReportLocation: %w", err)
	}
	return nil
}

func (s *service) GetTrack(ctx context.Context, orderID string) ([]*models.TrackingEvent, error) {
	events, err := s.repo.ListTrackingEvents(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.GetTrack: %w", err)
	}
	return events, nil
}
