package service

import (
	"context"
	"errors"
	"fmt"

	"giftbook/internal/domain"
	"giftbook/internal/repository"
)

// EventService maps a user to the event their gifts are scoped to.
type EventService interface {
	// ResolveDefault returns the user's default event, creating it on first use.
	ResolveDefault(ctx context.Context, userID int64) (int64, error)
	// FindDefault looks the default event up without creating it and returns
	// repository.ErrNotFound when the user has none yet.
	FindDefault(ctx context.Context, userID int64) (*domain.Event, error)
}

type eventService struct {
	events repository.EventRepository
}

func NewEventService(events repository.EventRepository) EventService {
	return &eventService{events: events}
}

func (s *eventService) ResolveDefault(ctx context.Context, userID int64) (int64, error) {
	event, err := s.FindDefault(ctx, userID)
	if err == nil {
		return event.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}

	created := &domain.Event{Title: domain.DefaultEventTitle, UserID: userID}
	inserted, err := s.events.CreateIfAbsent(ctx, created)
	if err != nil {
		return 0, err
	}
	if inserted {
		return created.ID, nil
	}

	// a concurrent request created it between our read and insert
	event, err = s.FindDefault(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("re-read default event: %w", err)
	}
	return event.ID, nil
}

func (s *eventService) FindDefault(ctx context.Context, userID int64) (*domain.Event, error) {
	return s.events.FindByOwnerAndTitle(ctx, userID, domain.DefaultEventTitle)
}
