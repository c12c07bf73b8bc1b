package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks StoreTx,EventSink

import (
	"context"
	"sync"

	"roster/internal/registry/models"
	id "roster/pkg/domain"
	"roster/pkg/requestcontext"
)

const testCaller = id.CallerID("registry-admin")

// recordingSink captures emitted events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *recordingSink) Emit(_ context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event{}, s.events...)
}

// Last returns the kind, account and index of the most recent event.
func (s *recordingSink) Last() (models.EventKind, id.AccountID, models.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return "", id.AccountID{}, 0
	}
	e := s.events[len(s.events)-1]
	return e.Kind, e.Account, e.Index
}

func authedContext() context.Context {
	ctx := requestcontext.WithCallerID(context.Background(), testCaller)
	return requestcontext.WithRequestID(ctx, "req-test")
}

func accounts(n int) []id.AccountID {
	out := make([]id.AccountID, n)
	for i := range out {
		out[i] = id.NewAccountID()
	}
	return out
}
