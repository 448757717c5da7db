package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

const maxDeliveryAttempts = 5

type OutboxRepository struct {
	s *Store
}

func (r *OutboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := r.s.now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	event.Status = string(model.OutboxStatusPending)
	r.s.outbox[event.ID] = *event
	return nil
}

// GetPendingEventsWithLock returns deliverable events. The caller holds no lease; a single
// in-process worker is assumed.
func (r *OutboxRepository) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var events []model.OutboxEvent
	for _, e := range r.s.outbox {
		switch model.OutboxStatus(e.Status) {
		case model.OutboxStatusPending:
			events = append(events, e)
		case model.OutboxStatusFailed:
			if e.RetryCount < maxDeliveryAttempts {
				events = append(events, e)
			}
		}
	}
	sortOutbox(events)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	out := make([]*model.OutboxEvent, len(events))
	for i := range events {
		out[i] = &events[i]
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	e.Status = string(status)
	e.ErrorMessage = errMsg
	e.UpdatedAt = now
	switch status {
	case model.OutboxStatusFailed:
		e.RetryCount++
	case model.OutboxStatusProcessed:
		e.ProcessedAt = &now
	}
	r.s.outbox[id] = e
	return nil
}

func (r *OutboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, e := range r.s.outbox {
		if e.Status == string(model.OutboxStatusProcessed) && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}

func sortOutbox(events []model.OutboxEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID.String() < events[j].ID.String()
	})
}
