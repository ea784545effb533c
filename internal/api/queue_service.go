package api

import (
	"context"

	"fauna/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API
// queries.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id string) (*queue.Item, error)
	RecentByOwner(ctx context.Context, ownerRef string, limit int) ([]*queue.Item, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns queue items filtered by status, newest first.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]PhotoItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return SortItemsNewestFirst(FromItems(items)), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single item. Missing items surface queue.ErrNotFound.
func (s *QueueService) Describe(ctx context.Context, id string) (*PhotoItem, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromItem(item)
	return &dto, nil
}

// Status fetches the polling payload for a single item. Missing items
// surface queue.ErrNotFound so transports can map them to 404.
func (s *QueueService) Status(ctx context.Context, id string) (StatusResponse, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusFromItem(item), nil
}

// Recent returns the newest items submitted under an owner reference.
func (s *QueueService) Recent(ctx context.Context, ownerRef string, limit int) ([]PhotoItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.RecentByOwner(ctx, ownerRef, limit)
	if err != nil {
		return nil, err
	}
	return FromItems(items), nil
}

// Health returns aggregate queue diagnostics.
func (s *QueueService) Health(ctx context.Context) (HealthResponse, error) {
	summary, err := s.store.Health(ctx)
	if err != nil {
		return HealthResponse{Healthy: false}, err
	}
	return HealthResponse{
		Healthy: true,
		Total:   summary.Total,
		Counts: map[string]int{
			string(queue.StatusPending):    summary.Pending,
			string(queue.StatusProcessing): summary.Processing,
			string(queue.StatusDone):       summary.Done,
			string(queue.StatusFailed):     summary.Failed,
		},
	}, nil
}
