package main

import (
	"context"
	"errors"

	"fauna/internal/api"
	"fauna/internal/queue"
)

type queueAPI interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.PhotoItem, error)
	Recent(ctx context.Context, owner string, limit int) ([]api.PhotoItem, error)
	Describe(ctx context.Context, id string) (*api.PhotoItem, error)
	Remove(ctx context.Context, id string) (bool, error)
	PhotoStatus(ctx context.Context, id string) (*api.StatusResponse, error)
	Retry(ctx context.Context, ids []string) (int64, error)
	Clear(ctx context.Context, scope string) (int64, error)
	Health(ctx context.Context) (api.HealthResponse, error)
}

// --- HTTP adapter ---

type queueHTTPAdapter struct {
	client *daemonClient
}

func (a *queueHTTPAdapter) Stats(ctx context.Context) (map[string]int, error) {
	resp, err := a.client.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

func (a *queueHTTPAdapter) List(ctx context.Context, statuses []string) ([]api.PhotoItem, error) {
	resp, err := a.client.List(ctx, statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *queueHTTPAdapter) Recent(ctx context.Context, owner string, limit int) ([]api.PhotoItem, error) {
	resp, err := a.client.Recent(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *queueHTTPAdapter) Remove(ctx context.Context, id string) (bool, error) {
	return a.client.Remove(ctx, id)
}

func (a *queueHTTPAdapter) Describe(ctx context.Context, id string) (*api.PhotoItem, error) {
	resp, err := a.client.Describe(ctx, id)
	if err != nil {
		if isNotFoundErr(err) {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Item, nil
}

func (a *queueHTTPAdapter) PhotoStatus(ctx context.Context, id string) (*api.StatusResponse, error) {
	resp, err := a.client.PhotoStatus(ctx, id)
	if err != nil {
		if isNotFoundErr(err) {
			return nil, nil
		}
		return nil, err
	}
	return &resp, nil
}

func (a *queueHTTPAdapter) Retry(ctx context.Context, ids []string) (int64, error) {
	resp, err := a.client.Retry(ctx, ids)
	if err != nil {
		return 0, err
	}
	return resp.Retried, nil
}

func (a *queueHTTPAdapter) Clear(ctx context.Context, scope string) (int64, error) {
	return a.client.Clear(ctx, scope)
}

func (a *queueHTTPAdapter) Health(ctx context.Context) (api.HealthResponse, error) {
	return a.client.Health(ctx)
}

// --- Store adapter ---

type queueStoreAdapter struct {
	store   *queue.Store
	service *api.QueueService
}

func (a *queueStoreAdapter) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *queueStoreAdapter) List(ctx context.Context, statuses []string) ([]api.PhotoItem, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *queueStoreAdapter) Recent(ctx context.Context, owner string, limit int) ([]api.PhotoItem, error) {
	return a.service.Recent(ctx, owner, limit)
}

func (a *queueStoreAdapter) Remove(ctx context.Context, id string) (bool, error) {
	return a.store.Remove(ctx, id)
}

func (a *queueStoreAdapter) Describe(ctx context.Context, id string) (*api.PhotoItem, error) {
	item, err := a.service.Describe(ctx, id)
	if errors.Is(err, queue.ErrNotFound) {
		return nil, nil
	}
	return item, err
}

func (a *queueStoreAdapter) PhotoStatus(ctx context.Context, id string) (*api.StatusResponse, error) {
	status, err := a.service.Status(ctx, id)
	if errors.Is(err, queue.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (a *queueStoreAdapter) Retry(ctx context.Context, ids []string) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *queueStoreAdapter) Clear(ctx context.Context, scope string) (int64, error) {
	switch scope {
	case "", "done":
		return a.store.ClearDone(ctx)
	case "failed":
		return a.store.ClearFailed(ctx)
	case "all":
		return a.store.Clear(ctx)
	default:
		return 0, errors.New("unknown clear scope " + scope)
	}
}

func (a *queueStoreAdapter) Health(ctx context.Context) (api.HealthResponse, error) {
	return a.service.Health(ctx)
}
