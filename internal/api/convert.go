package api

import (
	"sort"

	"fauna/internal/queue"
	"fauna/internal/worker"
)

// FromItem converts a queue record to its API representation.
func FromItem(item *queue.Item) PhotoItem {
	if item == nil {
		return PhotoItem{}
	}

	dto := PhotoItem{
		ID:         item.ID,
		OwnerRef:   item.OwnerRef,
		PayloadRef: item.PayloadRef,
		Status:     string(item.Status),
		Attempts:   item.Attempts,
	}
	if item.Result != nil {
		dto.Result = &Result{
			Label:            item.Result.Label,
			Confidence:       item.Result.Confidence,
			Scores:           item.Result.Scores,
			ModelVersion:     item.Result.ModelVersion,
			ProcessingTimeMs: item.Result.ProcessingTimeMs,
		}
	}
	if item.FailureReason != nil {
		dto.FailureReason = &FailureReason{
			Kind:   string(item.FailureReason.Kind),
			Detail: item.FailureReason.Detail,
		}
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromItems converts a slice of queue records.
func FromItems(items []*queue.Item) []PhotoItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]PhotoItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// StatusFromItem builds the polling payload for an item.
func StatusFromItem(item *queue.Item) StatusResponse {
	dto := FromItem(item)
	return StatusResponse{
		ID:            dto.ID,
		State:         dto.Status,
		Result:        dto.Result,
		FailureReason: dto.FailureReason,
	}
}

// MergeQueueStats normalizes status counts so every known status has an
// entry, even when zero.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = 0
	}
	for status, count := range stats {
		merged[string(status)] = count
	}
	return merged
}

// FromWorkerStatus converts a worker status summary to its API shape.
func FromWorkerStatus(summary worker.StatusSummary) WorkerStatus {
	status := WorkerStatus{
		Running:    summary.Running,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
	}
	if summary.LastItem != nil {
		item := FromItem(summary.LastItem)
		status.LastItem = &item
	}
	return status
}

// SortItemsNewestFirst orders items by CreatedAt descending, breaking ties
// by ID so output is stable.
func SortItemsNewestFirst(items []PhotoItem) []PhotoItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]PhotoItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt == sorted[j].CreatedAt {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	return sorted
}
