package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// PhotoItem describes a work item in a transport-friendly format.
type PhotoItem struct {
	ID            string         `json:"id"`
	OwnerRef      string         `json:"ownerRef,omitempty"`
	PayloadRef    string         `json:"payloadRef"`
	Status        string         `json:"status"`
	Result        *Result        `json:"result,omitempty"`
	FailureReason *FailureReason `json:"failureReason,omitempty"`
	Attempts      int            `json:"attempts,omitempty"`
	CreatedAt     string         `json:"createdAt,omitempty"`
	UpdatedAt     string         `json:"updatedAt,omitempty"`
}

// Result carries a completed classification.
type Result struct {
	Label            string             `json:"label"`
	Confidence       float64            `json:"confidence"`
	Scores           map[string]float64 `json:"scores,omitempty"`
	ModelVersion     string             `json:"modelVersion,omitempty"`
	ProcessingTimeMs int64              `json:"processingTimeMs,omitempty"`
}

// FailureReason explains a terminal failure.
type FailureReason struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// StatusResponse is the polling payload for a single item: its current
// state plus the result or failure once the item settles.
type StatusResponse struct {
	ID            string         `json:"id"`
	State         string         `json:"state"`
	Result        *Result        `json:"result,omitempty"`
	FailureReason *FailureReason `json:"failureReason,omitempty"`
}

// UploadResponse acknowledges an accepted photo.
type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// QueueListResponse wraps a collection of items for API responses.
type QueueListResponse struct {
	Items []PhotoItem `json:"items"`
}

// QueueItemResponse wraps a single item.
type QueueItemResponse struct {
	Item PhotoItem `json:"item"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// RetryRequest names the failed items to send back to pending. An empty
// list retries every failed item.
type RetryRequest struct {
	IDs []string `json:"ids"`
}

// RetryResponse reports how many items were reset.
type RetryResponse struct {
	Retried int64 `json:"retried"`
}

// WorkerStatus summarizes worker execution state.
type WorkerStatus struct {
	Running    bool           `json:"running"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastItem   *PhotoItem     `json:"lastItem,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	QueueDBPath  string       `json:"queueDbPath"`
	LockFilePath string       `json:"lockFilePath"`
	Worker       WorkerStatus `json:"worker"`
}

// HealthResponse reports aggregate queue diagnostics.
type HealthResponse struct {
	Healthy bool           `json:"healthy"`
	Total   int            `json:"total"`
	Counts  map[string]int `json:"counts"`
}
