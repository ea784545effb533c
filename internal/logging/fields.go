package logging

// Shared attribute keys. Keeping these in one place keeps log queries
// stable across components.
const (
	FieldComponent = "component"
	FieldItemID    = "item_id"
	FieldWorker    = "worker"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
)
