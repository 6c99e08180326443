package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing Fields (Context level)
// Propagated through the call chain of a request or batch run
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the batch tagging job ID
	FieldJobID = "job_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldMode is the conversation mode (analysis or sticker)
	FieldMode = "mode"
)

// ============================================
// Metric Fields (Entry level)
// Used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldEntryIndex is the corpus position being processed
	FieldEntryIndex = "entry_index"

	// FieldReason is the blocklist reason or skip cause
	FieldReason = "reason"

	// FieldAttempt is the 1-based attempt number of a retried call
	FieldAttempt = "attempt"
)
