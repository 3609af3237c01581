package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the request context.
const (
	// FieldRequestID is the inbound HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSessionID is the console session ID
	FieldSessionID = "session_id"

	// FieldJobUUID is the Hakbot job the request concerns
	FieldJobUUID = "job_uuid"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldEndpoint is the backend endpoint being called
	FieldEndpoint = "endpoint"

	// FieldMode is the console mode after a transition
	FieldMode = "mode"
)

// Metric fields, used on single entries for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the HTTP status or operation status
	FieldStatus = "status"
)
