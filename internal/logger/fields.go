package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the batch job ID
	FieldJobID = "job_id"

	// FieldItemID is the identifier of the item being processed
	FieldItemID = "item_id"

	// FieldChunk is the zero-based chunk index within a job
	FieldChunk = "chunk"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldBackend is the external backend name (geoparser, tika, elasticsearch, qdrant)
	FieldBackend = "backend"
)

// Standard metric fields used for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
