package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Tracing fields, carried on context loggers through a call chain.
const (
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldComponent = "component"
	FieldSource    = "source"
	FieldLanguage  = "language"
	FieldTextHash  = "text_hash"
	FieldURL       = "url"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldOutcome    = "outcome"
	FieldTokens     = "tokens"
	FieldCostUSD    = "cost_usd"
	FieldSimilarity = "similarity"
)
