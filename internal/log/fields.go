package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldKey       = "key"
	FieldArtifact  = "artifact"
	FieldWatermark = "watermark"
	FieldRows      = "rows"
	FieldTotal     = "total"
	FieldGenerated = "generated"
	FieldSkipped   = "skipped"
	FieldFailed    = "failed"
	FieldPath      = "path"
	FieldOutputDir = "output_dir"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentStorage = "storage"
	ComponentReport  = "report"
	ComponentSync    = "sync"
)

