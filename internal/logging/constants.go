package logging

// Standardized field names for structured logging.
const (
	FieldVendor    = "vendor"
	FieldFolder    = "folder"
	FieldStage     = "stage"
	FieldRunID     = "run_id"
	FieldJobID     = "job_id"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldCount     = "count"
	FieldBillDate  = "bill_date"
	FieldAmount    = "amount"
	FieldOperation = "operation_id"
	FieldFile      = "file"
	FieldReason    = "reason"
)
