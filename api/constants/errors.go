package constants

import "fmt"

// ============================================================================
// SESSION ERRORS
// ============================================================================

const (
	ErrSessionNotFound = "Editor session not found or expired. Please reopen the configuration"
)

// ============================================================================
// RANGE & PERIOD ERRORS
// ============================================================================

const (
	ErrRangeEmpty       = "Periods range is required"
	ErrRangeMalformed   = "Periods range must look like B3:M3"
	ErrRangeOutOfBounds = "Periods range uses a column beyond XFD"
	ErrRangeReversed    = "Periods range starts after it ends"
	ErrNoColumns        = "Set a periods range before detecting periods"
	ErrColumnNotInRange = "Column %s is outside the periods range"
	ErrColumnNotMapped  = "Column %s has no period to edit"
	ErrPeriodField      = "Invalid period value: %s"
	ErrUnknownAction    = "Unknown editor action"
)

// ============================================================================
// CONFIGURATION ERRORS
// ============================================================================

const (
	ErrConfigNotFound    = "Configuration not found"
	ErrConfigInactive    = "Configuration has been deactivated"
	ErrVersionConflict   = "Configuration was saved by someone else. Reload it and apply your changes again"
	ErrInvalidMapping    = "Fix the period mapping before saving: %s"
	ErrPendingTextError  = "Fix the configuration JSON before saving"
	ErrTextParse         = "Configuration JSON is invalid: %s"
	ErrUnsupportedFormat = "Unsupported configuration format"
)

// ============================================================================
// WORKBOOK ERRORS
// ============================================================================

const (
	ErrWorkbookMissing     = "Upload a workbook in the 'file' field"
	ErrWorkbookUnsupported = "Only .xlsx and .xls workbooks are supported"
	ErrWorkbookUnreadable  = "Workbook could not be read"
	ErrSheetNotFound       = "Sheet %s was not found in the workbook"
	ErrNoPeriodsMapped     = "Configuration maps no period columns"
)

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

// FormatError formats an error message with parameters
func FormatError(template string, args ...interface{}) string {
	return fmt.Sprintf(template, args...)
}
