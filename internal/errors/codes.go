// Package errors provides structured error handling for the retrieval
// engine.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Dictionary and asset errors
//   - 3XX: Network errors (embedder, reranker, redis)
//   - 4XX: Validation errors
//   - 5XX: Store and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryDict       Category = "DICT"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	CodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	CodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Dictionary errors (200-299)
	CodeDictLoad      = "ERR_201_DICT_LOAD"
	CodeSynonymSource = "ERR_202_SYNONYM_SOURCE"

	// Network errors (300-399)
	CodeEmbedUnavailable  = "ERR_301_EMBEDDER_UNAVAILABLE"
	CodeRerankUnavailable = "ERR_302_RERANKER_UNAVAILABLE"
	CodeNetworkTimeout    = "ERR_303_NETWORK_TIMEOUT"

	// Validation errors (400-499)
	CodeQueryEmpty        = "ERR_401_QUERY_EMPTY"
	CodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	CodeInvalidPage       = "ERR_403_INVALID_PAGE"

	// Store and internal errors (500-599)
	CodeStoreUnavailable = "ERR_501_STORE_UNAVAILABLE"
	CodeSearchFailed     = "ERR_502_SEARCH_FAILED"
	CodeInternal         = "ERR_503_INTERNAL"
)

// categoryFromCode extracts the category from the numeric portion of
// an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryDict
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on the error code.
// Store failures degrade to empty results rather than aborting, so
// they carry warning severity.
func severityFromCode(code string) Severity {
	switch code {
	case CodeConfigNotFound, CodeConfigInvalid:
		return SeverityFatal
	case CodeRerankUnavailable, CodeStoreUnavailable:
		return SeverityWarning
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether the code represents a transient
// failure worth retrying.
func isRetryableCode(code string) bool {
	switch code {
	case CodeEmbedUnavailable, CodeRerankUnavailable, CodeNetworkTimeout, CodeStoreUnavailable:
		return true
	}
	return false
}
