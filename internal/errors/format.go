package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ee, ok := err.(*EngineError)
	if !ok {
		ee = Wrap(CodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ee.Message))
	if ee.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ee.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ee.Code))
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns the JSON representation of an error, for the
// CLI's --json mode.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ee, ok := err.(*EngineError)
	if !ok {
		ee = Wrap(CodeInternal, err)
	}

	je := jsonError{
		Code:       ee.Code,
		Message:    ee.Message,
		Category:   string(ee.Category),
		Severity:   string(ee.Severity),
		Details:    ee.Details,
		Suggestion: ee.Suggestion,
		Retryable:  ee.Retryable,
	}
	if ee.Cause != nil {
		je.Cause = ee.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog returns slog attributes for structured logging.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ee, ok := err.(*EngineError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": ee.Code,
		"message":    ee.Message,
		"category":   string(ee.Category),
		"severity":   string(ee.Severity),
		"retryable":  ee.Retryable,
	}
	if ee.Cause != nil {
		result["cause"] = ee.Cause.Error()
	}
	if ee.Suggestion != "" {
		result["suggestion"] = ee.Suggestion
	}
	for k, v := range ee.Details {
		result["detail_"+k] = v
	}
	return result
}
