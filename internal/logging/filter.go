// Package logging provides logging utilities including sensitive data filtering.
// The benchmark harness shells out to agent CLIs that authenticate with
// provider API keys, so command lines and captured output can carry
// credentials. This package contains hooks and utilities for zerolog that
// ensure those values are never written to log files.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns contains compiled regular expressions for detecting sensitive values.
// These patterns match the credential formats of the agent backends GAUNTLET
// drives plus common generic shapes.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Package-level patterns for reuse
	// Anthropic API keys (sk-ant-api...)
	regexp.MustCompile(`sk-ant-api[a-zA-Z0-9_-]+`),

	// OpenAI API keys (sk-...)
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),

	// Google API keys (AIza...)
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{30,}`),

	// GitHub tokens (ghp_, gho_, ghu_, ghs_, ghr_)
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),

	// Generic API keys (any string with api_key, apikey, api-key followed by value)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?([a-zA-Z0-9_-]{16,})["']?`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_-]{20,}`),

	// Authorization headers with tokens
	regexp.MustCompile(`(?i)authorization\s*[:=]\s*["']?[a-zA-Z0-9_-]{20,}["']?`),

	// Generic secret patterns (secret, password, credential, token with values)
	regexp.MustCompile(`(?i)(secret|password|credential|passwd|pwd)\s*[:=]\s*["']?[^\s"']{8,}["']?`),

	// SSH private keys (starts with -----)
	regexp.MustCompile(`(?i)-----BEGIN[A-Z\s]+PRIVATE KEY-----`),

	// Base64-encoded secrets that look like tokens (long alphanumeric strings)
	regexp.MustCompile(`(?i)(token|auth)\s*[:=]\s*["']?[a-zA-Z0-9+/=]{32,}["']?`),
}

// sensitiveFieldNames contains field names that should always have their values redacted.
// Case-insensitive matching is performed.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // Package-level patterns for reuse
	"api_key",
	"apikey",
	"api-key",
	"auth_token",
	"authtoken",
	"auth-token",
	"password",
	"passwd",
	"secret",
	"credential",
	"credentials",
	"private_key",
	"privatekey",
	"private-key",
	"access_token",
	"accesstoken",
	"access-token",
	"refresh_token",
	"refreshtoken",
	"refresh-token",
	"bearer",
	"authorization",
	"anthropic_api_key",
	"openai_api_key",
	"gemini_api_key",
	"google_api_key",
	"github_token",
}

// SensitiveDataHook is a zerolog hook that flags log entries carrying
// sensitive data. It examines the message string and marks events whose
// content matches known sensitive patterns.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a new SensitiveDataHook for filtering sensitive data.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements the zerolog.Hook interface.
// Zerolog hooks cannot rewrite the message or existing fields, so the hook
// only flags the event; actual redaction happens via FilterSensitiveValue
// at call sites and FilteringWriter on file output.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData checks if a string contains any sensitive data patterns.
// Returns true if any sensitive pattern is found.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue filters sensitive data from a string value.
// It replaces any matches of sensitive patterns with [REDACTED].
// Use this when logging values that may embed credentials, such as
// executor command lines or captured harness output.
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// sensitiveFieldSet enables O(1) exact-match lookups for the common case.
var sensitiveFieldSet = func() map[string]struct{} { //nolint:gochecknoglobals // Derived lookup table
	set := make(map[string]struct{}, len(sensitiveFieldNames))
	for _, name := range sensitiveFieldNames {
		set[name] = struct{}{}
	}
	return set
}()

// fieldSeparators are the characters that delimit words in field names.
var fieldSeparators = []string{"_", "-"} //nolint:gochecknoglobals // Package-level patterns for reuse

// IsSensitiveFieldName checks if a field name indicates sensitive data.
// A field is sensitive when it exactly matches a known sensitive name or
// contains one as a separator-delimited word (user_api_key, db-password).
// Bare substrings do not match: "secretariat" is not "secret".
// Case-insensitive matching is performed.
func IsSensitiveFieldName(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)

	// Fast path: exact match
	if _, ok := sensitiveFieldSet[lowerName]; ok {
		return true
	}

	// Slow path: separator-delimited occurrences
	for _, sensitive := range sensitiveFieldNames {
		if matchesSensitivePattern(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// matchesSensitivePattern reports whether name equals the sensitive word or
// contains it delimited by field separators.
func matchesSensitivePattern(name, sensitive string) bool {
	if name == "" || sensitive == "" {
		return false
	}
	if name == sensitive {
		return true
	}
	return containsWordBoundary(name, sensitive, fieldSeparators)
}

// containsWordBoundary reports whether word occurs in name delimited by one
// of the separators: as a prefix (password_hash), a suffix (db_password), or
// an infix (my_password_field). An exact match is not a boundary occurrence.
func containsWordBoundary(name, word string, seps []string) bool {
	if name == "" || word == "" {
		return false
	}
	for _, sep := range seps {
		if strings.HasPrefix(name, word+sep) {
			return true
		}
		if strings.HasSuffix(name, sep+word) {
			return true
		}
		for _, sep2 := range seps {
			if strings.Contains(name, sep+word+sep2) {
				return true
			}
		}
	}
	return false
}

// RedactIfSensitive returns [REDACTED] if the field name indicates sensitive data,
// otherwise returns the value with sensitive patterns filtered out.
func RedactIfSensitive(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// SafeValue returns a filtered value for a field, redacting sensitive data.
// This is a convenience wrapper for adding filtered string fields to log events.
//
// Usage:
//
//	log.Info().Str("command", logging.SafeValue("command", cmdline)).Msg("unit started")
func SafeValue(fieldName, value string) string {
	return RedactIfSensitive(fieldName, value)
}

// FilteringWriter wraps an io.Writer and filters sensitive data from output.
// The global CLI log and the per-worker logs are written through this wrapper
// so credentials never reach disk, even when they appear mid-message.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a new FilteringWriter that wraps the given writer.
// All data written through this writer will have sensitive patterns redacted.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer, filtering sensitive data before writing.
func (fw *FilteringWriter) Write(p []byte) (n int, err error) {
	filtered := FilterSensitiveValue(string(p))
	_, err = fw.w.Write([]byte(filtered))
	if err != nil {
		return 0, err
	}
	// Return original length so callers don't think there was a short write
	return len(p), nil
}
