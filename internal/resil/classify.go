package resil

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"sitenav/internal/types"
)

var statusCodePattern = regexp.MustCompile(`\b([45]\d{2})\b`)

var permissionKeywords = []string{
	"permission", "unauthorized", "forbidden", "401", "403",
	"authentication", "access denied", "access is denied", "not authorized",
}

var networkKeywords = []string{
	"network", "fetch", "timeout", "timed out", "connection",
	"econnrefused", "econnreset", "enotfound", "no such host", "dns",
	"dial tcp", "eof", "unreachable", "service unavailable",
}

var validationKeywords = []string{
	"parse", "invalid", "malformed", "schema", "unexpected token",
	"cannot unmarshal", "decode",
}

// Classify maps an arbitrary error to one of the four categories. Evidence
// order: an explicit category tag set at the point of creation, then an HTTP
// status code embedded in the message, then keyword sets, then Unknown.
// Total over any input, including nil.
func Classify(err error) types.ErrorCategory {
	if err == nil {
		return types.CategoryUnknown
	}

	var ce *types.CategorizedError
	if errors.As(err, &ce) && ce.Category.Known() {
		return ce.Category
	}

	msg := err.Error()
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		if cat, ok := classifyStatus(code); ok {
			return cat
		}
	}

	lower := strings.ToLower(msg)
	for _, kw := range permissionKeywords {
		if strings.Contains(lower, kw) {
			return types.CategoryPermission
		}
	}
	for _, kw := range networkKeywords {
		if strings.Contains(lower, kw) {
			return types.CategoryNetwork
		}
	}
	for _, kw := range validationKeywords {
		if strings.Contains(lower, kw) {
			return types.CategoryValidation
		}
	}
	return types.CategoryUnknown
}

// classifyStatus maps an HTTP status code to a category. 408 and 504 are
// timeouts and count as network trouble despite their 4xx/5xx split.
func classifyStatus(code int) (types.ErrorCategory, bool) {
	switch {
	case code == 401 || code == 403:
		return types.CategoryPermission, true
	case code >= 500 || code == 408:
		return types.CategoryNetwork, true
	case code >= 400 && code < 500:
		return types.CategoryValidation, true
	}
	return types.CategoryUnknown, false
}

// FromStatus builds a tagged error for an HTTP response status so downstream
// classification never has to fall back to message scanning.
func FromStatus(status int, msg string, inner error) *types.CategorizedError {
	cat, ok := classifyStatus(status)
	if !ok {
		cat = types.CategoryUnknown
	}
	return types.NewCategorized(cat, status, msg, inner)
}
