package whatsapp

import "strings"

// The upstream library reports group IQ failures with the server status code
// and tag embedded in the error text (e.g. "info query returned status 403
// (forbidden)"). Classification inspects that text rather than depending on
// the library's error variables.

// IsForbiddenError reports whether err is an access-denied group response,
// seen for groups the account was removed from or never joined.
func IsForbiddenError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "forbidden") ||
		strings.Contains(text, "not-authorized") ||
		strings.Contains(text, "status 403")
}

// IsRateLimitError reports whether err is a server rate-limit rejection.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "rate-overlimit") ||
		strings.Contains(text, "status 429")
}
