package observability

import "strings"

// Length caps applied to request metadata before it reaches the log stream.
// Routes are the longest field recorded; identifiers stay short.
const (
	maxRouteLen  = 180
	maxMethodLen = 10
	maxActorLen  = 64
)

// logSafe strips control characters so a crafted path or header cannot split
// or forge log lines, then truncates to max runes.
func logSafe(value string, max int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
	runes := []rune(cleaned)
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}

// SanitizeRoute normalises a request path for logging. Empty paths log as "/".
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return logSafe(route, maxRouteLen)
}

// SanitizeMethod guards the HTTP method field.
func SanitizeMethod(method string) string {
	return logSafe(method, maxMethodLen)
}

// SanitizeUserID shortens user identifiers so raw account data stays out of
// the logs.
func SanitizeUserID(uid string) string {
	return logSafe(uid, maxActorLen)
}
