package observability

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/dkotama/jastip-api/internal/platform/requestctx"
)

const traceparentHeader = "traceparent"

// TraceMiddleware extracts W3C traceparent headers, minting fresh identifiers
// when the caller supplied none, and stores trace metadata on the request context.
func TraceMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			info, ok := parseTraceparent(r.Header.Get(traceparentHeader))
			if !ok {
				info = requestctx.TraceInfo{TraceID: randomHex(16)}
			}
			info.SpanID = randomHex(8)

			ctx = requestctx.WithTrace(ctx, info)
			r = r.WithContext(ctx)

			if formatted := formatTraceparent(info); formatted != "" {
				w.Header().Set(traceparentHeader, formatted)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseTraceparent(header string) (requestctx.TraceInfo, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return requestctx.TraceInfo{}, false
	}

	// version-traceid-spanid-flags
	parts := strings.Split(header, "-")
	if len(parts) != 4 {
		return requestctx.TraceInfo{}, false
	}
	if len(parts[0]) != 2 || !isHex(parts[0]) || parts[0] == "ff" {
		return requestctx.TraceInfo{}, false
	}
	traceID := strings.ToLower(parts[1])
	if len(traceID) != 32 || !isHex(traceID) || traceID == strings.Repeat("0", 32) {
		return requestctx.TraceInfo{}, false
	}
	spanID := strings.ToLower(parts[2])
	if len(spanID) != 16 || !isHex(spanID) || spanID == strings.Repeat("0", 16) {
		return requestctx.TraceInfo{}, false
	}
	flags := strings.ToLower(parts[3])
	if len(flags) != 2 || !isHex(flags) {
		return requestctx.TraceInfo{}, false
	}

	flagBytes, _ := hex.DecodeString(flags)
	return requestctx.TraceInfo{
		TraceID: traceID,
		SpanID:  spanID,
		Sampled: flagBytes[0]&0x01 == 0x01,
	}, true
}

func formatTraceparent(info requestctx.TraceInfo) string {
	if info.TraceID == "" || info.SpanID == "" {
		return ""
	}
	flags := "00"
	if info.Sampled {
		flags = "01"
	}
	return fmt.Sprintf("00-%s-%s-%s", info.TraceID, info.SpanID, flags)
}

func isHex(value string) bool {
	if value == "" {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
