package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteData writes a success envelope wrapping the provided payload.
func WriteData(w http.ResponseWriter, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	payload := map[string]any{"success": true}
	if data != nil {
		payload["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
