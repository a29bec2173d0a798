package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/ecommerce-admin/pkg/errors"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 1 << 20

// errorPayload covers the error bodies the backend is known to send:
// {"message": "..."}, {"error": {"code", "message"}} and {"error": "..."}.
type errorPayload struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and turns it
// into a RequestError carrying the backend's message, or the generic status
// message when the body cannot be parsed. The body is consumed and closed.
func ParseResponseError(resp *http.Response) *apperrors.RequestError {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.NewRequestError(resp.StatusCode, "")
	}
	return apperrors.NewRequestError(resp.StatusCode, errorMessage(bodyBytes))
}

// errorMessage extracts the human-readable message from an error body.
func errorMessage(body []byte) string {
	var payload errorPayload
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	if len(payload.Error) == 0 {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	var flat string
	if json.Unmarshal(payload.Error, &flat) == nil {
		return strings.TrimSpace(flat)
	}
	return ""
}
