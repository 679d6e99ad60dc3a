package provider

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// UpstreamError is a failure reported by an AI provider API. It carries the
// upstream HTTP status so the endpoint and the classifier can tell auth,
// rate-limit and maintenance failures apart.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("La API de '%s' falló (%d): %s", e.Provider, e.Status, e.Message)
}

// newUpstreamError extracts an error description from a non-success upstream
// response: a JSON `error.message` payload when present, the raw body text
// otherwise.
func newUpstreamError(providerName string, resp *http.Response) *UpstreamError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	message := string(body)
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "error.message"); m.Exists() {
			message = m.String()
		}
	}

	return &UpstreamError{
		Provider: providerName,
		Status:   resp.StatusCode,
		Message:  message,
	}
}
