package handlers

import (
	"net/http"

	"github.com/yeti47/framegrab/server/core/media"
)

// statusForError maps an extraction error kind to an HTTP status code
func statusForError(err error) int {
	switch media.KindOf(err) {
	case media.KindValidation:
		return http.StatusBadRequest
	case media.KindSpawn, media.KindCanceled:
		return http.StatusServiceUnavailable
	case media.KindTimeout:
		return http.StatusGatewayTimeout
	case media.KindExecutionFailed, media.KindOutputMissing, media.KindOutputEmpty:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON payload of every failed request
func errorBody(err error) map[string]any {
	body := map[string]any{"error": err.Error()}
	if kind := media.KindOf(err); kind != 0 {
		body["kind"] = kind.String()
	}
	return body
}
