package http

import (
	stdjson "encoding/json"
	stdhttp "net/http"

	perr "invitehound/internal/platform/errors"
	"invitehound/internal/platform/logger"
)

// Wire is a common envelope used by JSON handlers
type Wire struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// JSON writes data as a 200 JSON envelope
func JSON(w stdhttp.ResponseWriter, data any) {
	writeJSON(w, stdhttp.StatusOK, Wire{
		StatusCode: stdhttp.StatusOK,
		Status:     stdhttp.StatusText(stdhttp.StatusOK),
		Data:       data,
	})
}

// JSONError writes an error envelope with the mapped status
func JSONError(w stdhttp.ResponseWriter, err error) {
	status := perr.HTTPStatus(err)
	writeJSON(w, status, Wire{
		StatusCode: status,
		Status:     stdhttp.StatusText(status),
		Code:       perr.CodeOf(err),
		Error:      err.Error(),
	})
}

// HTML writes an HTML page with utf-8 charset
func HTML(w stdhttp.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Named("http").Debug().Err(err).Msg("html write failed")
	}
}

func writeJSON(w stdhttp.ResponseWriter, status int, body Wire) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := stdjson.NewEncoder(w).Encode(body); err != nil {
		logger.Named("http").Debug().Err(err).Msg("json encode failed")
	}
}
