// Package httpapi exposes both services over REST: routing, middleware,
// request decoding and the mapping from typed failures to status codes.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bookhaven/bookorders/internal/apperrors"
	"go.uber.org/zap"
)

// errorBody is the JSON error envelope. Errors is present only for
// validation failures and carries one message per violated field.
type errorBody struct {
	StatusCode int               `json:"status_code"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError translates err into the transport response. Internal errors are
// logged and reported with a generic message; everything else surfaces its
// own message.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := apperrors.HTTPStatus(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.Error(err),
		)
		message = "the server encountered a problem and could not process your request"
	}

	writeJSON(w, status, errorBody{
		StatusCode: status,
		Message:    message,
		Errors:     apperrors.FieldsOf(err),
	})
}

// decodeJSON decodes the request body into v, reporting malformed bodies as
// InvalidArgument.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidArgumentf("invalid request body: %s", err)
	}
	return nil
}

// readString reads a string query parameter, returning defaultValue when absent.
func readString(qs url.Values, key, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

// readInt reads an integer query parameter, returning defaultValue when
// absent or unparseable.
func readInt(qs url.Values, key string, defaultValue int) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return n
}

// readInt64 reads an int64 query parameter, returning defaultValue when
// absent or unparseable.
func readInt64(qs url.Values, key string, defaultValue int64) int64 {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

// readBool reads a boolean query parameter, returning defaultValue when
// absent or unparseable.
func readBool(qs url.Values, key string, defaultValue bool) bool {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return b
}
