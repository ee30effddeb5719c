package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/pavement-cli/internal/psv"
	"github.com/sells-group/pavement-cli/internal/tabular"
)

type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing_columns,omitempty"`
	Rows    []string `json:"invalid_rows,omitempty"`
}

// badRequest marks a problem with the request itself, such as a missing
// upload or an unparseable form field.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

// statusFor maps an error to its response status: input that was read but
// fails validation is 422, input that could not be read is 400.
func statusFor(err error) int {
	var (
		missing *tabular.MissingColumnsError
		invalid *psv.ValidationError
		read    *tabular.ReadError
		bad     *badRequest
		tooBig  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &read), errors.As(err, &bad):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) errorBody {
	body := errorBody{Error: err.Error()}

	var missing *tabular.MissingColumnsError
	if errors.As(err, &missing) {
		body.Missing = missing.Columns
	}
	var invalid *psv.ValidationError
	if errors.As(err, &invalid) {
		for _, r := range invalid.Rows {
			body.Rows = append(body.Rows, r.Error())
		}
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("web: encode response", zap.Error(err))
	}
}

// fail writes err as JSON or as the error page, depending on the requested
// format.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("web: request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		zap.L().Debug("web: rejected request", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	body := errorResponse(err)
	if status == http.StatusInternalServerError {
		body = errorBody{Error: "internal error"}
	}
	if responseFormat(r) != formatHTML {
		writeJSON(w, status, body)
		return
	}
	s.render(w, status, "error.html", body)
}
