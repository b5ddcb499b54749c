package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"stockroom/internal/model"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Pagination defaults for list endpoints.
const (
	defaultPage  = 1
	defaultLimit = 10
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response carrying the request's correlation id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("code", code).
		Str("error", message).
		Int("status", status).
		Str("request_id", chimw.GetReqID(r.Context())).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: chimw.GetReqID(r.Context()),
	})
}

// writeServiceError maps a service error to its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "Internal server error", logger)
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case model.KindValidation:
		status = http.StatusUnprocessableEntity
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindConflict:
		status = http.StatusConflict
	case model.KindTransient:
		w.Header().Set("Retry-After", "1")
		status = http.StatusServiceUnavailable
	}

	writeError(w, r, status, de.Code, de.Message, logger)
}

// decodeAndValidate decodes the JSON body into dst and validates it. It
// writes the error response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "Invalid request body", logger)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeValidationFailed, validationMessage(err), logger)
		return false
	}

	return true
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed '%s=%s'", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed '%s'", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// pagination parses the page and limit query parameters into limit and offset.
func pagination(r *http.Request) (limit, offset int, err error) {
	page := defaultPage
	limit = defaultLimit

	if s := r.URL.Query().Get("page"); s != "" {
		page, err = strconv.Atoi(s)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page parameter")
		}
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit parameter")
		}
		limit = min(limit, service.MaxPageSize)
	}

	return limit, (page - 1) * limit, nil
}
