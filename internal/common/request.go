package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies to keep decode cost bounded.
const maxBodyBytes = 1 << 20

// DecodeJSON reads the request body into dst and runs struct validation when
// a validator is provided. The returned error is suitable for rendering with
// WriteValidationError.
func DecodeJSON(r *http.Request, v *validator.Validate, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return NewAppError("BAD_REQUEST", "invalid json body", http.StatusBadRequest, err)
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
			return &AppError{
				Code:       "VALIDATION",
				Message:    "request validation failed",
				HTTPStatus: http.StatusUnprocessableEntity,
				Err:        err,
				Details:    details,
			}
		}
		return NewAppError("VALIDATION", "request validation failed", http.StatusUnprocessableEntity, err)
	}
	return nil
}

// WriteError renders err, using the AppError shape when available and a
// generic 500 otherwise.
func WriteError(w http.ResponseWriter, err error) {
	if appErr, ok := AsAppError(err); ok {
		JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
