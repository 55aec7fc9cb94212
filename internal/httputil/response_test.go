package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialcore/internal/model"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found sentinel", model.ErrPostNotFound, http.StatusNotFound},
		{"wrapped not found sentinel", errWrap{model.ErrCommentNotFound}, http.StatusNotFound},
		{"forbidden sentinel", model.ErrNotPostAuthor, http.StatusForbidden},
		{"invalid credentials", model.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not confirmed", model.ErrNotConfirmed, http.StatusUnauthorized},
		{"reaction conflict", model.ErrReactionConflict, http.StatusConflict},
		{"transient", model.ErrTransient, http.StatusInternalServerError},
		{"validation-flavored sentinel", model.ErrWeakPassword, http.StatusUnprocessableEntity},
		{"structured validation error", model.NewValidationError("title", "too short"), http.StatusUnprocessableEntity},
		{"unrecognized error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestWriteError_ValidationShapeIsFlatErrorsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, model.NewValidationError("email", "is invalid"))

	var body struct {
		Errors []model.FieldError `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Errors) != 1 || body.Errors[0].Field != "email" {
		t.Errorf("unexpected body: %+v", body.Errors)
	}
}

func TestWriteError_PlainMessageShapeIsFlatString(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, model.ErrPostNotFound)

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := body["error"]; !ok {
		t.Errorf("expected a flat {\"error\":...} body, got %v", body)
	}
}

// errWrap exercises errors.Is unwrapping through WriteError.
type errWrap struct{ err error }

func (e errWrap) Error() string { return "wrapped: " + e.err.Error() }
func (e errWrap) Unwrap() error { return e.err }
