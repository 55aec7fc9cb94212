// Package httputil holds the JSON response helpers and the single
// place where domain sentinel errors are mapped to the response
// shapes of §7.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"socialcore/internal/model"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteValidationError writes the §7 ValidationError shape: 422 with
// body {"errors":[...]}.
func WriteValidationError(w http.ResponseWriter, verr *model.ValidationError) {
	WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Errors})
}

// WriteErrorMessage writes the §7 plain-string error shape used by
// NotFound/Forbidden/Unauthenticated/Conflict/Transient.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusConflict, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusInternalServerError, message)
}

// notFoundErrors maps every domain NotFound sentinel to its message.
var notFoundErrors = map[error]string{
	model.ErrUserNotFound:         "user not found",
	model.ErrPostNotFound:         "post not found",
	model.ErrCommentNotFound:      "comment not found",
	model.ErrCommentableNotFound:  "commentable parent not found",
	model.ErrTagNotFound:          "tag not found",
	model.ErrNotificationNotFound: "notification not found",
	model.ErrReactionTargetNotFound: "reaction target not found",
}

var forbiddenErrors = map[error]string{
	model.ErrForbidden:         "forbidden",
	model.ErrNotPostAuthor:     "only the author can modify this post",
	model.ErrNotCommentAuthor:  "only the author can modify this comment",
}

// WriteError inspects err against the taxonomy of §7 and writes the
// matching response. Unrecognized errors are surfaced as a 500 with a
// generic message; nothing here logs them.
func WriteError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		WriteValidationError(w, verr)
		return
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials), errors.Is(err, model.ErrNotConfirmed):
		WriteUnauthorized(w, err.Error())
		return
	case errors.Is(err, model.ErrReactionConflict):
		WriteConflict(w, err.Error())
		return
	case errors.Is(err, model.ErrTransient):
		WriteInternalError(w, "try again")
		return
	}

	for sentinel, message := range notFoundErrors {
		if errors.Is(err, sentinel) {
			WriteNotFound(w, message)
			return
		}
	}
	for sentinel, message := range forbiddenErrors {
		if errors.Is(err, sentinel) {
			WriteForbidden(w, message)
			return
		}
	}

	// Validation-flavored sentinels that aren't a *model.ValidationError.
	switch {
	case errors.Is(err, model.ErrInvalidName), errors.Is(err, model.ErrInvalidEmail),
		errors.Is(err, model.ErrWeakPassword), errors.Is(err, model.ErrEmailExists),
		errors.Is(err, model.ErrNameExists), errors.Is(err, model.ErrTitleTooShort),
		errors.Is(err, model.ErrDescriptionTooShort), errors.Is(err, model.ErrCommentTooShort),
		errors.Is(err, model.ErrInvalidReactionKind):
		WriteValidationError(w, model.NewValidationError("", err.Error()))
		return
	}

	WriteInternalError(w, "internal error")
}
