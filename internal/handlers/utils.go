package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/apperr"
	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
	"github.com/go-playground/validator/v10"
)

type contextKey string

const (
	contextActorKey  contextKey = "actor"
	contextClaimsKey contextKey = "claims"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func actorFromContext(ctx context.Context) (types.Actor, error) {
	actor, ok := ctx.Value(contextActorKey).(types.Actor)
	if !ok || actor.ID < 1 {
		return types.Actor{}, errors.New("missing actor")
	}
	return actor, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeAppError maps the service error taxonomy onto stable, distinguishable
// statuses so clients can branch on the outcome.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrDependency):
		writeError(w, http.StatusBadGateway, "a backing service failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}
