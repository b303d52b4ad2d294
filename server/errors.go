package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/services"
)

type errorBody struct {
	Message string           `json:"message"`
	Issues  []services.Issue `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnw("encode response failed", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// statusFor maps service errors to HTTP status codes. Quests and items of
// other players are reported as missing.
func statusFor(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrQuestNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrUnknownShopItem),
		errors.Is(err, services.ErrSkillNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientStatPoints),
		errors.Is(err, services.ErrSkillLocked):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrQuestNotActive),
		errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrQuestExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "user_id", userIDFrom(r.Context()), "error", err)
		writeMessage(w, status, "internal server error")
		return
	}

	body := errorBody{Message: err.Error()}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		body.Message = "validation failed"
		body.Issues = verr.Issues
	}
	writeJSON(w, status, body)
}
