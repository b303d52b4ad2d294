package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wfunc/sololeveling/models"
	"github.com/wfunc/sololeveling/services"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, r, bodyError(err))
		return false
	}
	return true
}

// bodyError reports an undecodable body as a validation failure naming the
// offending field when the decoder knows it.
func bodyError(err error) error {
	issue := services.Issue{Field: "body", Message: "malformed JSON"}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			issue.Field = typeErr.Field
		}
		issue.Message = fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	return &services.ValidationError{Issues: []services.Issue{issue}}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.svc.Players.Profile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var alloc models.StatBlock
	if !decodeJSON(w, r, &alloc) {
		return
	}
	userID := userIDFrom(r.Context())
	if _, err := s.svc.Players.AllocateStats(r.Context(), userID, alloc); err != nil {
		writeError(w, r, err)
		return
	}
	prof, err := s.svc.Players.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := s.svc.Quests.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quests)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	if _, err := s.svc.Quests.CheckAndResetDaily(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.svc.Quests.EnsureDaily(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type emergencyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Hours       int    `json:"hours"`
}

func (s *Server) handleEmergency(w http.ResponseWriter, r *http.Request) {
	var req emergencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := s.svc.Quests.TriggerEmergency(r.Context(), userIDFrom(r.Context()), req.Title, req.Description, req.Hours)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type expiredBody struct {
	Message      string        `json:"message"`
	PenaltyQuest *models.Quest `json:"penaltyQuest"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Settlement.Complete(r.Context(), userIDFrom(r.Context()), r.PathValue("id"))
	if errors.Is(err, services.ErrQuestExpired) && res != nil && res.Failure != nil {
		writeJSON(w, http.StatusGone, expiredBody{Message: "quest expired", PenaltyQuest: res.Failure.PenaltyQuest})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*services.CompleteResult
	}{true, res})
}

func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Settlement.Fail(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), services.ReasonManual)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*services.FailResult
	}{true, res})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Quests.Tick(r.Context(), userIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Expired {
		writeJSON(w, http.StatusGone, expiredBody{Message: "quest expired", PenaltyQuest: res.PenaltyQuest})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompletedHistory(w http.ResponseWriter, r *http.Request) {
	quests, err := s.svc.Quests.CompletedHistory(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quests)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Inventory.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleEquip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Equip *bool `json:"equip"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Equip == nil {
		writeError(w, r, &services.ValidationError{Issues: []services.Issue{{Field: "equip", Message: "is required"}}})
		return
	}
	item, err := s.svc.Inventory.Equip(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), *req.Equip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleShopItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Shop.Items())
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"itemId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.svc.Shop.Purchase(r.Context(), userIDFrom(r.Context()), req.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Analytics.Summary(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Skills.List())
}

func (s *Server) handleMySkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.svc.Skills.Mine(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skills)
}

func (s *Server) handleUnlockSkill(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Skills.Unlock(r.Context(), userIDFrom(r.Context()), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
