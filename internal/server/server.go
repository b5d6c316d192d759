// Package server implements the backend API the admin console and the
// verification web app talk to. Chat actions are executed through the
// messaging bot; membership rows are kept in step with the outcome.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"invitedesk/internal/invite"
	"invitedesk/internal/models"
	"invitedesk/internal/store"
)

// ChatActions is the slice of the bot the server needs: creating one-use
// invite links, messaging users, and banning members.
type ChatActions interface {
	InviteLink(ctx context.Context, chatID int64) (string, error)
	SendDirect(ctx context.Context, telegramUserID int64, text string) error
	Ban(ctx context.Context, chatID, telegramUserID int64) error
}

type Server struct {
	users   *store.UserStore
	members *store.MembershipStore
	actions ChatActions
	ledger  TokenLedger
}

func New(users *store.UserStore, members *store.MembershipStore, actions ChatActions, ledger TokenLedger) *Server {
	return &Server{
		users:   users,
		members: members,
		actions: actions,
		ledger:  ledger,
	}
}

// Router mounts the API. The chat action endpoints require an admin
// bearer token; verification and the legacy invite generator are public.
func (s *Server) Router(jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "API is running!"})
	})
	r.Get("/generate-invite", s.handleGenerateInvite)
	r.Post("/api/verify-webapp", s.handleVerifyWebApp)

	r.Group(func(admin chi.Router) {
		admin.Use(RequireAdmin(jwtSecret))
		admin.Post("/api/chats/sent-invitation", s.handleSendInvitation)
		admin.Post("/api/chats/remove-user", s.handleRemoveUser)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s [%s] %s", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), time.Since(start))
	})
}

type chatActionRequest struct {
	ChatID         int64 `json:"chat_id"`
	TelegramUserID int64 `json:"telegram_user_id"`
}

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	var req chatActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChatID == 0 || req.TelegramUserID == 0 {
		writeDetail(w, http.StatusBadRequest, "chat_id and telegram_user_id are required")
		return
	}

	ctx := r.Context()
	user, err := s.users.FindByTelegramID(ctx, req.TelegramUserID)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}

	link, err := s.actions.InviteLink(ctx, req.ChatID)
	if err != nil {
		log.Printf("Failed to create invite link for chat %d: %v", req.ChatID, err)
		writeDetail(w, http.StatusBadGateway, err.Error())
		return
	}
	text := "You have been invited to a chat. Join here:\n" + link
	if err := s.actions.SendDirect(ctx, req.TelegramUserID, text); err != nil {
		log.Printf("Failed to deliver invite to %d: %v", req.TelegramUserID, err)
		writeDetail(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := s.members.Put(ctx, user.ID, req.ChatID, models.MemberInvited); err != nil {
		log.Printf("Failed to record invite (%d,%d): %v", user.ID, req.ChatID, err)
		writeDetail(w, http.StatusInternalServerError, "failed to record invitation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "Invitation sent",
	})
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	var req chatActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChatID == 0 || req.TelegramUserID == 0 {
		writeDetail(w, http.StatusBadRequest, "chat_id and telegram_user_id are required")
		return
	}

	ctx := r.Context()
	if err := s.actions.Ban(ctx, req.ChatID, req.TelegramUserID); err != nil {
		// Telegram-level refusals come back as errors here; the caller
		// must never read them as a state change.
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if user, err := s.users.FindByTelegramID(ctx, req.TelegramUserID); err == nil {
		if err := s.members.Delete(ctx, user.ID, req.ChatID); err != nil {
			log.Printf("Removed from chat but failed to delete membership (%d,%d): %v", user.ID, req.ChatID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "User removed successfully",
	})
}

type verifyRequest struct {
	InviteToken    string `json:"inviteToken"`
	TelegramUserID string `json:"telegram_user_id"`
	InitData       string `json:"initData"`
}

func (s *Server) handleVerifyWebApp(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "error": "invalid request body",
		})
		return
	}
	if req.InviteToken == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false, "error": "invite token is required",
		})
		return
	}

	ctx := r.Context()

	// A token that already went through returns success without touching
	// the user record again.
	if done, err := s.ledger.WasVerified(ctx, req.InviteToken); err == nil && done {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}

	user, err := s.users.FindByActivationCode(ctx, req.InviteToken)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false, "error": "invalid or expired token",
		})
		return
	}

	telegramID, _ := strconv.ParseInt(req.TelegramUserID, 10, 64)
	if user.Status != models.StatusVerified {
		if err := s.users.MarkVerified(ctx, user.ID, telegramID, ""); err != nil {
			log.Printf("Failed to mark user %d verified: %v", user.ID, err)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": false, "error": "could not update record, try again",
			})
			return
		}
	}

	if err := s.ledger.MarkVerified(ctx, req.InviteToken); err != nil {
		log.Printf("Failed to record verified token: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleGenerateInvite(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"invite": invite.NewCode()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
