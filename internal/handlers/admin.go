package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studymate-bot/internal/middleware"
	"studymate-bot/internal/models"
	"studymate-bot/internal/repository"
)

// SessionStore is the read side of the session store.
type SessionStore interface {
	Peek(userID int64) (*models.UserSession, bool)
	Count() int
}

type AdminHandler struct {
	sessions     SessionStore
	memory       repository.MemoryLog
	jwtAuth      *middleware.JWTAuth
	passwordHash []byte
	stats        func() models.StatsResponse
	log          *zap.Logger
}

func NewAdminHandler(
	sessions SessionStore,
	memory repository.MemoryLog,
	jwtAuth *middleware.JWTAuth,
	passwordHash string,
	stats func() models.StatsResponse,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		sessions:     sessions,
		memory:       memory,
		jwtAuth:      jwtAuth,
		passwordHash: []byte(passwordHash),
		stats:        stats,
		log:          log.Named("admin_api"),
	}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if len(h.passwordHash) == 0 || bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)) != nil {
		h.log.Warn("admin login rejected", zap.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, errorResp("INVALID_CREDENTIALS", "Invalid password", r))
		return
	}

	token, ttl, err := h.jwtAuth.GenerateAdminToken("admin")
	if err != nil {
		h.log.Error("sign admin token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Could not issue token", r))
		return
	}

	writeJSON(w, http.StatusOK, models.AdminLoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(ttl / time.Second),
	})
}

func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	session, exists := h.sessions.Peek(userID)
	if !exists {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No session for this user", r))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AdminHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	tier, err := models.ParseMemoryTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "tier must be short or long", r))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	log, err := h.memory.Load(ctx, userID, tier)
	if err != nil {
		h.log.Error("load memory", zap.Int64("user_id", userID), zap.String("tier", string(tier)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Could not read memory log", r))
		return
	}

	writeJSON(w, http.StatusOK, models.MemoryResponse{
		UserID: userID,
		Tier:   tier,
		Lines:  repository.SplitLines(log),
	})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats())
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}
