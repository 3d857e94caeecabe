package http

import (
	"encoding/json"
	"net/http"

	"github.com/Otar989/bugman-bot/internal/models"
	"github.com/Otar989/bugman-bot/internal/service"
	"go.uber.org/zap"
)

// InitDataVerifier validates signed init data.
type InitDataVerifier interface {
	Verify(raw string) (models.VerifiedUser, error)
}

// DebugHandler handles POST /debug/verify. It only verifies; it never
// touches the leaderboard or the rate limiter.
type DebugHandler struct {
	Verifier InitDataVerifier
	Logger   *zap.Logger
}

// VerifyRequest is the payload of the diagnostic verify call.
type VerifyRequest struct {
	InitData string `json:"initData"`
}

// VerifyResponse describes successfully verified init data.
type VerifyResponse struct {
	OK          bool                `json:"ok"`
	Identity    string              `json:"identity"`
	DisplayName string              `json:"display_name"`
	User        models.TelegramUser `json:"user"`
	AuthDate    int64               `json:"auth_date,omitempty"`
	Fields      map[string]string   `json:"fields"`
}

// Verify reports the verifier's result. Unlike POST /score, a failure
// carries the internal reason.
func (h *DebugHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		writeError(w, http.StatusBadRequest, service.CodeBadRequest, "missing initData")
		return
	}

	user, err := h.Verifier.Verify(req.InitData)
	if err != nil {
		h.Logger.Info("debug verify failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, service.CodeInvalidInitData, err.Error())
		return
	}

	resp := VerifyResponse{
		OK:          true,
		Identity:    user.Identity,
		DisplayName: user.DisplayName(),
		User:        user.User,
		Fields:      user.Fields,
	}
	if !user.AuthDate.IsZero() {
		resp.AuthDate = user.AuthDate.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}
