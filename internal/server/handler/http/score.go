package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Otar989/bugman-bot/internal/metrics"
	"github.com/Otar989/bugman-bot/internal/models"
	"github.com/Otar989/bugman-bot/internal/service"
	"go.uber.org/zap"
)

const reasonInvalidBody = "invalid request body"

// ScoreSubmitter runs the score intake pipeline.
type ScoreSubmitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (models.SubmitOutcome, error)
}

// ScoreHandler handles POST /score.
type ScoreHandler struct {
	// IntakeService verifies, throttles and stores submissions.
	IntakeService ScoreSubmitter
	// RetryAfter is the rate limit window reported in the Retry-After header.
	RetryAfter time.Duration
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// ScoreRequest is the JSON payload of a score submission.
type ScoreRequest struct {
	InitData string `json:"initData"`
	Score    *int64 `json:"score"`
}

// ScoreResponse is returned for an accepted submission.
type ScoreResponse struct {
	OK        bool  `json:"ok"`
	Score     int64 `json:"score"`
	IsNewBest bool  `json:"isNewBest"`
}

// Submit decodes the payload, runs the intake pipeline and maps its typed
// failures onto HTTP statuses. Internal causes are logged, never returned.
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Metrics.Submissions.WithLabelValues(string(service.CodeBadRequest)).Inc()
		writeError(w, http.StatusBadRequest, service.CodeBadRequest, reasonInvalidBody)
		return
	}

	out, err := h.IntakeService.Submit(r.Context(), service.SubmitRequest{
		InitData: req.InitData,
		Score:    req.Score,
	})
	if err != nil {
		h.writeIntakeError(w, err)
		return
	}

	result := metrics.ResultAccepted
	if out.IsNewBest {
		result = metrics.ResultNewBest
	}
	h.Metrics.Submissions.WithLabelValues(result).Inc()

	writeJSON(w, http.StatusOK, ScoreResponse{OK: true, Score: out.StoredScore, IsNewBest: out.IsNewBest})
}

func (h *ScoreHandler) writeIntakeError(w http.ResponseWriter, err error) {
	var ie *service.IntakeError
	if !errors.As(err, &ie) {
		ie = &service.IntakeError{Code: service.CodeStorageUnavailable, Err: err}
	}
	h.Metrics.Submissions.WithLabelValues(string(ie.Code)).Inc()

	switch ie.Code {
	case service.CodeBadRequest:
		h.Logger.Debug("score rejected", zap.String("reason", ie.Reason), zap.Error(ie.Err))
		writeError(w, http.StatusBadRequest, ie.Code, ie.Reason)
	case service.CodeInvalidInitData:
		h.Logger.Info("init data verification failed", zap.Error(ie.Err))
		writeError(w, http.StatusUnauthorized, ie.Code, "")
	case service.CodeTooManyRequests:
		if secs := retryAfterSeconds(h.RetryAfter); secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		writeError(w, http.StatusTooManyRequests, ie.Code, ie.Reason)
	default:
		h.Logger.Error("score submission failed", zap.Error(ie.Err))
		writeError(w, http.StatusServiceUnavailable, service.CodeStorageUnavailable, "")
	}
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
