package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Otar989/bugman-bot/internal/initdata"
	"github.com/Otar989/bugman-bot/internal/models"
	"github.com/Otar989/bugman-bot/internal/ratelimit"
)

// Code is the public error code reported to clients.
type Code string

const (
	// CodeBadRequest marks a missing or out-of-policy input.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInitData covers every verification failure.
	CodeInvalidInitData Code = "invalid_init_data"
	// CodeTooManyRequests marks a rate-limited submission.
	CodeTooManyRequests Code = "too_many_requests"
	// CodeStorageUnavailable marks an infrastructure failure.
	CodeStorageUnavailable Code = "storage_unavailable"
)

// Public reasons attached to some codes.
const (
	ReasonMissingFields = "missing initData or score"
	ReasonRateLimited   = "rate_limited"
	ReasonInvalidScore  = "invalid_score"
)

// unverifiedKeyPrefix namespaces limiter keys when verification is off, so
// claimed identities never share a window with verified ones.
const unverifiedKeyPrefix = "unverified:"

// IntakeError is the typed failure of Submit. Code and Reason are safe to
// show to clients; Err keeps the internal cause for logs.
type IntakeError struct {
	Code   Code
	Reason string
	Err    error
}

func (e *IntakeError) Error() string {
	msg := string(e.Code)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntakeError) Unwrap() error { return e.Err }

// Verifier validates signed init data.
type Verifier interface {
	Verify(raw string) (models.VerifiedUser, error)
}

// ScoreStore records best scores.
type ScoreStore interface {
	UpsertBest(ctx context.Context, identity string, score int64, displayName, username string) (int64, bool, error)
}

// SubmitRequest is a score submission as received from the client.
type SubmitRequest struct {
	// InitData is the raw signed launch payload.
	InitData string
	// Score is nil when the client did not send one.
	Score *int64
}

// IntakeService verifies, throttles and records score submissions.
// It holds no per-request state.
type IntakeService struct {
	verifier            Verifier
	limiter             ratelimit.Limiter
	store               ScoreStore
	requireVerification bool
}

// NewIntakeService wires the pipeline. With requireVerification false the
// init data signature is not checked and the claimed user is trusted; this
// is meant for local development only.
func NewIntakeService(verifier Verifier, limiter ratelimit.Limiter, store ScoreStore, requireVerification bool) *IntakeService {
	return &IntakeService{
		verifier:            verifier,
		limiter:             limiter,
		store:               store,
		requireVerification: requireVerification,
	}
}

// Submit runs presence check, verification, rate limiting and the best-score
// upsert in that order; the first failure stops the pipeline. Every error
// returned is an *IntakeError.
func (s *IntakeService) Submit(ctx context.Context, req SubmitRequest) (models.SubmitOutcome, error) {
	if req.InitData == "" || req.Score == nil {
		return models.SubmitOutcome{}, &IntakeError{Code: CodeBadRequest, Reason: ReasonMissingFields}
	}

	user, limitKey, err := s.identify(req.InitData)
	if err != nil {
		return models.SubmitOutcome{}, &IntakeError{Code: CodeInvalidInitData, Err: err}
	}

	if err := s.limiter.Allow(ctx, limitKey); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			return models.SubmitOutcome{}, &IntakeError{Code: CodeTooManyRequests, Reason: ReasonRateLimited, Err: err}
		}
		return models.SubmitOutcome{}, &IntakeError{
			Code: CodeStorageUnavailable,
			Err:  fmt.Errorf("%w: %w", ErrStorageUnavailable, err),
		}
	}

	stored, changed, err := s.store.UpsertBest(ctx, user.Identity, *req.Score, user.DisplayName(), user.User.Username)
	switch {
	case errors.Is(err, ErrInvalidScore):
		return models.SubmitOutcome{}, &IntakeError{Code: CodeBadRequest, Reason: ReasonInvalidScore, Err: err}
	case err != nil:
		return models.SubmitOutcome{}, &IntakeError{Code: CodeStorageUnavailable, Err: err}
	}

	return models.SubmitOutcome{StoredScore: stored, IsNewBest: changed}, nil
}

func (s *IntakeService) identify(raw string) (models.VerifiedUser, string, error) {
	if s.requireVerification {
		user, err := s.verifier.Verify(raw)
		if err != nil {
			return models.VerifiedUser{}, "", err
		}
		return user, user.Identity, nil
	}

	user, err := initdata.ParseUnsigned(raw)
	if err != nil {
		return models.VerifiedUser{}, "", err
	}
	return user, unverifiedKeyPrefix + user.Identity, nil
}
