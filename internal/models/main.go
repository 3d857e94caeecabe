// Package models defines the core data structures for players, verified
// Telegram launches and leaderboard entries.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// publicIDNamespace scopes the UUIDv5 values derived from Telegram identities.
var publicIDNamespace = uuid.MustParse("6f1c7d9e-2b0a-5c39-9a57-3e1d4b8c0f21")

// TelegramUser is the JSON object carried in the "user" field of init data.
type TelegramUser struct {
	// ID is the Telegram user id.
	ID int64 `json:"id"`
	// FirstName is the user's first name.
	FirstName string `json:"first_name,omitempty"`
	// LastName is the user's last name, if set.
	LastName string `json:"last_name,omitempty"`
	// Username is the @handle without the leading @, if set.
	Username string `json:"username,omitempty"`
	// LanguageCode is the IETF language tag of the client.
	LanguageCode string `json:"language_code,omitempty"`
	// PhotoURL points at the profile photo, if shared.
	PhotoURL string `json:"photo_url,omitempty"`
	// IsPremium is true for Telegram Premium users.
	IsPremium bool `json:"is_premium,omitempty"`
}

// VerifiedUser is the result of a successful init-data verification.
// It is built fresh for every request and never stored on its own.
type VerifiedUser struct {
	// Identity is the decimal Telegram user id; the leaderboard primary key.
	Identity string `json:"identity"`
	// User holds the decoded "user" field.
	User TelegramUser `json:"user"`
	// AuthDate is the launch time signed by Telegram. Zero when absent.
	AuthDate time.Time `json:"auth_date"`
	// QueryID identifies the Mini App session, when present.
	QueryID string `json:"query_id,omitempty"`
	// Fields are all signed fields except "hash".
	Fields map[string]string `json:"fields,omitempty"`
}

// DisplayName picks the public name for the player: the username, else the
// first (and last) name, else "Player " followed by the last four digits of
// the identity.
func (v VerifiedUser) DisplayName() string {
	if v.User.Username != "" {
		return v.User.Username
	}
	if name := strings.TrimSpace(v.User.FirstName + " " + v.User.LastName); name != "" {
		return name
	}
	id := v.Identity
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return "Player " + id
}

// LeaderboardEntry is the single stored record for one player.
type LeaderboardEntry struct {
	// Identity is the player's Telegram user id.
	Identity string `json:"-"`
	// Score is the best score ever submitted by the player.
	Score int64 `json:"score"`
	// UpdatedAt is when Score last changed.
	UpdatedAt time.Time `json:"updated_at"`
	// DisplayName is the name shown on the board.
	DisplayName string `json:"display_name"`
	// Username is the Telegram handle at the time of the last submission.
	Username string `json:"username,omitempty"`
}

// PublicID returns a stable identifier derived from the identity that does
// not expose the raw Telegram user id.
func (e LeaderboardEntry) PublicID() string {
	return uuid.NewSHA1(publicIDNamespace, []byte(e.Identity)).String()
}

// SubmitOutcome reports the result of a score submission.
type SubmitOutcome struct {
	// StoredScore is the player's best score after the submission.
	StoredScore int64 `json:"score"`
	// IsNewBest is true when the submission raised the stored score
	// or created the entry.
	IsNewBest bool `json:"isNewBest"`
}
