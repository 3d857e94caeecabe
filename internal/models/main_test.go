package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestVerifiedUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user VerifiedUser
		want string
	}{
		{
			name: "username wins",
			user: VerifiedUser{Identity: "42", User: TelegramUser{ID: 42, Username: "bugfan", FirstName: "Ann"}},
			want: "bugfan",
		},
		{
			name: "first and last name",
			user: VerifiedUser{Identity: "42", User: TelegramUser{ID: 42, FirstName: "Ann", LastName: "Lee"}},
			want: "Ann Lee",
		},
		{
			name: "first name only",
			user: VerifiedUser{Identity: "42", User: TelegramUser{ID: 42, FirstName: "Ann"}},
			want: "Ann",
		},
		{
			name: "fallback uses last four digits",
			user: VerifiedUser{Identity: "123456789", User: TelegramUser{ID: 123456789}},
			want: "Player 6789",
		},
		{
			name: "short identity",
			user: VerifiedUser{Identity: "42", User: TelegramUser{ID: 42}},
			want: "Player 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

func TestLeaderboardEntry_PublicID(t *testing.T) {
	a := LeaderboardEntry{Identity: "42"}
	b := LeaderboardEntry{Identity: "42", Score: 10}
	c := LeaderboardEntry{Identity: "43"}

	assert.Equal(t, a.PublicID(), b.PublicID(), "public id depends only on identity")
	assert.NotEqual(t, a.PublicID(), c.PublicID())

	parsed, err := uuid.Parse(a.PublicID())
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}
