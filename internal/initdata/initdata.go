// Package initdata verifies and parses the signed launch payload ("init data")
// that Telegram hands to a Mini App.
//
// The payload is a URL-encoded query string. Its "hash" field is the hex
// HMAC-SHA256 of the data-check string (all other fields, sorted by key,
// "key=value" joined by "\n") keyed with HMAC-SHA256("WebAppData", botToken).
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Otar989/bugman-bot/internal/models"
)

const (
	hashField     = "hash"
	userField     = "user"
	authDateField = "auth_date"
	queryIDField  = "query_id"

	webAppDataKey = "WebAppData"
)

// DefaultMaxAge is the default freshness window for auth_date.
const DefaultMaxAge = 24 * time.Hour

var (
	// ErrMalformedInitData is returned when the payload cannot be parsed,
	// lacks a hash, or carries an unusable auth_date.
	ErrMalformedInitData = errors.New("malformed init data")
	// ErrInvalidSignature is returned when no configured bot token produces the presented hash.
	ErrInvalidSignature = errors.New("invalid init data signature")
	// ErrMalformedUserField is returned when the "user" field is absent or not a valid user object.
	ErrMalformedUserField = errors.New("malformed user field")
	// ErrStaleInitData is returned when auth_date is older than the allowed age.
	ErrStaleInitData = errors.New("stale init data")
)

// Verifier checks init data against an ordered list of bot tokens.
// It is safe for concurrent use.
type Verifier struct {
	keys   [][]byte
	maxAge time.Duration
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMaxAge sets the accepted age of auth_date. Zero disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) { v.maxAge = d }
}

// WithClock overrides the time source used for the freshness check.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier derives a signing key for every non-empty token, keeping the
// configured order. The first token whose key matches wins.
func NewVerifier(tokens []string, opts ...Option) *Verifier {
	v := &Verifier{
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, token := range tokens {
		if token == "" {
			continue
		}
		v.keys = append(v.keys, SecretKey(token))
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates raw init data and returns the embedded user.
// It has no side effects; identical inputs and clock give identical results.
func (v *Verifier) Verify(raw string) (models.VerifiedUser, error) {
	fields, hash, err := Parse(raw)
	if err != nil {
		return models.VerifiedUser{}, err
	}

	if !v.matches(DataCheckString(fields), hash) {
		return models.VerifiedUser{}, ErrInvalidSignature
	}

	user, err := buildUser(fields)
	if err != nil {
		return models.VerifiedUser{}, err
	}

	if v.maxAge > 0 {
		if user.AuthDate.IsZero() {
			return models.VerifiedUser{}, ErrMalformedInitData
		}
		if v.now().Sub(user.AuthDate) > v.maxAge {
			return models.VerifiedUser{}, ErrStaleInitData
		}
	}

	return user, nil
}

func (v *Verifier) matches(dataCheckString, hash string) bool {
	for _, key := range v.keys {
		if hmac.Equal([]byte(sign(key, dataCheckString)), []byte(hash)) {
			return true
		}
	}
	return false
}

// ParseUnsigned builds a VerifiedUser from raw init data without checking
// the signature or auth_date. The hash field is optional. It exists for
// deployments that explicitly switch verification off.
func ParseUnsigned(raw string) (models.VerifiedUser, error) {
	values, err := parseValues(raw)
	if err != nil {
		return models.VerifiedUser{}, err
	}
	delete(values, hashField)
	return buildUser(values)
}

// Parse decodes raw init data into its fields (without "hash") and the hash.
// For duplicate keys the last occurrence wins.
func Parse(raw string) (map[string]string, string, error) {
	fields, err := parseValues(raw)
	if err != nil {
		return nil, "", err
	}

	hash := fields[hashField]
	if hash == "" {
		return nil, "", ErrMalformedInitData
	}
	delete(fields, hashField)

	return fields, hash, nil
}

func parseValues(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMalformedInitData
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformedInitData
	}

	fields := make(map[string]string, len(values))
	for k, vs := range values {
		fields[k] = vs[len(vs)-1]
	}
	return fields, nil
}

// DataCheckString serialises fields in Telegram's canonical form: keys sorted
// lexicographically, "key=value" lines joined by "\n". A "hash" key is ignored.
func DataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == hashField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// SecretKey derives the HMAC key for a bot token: HMAC-SHA256 of
// "WebAppData" keyed with the token.
func SecretKey(token string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(token))
	return mac.Sum(nil)
}

// Sign returns the hex hash Telegram would attach to fields for the token.
func Sign(fields map[string]string, token string) string {
	return sign(SecretKey(token), DataCheckString(fields))
}

// Encode returns fields as a query string with a valid "hash" for the token appended.
func Encode(fields map[string]string, token string) string {
	values := make(url.Values, len(fields)+1)
	for k, v := range fields {
		if k == hashField {
			continue
		}
		values.Set(k, v)
	}
	values.Set(hashField, Sign(fields, token))
	return values.Encode()
}

func sign(key []byte, dataCheckString string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}

func buildUser(fields map[string]string) (models.VerifiedUser, error) {
	rawUser, ok := fields[userField]
	if !ok || rawUser == "" {
		return models.VerifiedUser{}, ErrMalformedUserField
	}

	var tgUser models.TelegramUser
	if err := json.Unmarshal([]byte(rawUser), &tgUser); err != nil || tgUser.ID == 0 {
		return models.VerifiedUser{}, ErrMalformedUserField
	}

	user := models.VerifiedUser{
		Identity: strconv.FormatInt(tgUser.ID, 10),
		User:     tgUser,
		QueryID:  fields[queryIDField],
		Fields:   fields,
	}

	if ts, ok := fields[authDateField]; ok {
		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil || sec <= 0 {
			return models.VerifiedUser{}, ErrMalformedInitData
		}
		user.AuthDate = time.Unix(sec, 0).UTC()
	}

	return user, nil
}
