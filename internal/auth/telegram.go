// Package auth verifies Telegram login payloads. Two schemes exist:
// WebApp initData (secret key derived with the "WebAppData" constant) and
// the Login Widget (secret key is the plain SHA-256 of the bot token).
// Both sign a sorted key=value check string with HMAC-SHA256 and carry an
// auth_date that must be fresh.
package auth

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
)

// MaxAge is how old a signed payload may be before it is rejected.
const MaxAge = 24 * time.Hour

var (
	ErrMalformedData    = errors.New("telegram data is malformed")
	ErrInvalidSignature = errors.New("telegram signature mismatch")
	ErrExpiredData      = errors.New("telegram data is too old")
)

// TelegramUser is the profile carried inside a verified payload.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// VerifyWebAppInitData validates the raw query string from
// window.Telegram.WebApp.initData and returns the embedded user.
func VerifyWebAppInitData(initData, botToken string) (*TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrMalformedData
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrMalformedData
	}
	values.Del("hash")

	// Secret key is HMAC-SHA256 of the bot token keyed by "WebAppData".
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	secret := mac.Sum(nil)

	if !checkSignature(flatten(values), secret, gotHash) {
		return nil, ErrInvalidSignature
	}
	if err := checkFreshness(values.Get("auth_date")); err != nil {
		return nil, err
	}

	var user TelegramUser
	if raw := values.Get("user"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, ErrMalformedData
		}
	}
	if user.ID == 0 {
		return nil, ErrMalformedData
	}
	return &user, nil
}

// VerifyWidgetData validates a Login Widget payload given as flat
// key/value fields (id, first_name, username, photo_url, auth_date, hash).
func VerifyWidgetData(fields map[string]string, botToken string) (*TelegramUser, error) {
	gotHash := fields["hash"]
	if gotHash == "" {
		return nil, ErrMalformedData
	}
	pairs := make(map[string][]string, len(fields))
	for k, v := range fields {
		if k == "hash" || v == "" {
			continue
		}
		pairs[k] = []string{v}
	}

	// Widget secret key is just the SHA-256 of the bot token.
	secret := sha256.Sum256([]byte(botToken))

	if !checkSignature(flatten(pairs), secret[:], gotHash) {
		return nil, ErrInvalidSignature
	}
	if err := checkFreshness(fields["auth_date"]); err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil || id == 0 {
		return nil, ErrMalformedData
	}
	return &TelegramUser{
		ID:        id,
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		Username:  fields["username"],
		PhotoURL:  fields["photo_url"],
	}, nil
}

// flatten builds the data-check-string: key=value lines sorted by key,
// joined with newlines.
func flatten(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func checkSignature(checkString string, secret []byte, wantHex string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	want, err := hex.DecodeString(wantHex)
	if err != nil {
		return false
	}
	return hmac.Equal(mac.Sum(nil), want)
}

func checkFreshness(authDate string) error {
	ts, err := strconv.ParseInt(authDate, 10, 64)
	if err != nil || ts <= 0 {
		return ErrMalformedData
	}
	if time.Since(time.Unix(ts, 0)) > MaxAge {
		return ErrExpiredData
	}
	return nil
}
