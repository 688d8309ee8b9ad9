package services

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/markdave123-py/Clausewise/internal/models"
)

// ReviewIDLength is the length of a generated review id.
const ReviewIDLength = 50

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reviewIDPattern = regexp.MustCompile(`^[0-9a-f]{50}$`)
	codeFence       = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")
)

// NewReviewID returns a random 50-character hex id.
func NewReviewID() (string, error) {
	b := make([]byte, ReviewIDLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func ValidReviewID(id string) bool {
	return reviewIDPattern.MatchString(id)
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func checkReviewID(id string) error {
	if !ValidReviewID(id) {
		return validationError("contract review id must be 50 hexadecimal characters", map[string]any{"contract_review_id": id})
	}
	return nil
}

func checkUser(u *models.User) error {
	if u == nil || !ValidEmail(u.Email) {
		return validationError("a valid user email is required", nil)
	}
	return nil
}

func checkStatus(status string) error {
	if !models.ValidStatus(status) {
		return validationError("status must be one of pending, in_progress, completed, rejected", map[string]any{"status": status})
	}
	return nil
}

// StripCodeFences removes a markdown code fence the agent sometimes wraps
// its HTML in.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
