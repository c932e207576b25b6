package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/surdiana/modelbank/config"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"golang.org/x/crypto/argon2"
)

const (
	argonSaltLen = 16
	argonKeyLen  = 32
)

// ErrMalformedHash reports a stored hash that cannot be parsed. It is
// distinct from a mismatch: a mismatch is (false, nil), corruption is
// never silently treated as a wrong password upstream.
var ErrMalformedHash = errors.New("malformed password hash")

// commonPasswords is a small denylist of passwords rejected regardless
// of composition. Checked case-insensitively.
var commonPasswords = map[string]struct{}{
	"password":      {},
	"password123":   {},
	"123456789012":  {},
	"qwertyuiop12":  {},
	"letmein12345":  {},
	"administrator": {},
	"changeme1234":  {},
	"welcome12345":  {},
}

// PasswordService hashes and verifies passwords with Argon2id and
// enforces the composition policy. Costs are fixed at construction;
// hashes embed their own parameters, so verification of old hashes
// survives cost changes.
type PasswordService struct {
	time        uint32
	memoryKB    uint32
	parallelism uint8
	minLength   int
	maxLength   int
}

// NewPasswordService creates a password service from config
func NewPasswordService(cfg config.AuthConfig) *PasswordService {
	return &PasswordService{
		time:        cfg.Argon2Time,
		memoryKB:    cfg.Argon2MemoryKB,
		parallelism: cfg.Argon2Parallelism,
		minLength:   cfg.MinPasswordLength,
		maxLength:   cfg.MaxPasswordLength,
	}
}

// Hash derives an Argon2id hash in PHC string format:
// $argon2id$v=19$m=<kb>,t=<n>,p=<n>$<b64 salt>$<b64 hash>
func (s *PasswordService) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, s.time, s.memoryKB, s.parallelism, argonKeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.memoryKB,
		s.time,
		s.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks a password against a PHC encoded hash in constant
// time. A mismatch is (false, nil); a hash that cannot be parsed is
// ErrMalformedHash, so corruption never masquerades as a wrong
// password.
func (s *PasswordService) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var memoryKB, timeCost uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKB, &timeCost, &parallelism); err != nil {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedHash
	}

	key := argon2.IDKey([]byte(password), salt, timeCost, memoryKB, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// Validate checks a candidate password against every policy rule and
// returns all violations at once, or nil when the password passes.
func (s *PasswordService) Validate(password string) error {
	var violations []string

	if len(password) < s.minLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", s.minLength))
	}
	if len(password) > s.maxLength {
		violations = append(violations, fmt.Sprintf("must be at most %d characters", s.maxLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	classes := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if present {
			classes++
		}
	}
	if classes < 3 {
		violations = append(violations, "must contain at least 3 of: lowercase, uppercase, digits, symbols")
	}

	if _, banned := commonPasswords[strings.ToLower(password)]; banned {
		violations = append(violations, "is too common")
	}

	if len(violations) > 0 {
		return domainerrors.NewPolicyError(violations)
	}
	return nil
}
