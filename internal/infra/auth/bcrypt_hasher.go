// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"praxis/config"
	domainerrors "praxis/internal/domain/errors"
	"praxis/internal/domain/service"
)

// defaultForbiddenWords are rejected as substrings regardless of casing.
var defaultForbiddenWords = []string{"password", "admin", "123456", "qwerty", "letmein"}

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost           int
	policy         config.PasswordStrengthConfig
	forbiddenWords []string
}

func defaultPolicy() config.PasswordStrengthConfig {
	return config.PasswordStrengthConfig{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
	}
}

// NewBcryptHasher is the constructor for bcryptHasher with the default cost
// and strength policy. It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher() service.PasswordHasher {
	return NewBcryptHasherWithCost(bcrypt.DefaultCost)
}

// NewBcryptHasherWithCost creates a hasher with a custom bcrypt cost factor.
// Lower costs are useful in tests; production wiring passes the configured cost.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &bcryptHasher{
		cost:           cost,
		policy:         defaultPolicy(),
		forbiddenWords: defaultForbiddenWords,
	}
}

// NewBcryptHasherFromConfig creates a hasher from application configuration,
// falling back to defaults for anything unset.
func NewBcryptHasherFromConfig(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	if cfg.Auth != nil && cfg.Auth.BcryptCost != 0 {
		cost = cfg.Auth.BcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	policy := defaultPolicy()
	if cfg.PasswordStrength != nil {
		policy = *cfg.PasswordStrength
	}

	return &bcryptHasher{
		cost:           cost,
		policy:         policy,
		forbiddenWords: defaultForbiddenWords,
	}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// The password must pass the strength policy before it is hashed;
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	if err := h.ValidatePasswordStrength(password); err != nil {
		return "", err
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidatePasswordStrength checks a plaintext password against the configured
// strength policy. The returned errors unwrap to the domain password errors so
// callers can map them to the right HTTP response.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	if h.policy.MinLength > 0 && len(password) < h.policy.MinLength {
		return domainerrors.ErrPasswordStrength.WrapMessage(
			"password must be at least " + strconv.Itoa(h.policy.MinLength) + " characters long")
	}

	if h.policy.RequireLowercase && !h.hasLowercase(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage(
			"password must contain at least one lowercase letter")
	}

	if h.policy.RequireUppercase && !h.hasUppercase(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage(
			"password must contain at least one uppercase letter")
	}

	if h.policy.RequireNumbers && !h.hasNumbers(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage(
			"password must contain at least one number")
	}

	if h.policy.RequireSpecial && !h.hasSpecialChars(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage(
			"password must contain at least one special character")
	}

	if h.containsForbiddenWords(password, h.forbiddenWords) {
		return domainerrors.ErrPasswordForbiddenWords.WrapMessage(
			"password contains forbidden words")
	}

	if h.policy.MaxLength > 0 && len(password) > h.policy.MaxLength {
		return domainerrors.ErrPasswordStrength.WrapMessage(
			"password must be at most " + strconv.Itoa(h.policy.MaxLength) + " characters long")
	}

	return nil
}

func (h *bcryptHasher) hasUppercase(s string) bool {
	return strings.ContainsFunc(s, unicode.IsUpper)
}

func (h *bcryptHasher) hasLowercase(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLower)
}

func (h *bcryptHasher) hasNumbers(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

func (h *bcryptHasher) hasSpecialChars(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (h *bcryptHasher) containsForbiddenWords(password string, words []string) bool {
	lowered := strings.ToLower(password)
	for _, word := range words {
		if strings.Contains(lowered, word) {
			return true
		}
	}

	return false
}
