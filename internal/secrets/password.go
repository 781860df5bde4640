package secrets

import (
	"crypto/rand"
	"fmt"
	"math/big"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
)

const (
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberChars    = "0123456789"
	symbolChars    = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	MinPasswordLength     = 4
	MaxPasswordLength     = 1024
	DefaultPasswordLength = 20
)

// PasswordOptions selects the character classes of a generated password.
type PasswordOptions struct {
	Length           int  `json:"length"`
	IncludeUppercase bool `json:"includeUppercase"`
	IncludeLowercase bool `json:"includeLowercase"`
	IncludeNumbers   bool `json:"includeNumbers"`
	IncludeSymbols   bool `json:"includeSymbols"`
}

// DefaultPasswordOptions enables every character class.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{
		Length:           DefaultPasswordLength,
		IncludeUppercase: true,
		IncludeLowercase: true,
		IncludeNumbers:   true,
		IncludeSymbols:   true,
	}
}

// GeneratePassword draws a password from the CSPRNG. Every selected class
// appears at least once; with no class selected, lowercase is used.
func GeneratePassword(opts PasswordOptions) (string, error) {
	if opts.Length < MinPasswordLength || opts.Length > MaxPasswordLength {
		return "", kerrors.Invalid("length", "must be between %d and %d, got %d", MinPasswordLength, MaxPasswordLength, opts.Length)
	}

	var classes []string
	if opts.IncludeLowercase {
		classes = append(classes, lowercaseChars)
	}
	if opts.IncludeUppercase {
		classes = append(classes, uppercaseChars)
	}
	if opts.IncludeNumbers {
		classes = append(classes, numberChars)
	}
	if opts.IncludeSymbols {
		classes = append(classes, symbolChars)
	}
	if len(classes) == 0 {
		classes = []string{lowercaseChars}
	}

	var charset string
	for _, c := range classes {
		charset += c
	}

	out := make([]byte, opts.Length)
	for i := range out {
		set := charset
		if i < len(classes) {
			set = classes[i]
		}
		b, err := randomChar(set)
		if err != nil {
			return "", err
		}
		out[i] = b
	}

	// Move the guaranteed characters away from the front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func randomChar(set string) (byte, error) {
	i, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("reading random data: %w", err)
	}
	return int(v.Int64()), nil
}
