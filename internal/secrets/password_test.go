package secrets

import (
	"errors"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
)

func TestGeneratePasswordIncludesEverySelectedClass(t *testing.T) {
	opts := DefaultPasswordOptions()
	opts.Length = 8

	for i := 0; i < 50; i++ {
		pw, err := GeneratePassword(opts)
		if err != nil {
			t.Fatalf("GeneratePassword failed: %v", err)
		}
		if len(pw) != 8 {
			t.Fatalf("Expected length 8, got %d", len(pw))
		}
		for _, class := range []string{lowercaseChars, uppercaseChars, numberChars, symbolChars} {
			if !strings.ContainsAny(pw, class) {
				t.Fatalf("Password %q is missing a character from %q", pw, class)
			}
		}
	}
}

func TestGeneratePasswordRestrictsCharset(t *testing.T) {
	pw, err := GeneratePassword(PasswordOptions{Length: 64, IncludeNumbers: true})
	if err != nil {
		t.Fatalf("GeneratePassword failed: %v", err)
	}
	if strings.Trim(pw, numberChars) != "" {
		t.Errorf("Expected digits only, got %q", pw)
	}

	pw, err = GeneratePassword(PasswordOptions{Length: 32})
	if err != nil {
		t.Fatalf("GeneratePassword failed: %v", err)
	}
	if strings.Trim(pw, lowercaseChars) != "" {
		t.Errorf("Expected lowercase fallback, got %q", pw)
	}
}

func TestGeneratePasswordRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, 3, MaxPasswordLength + 1} {
		if _, err := GeneratePassword(PasswordOptions{Length: n, IncludeLowercase: true}); !errors.Is(err, kerrors.ErrValidation) {
			t.Errorf("length %d: expected ErrValidation, got %v", n, err)
		}
	}
}
