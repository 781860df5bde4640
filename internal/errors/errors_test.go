package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []error
	}{
		{"validation", Invalid("passes", "must be positive"), []error{ErrValidation}},
		{"format", &FormatError{Path: "a.knxenc", Reason: "bad magic"}, []error{ErrFormat}},
		{"format with cause", &FormatError{Reason: "short header", Err: ErrUnsupportedVersion}, []error{ErrFormat, ErrUnsupportedVersion}},
		{"io", NewIOError("open", "/x", os.ErrNotExist), []error{ErrIO, os.ErrNotExist}},
		{"shred locked", &ShredError{Kind: ShredLocked, Path: "/x"}, []error{ErrShredFailed, ErrLocked}},
		{"shred rofs", &ShredError{Kind: ShredReadOnlyFilesystem, Path: "/x"}, []error{ErrShredFailed, ErrReadOnlyFilesystem}},
		{"shred flush", &ShredError{Kind: ShredDeviceFlushUnsupported, Path: "/x", Pass: 2}, []error{ErrShredFailed, ErrDeviceFlushUnsupported}},
		{"partial delete", &PartialDeleteError{VaultPath: "/v", Remaining: []string{"a"}}, []error{ErrPartialDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			for _, target := range tt.want {
				if !errors.Is(wrapped, target) {
					t.Errorf("expected %v to match %v", wrapped, target)
				}
			}
		})
	}
}

func TestNewIOErrorDoesNotDoubleWrap(t *testing.T) {
	if NewIOError("read", "/x", nil) != nil {
		t.Fatal("expected nil for nil error")
	}

	first := NewIOError("read", "/x", os.ErrPermission)
	second := NewIOError("rename", "/y", first)
	if second != first {
		t.Errorf("expected existing IOError to be returned unchanged, got %v", second)
	}
}

func TestShredErrorMessageIncludesPass(t *testing.T) {
	err := &ShredError{Kind: ShredDeviceFlushUnsupported, Path: "/tmp/f", Pass: 2}
	if !strings.Contains(err.Error(), "pass 2") {
		t.Errorf("expected pass number in %q", err.Error())
	}
}

func TestUserMessageHidesAuthenticationDetail(t *testing.T) {
	err := fmt.Errorf("chunk 3: %w", ErrAuthenticationFailed)
	msg := UserMessage(err)
	if strings.Contains(msg, "chunk") {
		t.Errorf("expected chunk detail to be hidden, got %q", msg)
	}
	if !strings.Contains(msg, "wrong passphrase or corrupted file") {
		t.Errorf("unexpected message %q", msg)
	}
	if UserMessage(nil) != "" {
		t.Error("expected empty message for nil error")
	}
}
