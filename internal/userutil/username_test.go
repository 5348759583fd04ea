package userutil

import (
	"errors"
	"os/user"
	"runtime"
	"testing"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "alice", want: "alice"},
		{name: "domain user", input: "DOMAIN\\user", want: "DOMAIN_user"},
		{name: "email", input: "user@domain.com", want: "user_domain.com"},
		{name: "empty", input: "", want: "unknown"},
		{name: "whitespace", input: "  ", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUsername(tt.input); got != tt.want {
				t.Fatalf("SanitizeUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrentUsername(t *testing.T) {
	original := currentUserFn
	t.Cleanup(func() { currentUserFn = original })

	envKey := "USER"
	if runtime.GOOS == "windows" {
		envKey = "USERNAME"
	}

	t.Run("env wins", func(t *testing.T) {
		t.Setenv(envKey, "night owl")
		currentUserFn = func() (*user.User, error) { return &user.User{Username: "db-user"}, nil }
		if got := CurrentUsername(); got != "night_owl" {
			t.Fatalf("CurrentUsername() = %q, want night_owl", got)
		}
	})

	t.Run("account database fallback", func(t *testing.T) {
		t.Setenv(envKey, "")
		currentUserFn = func() (*user.User, error) { return &user.User{Username: `CORP\dj`}, nil }
		if got := CurrentUsername(); got != "CORP_dj" {
			t.Fatalf("CurrentUsername() = %q, want CORP_dj", got)
		}
	})

	t.Run("unknown when unresolvable", func(t *testing.T) {
		t.Setenv(envKey, "")
		currentUserFn = func() (*user.User, error) { return nil, errors.New("no passwd entry") }
		if got := CurrentUsername(); got != "unknown" {
			t.Fatalf("CurrentUsername() = %q, want unknown", got)
		}
	})
}
