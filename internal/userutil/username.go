package userutil

import (
	"os"
	"os/user"
	"regexp"
	"runtime"
	"strings"
)

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var currentUserFn = user.Current

// SanitizeUsername normalizes username-like values used in pipe, socket and
// mutex names.
func SanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

// CurrentUsername returns the sanitized name of the user running the process.
// USERNAME (Windows) or USER (elsewhere) wins over the account database.
func CurrentUsername() string {
	envKey := "USER"
	if runtime.GOOS == "windows" {
		envKey = "USERNAME"
	}
	username := strings.TrimSpace(os.Getenv(envKey))
	if username == "" {
		if current, err := currentUserFn(); err == nil {
			username = current.Username
		}
	}
	return SanitizeUsername(username)
}
