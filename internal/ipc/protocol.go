// Package ipc is the local control channel of the beatbind daemon: a named
// pipe on Windows and a unix domain socket elsewhere, carrying one JSON
// request line and one JSON response line per connection.
package ipc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"beatbind/internal/userutil"
)

// addressEnvVar overrides the default control address when it passes
// platform validation.
const addressEnvVar = "BEATBIND_CONTROL"

// Request is a single control command.
type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response is the result of a control command.
type Response struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// CommandExecutor handles a request and returns a response.
type CommandExecutor interface {
	Execute(req Request) Response
}

// ExecutorFunc adapts a function to CommandExecutor.
type ExecutorFunc func(req Request) Response

// Execute calls f(req).
func (f ExecutorFunc) Execute(req Request) Response { return f(req) }

// Errorf builds a failed response with a newline-terminated message.
func Errorf(format string, args ...any) Response {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return Response{ExitCode: 1, Stderr: msg}
}

// DefaultAddress returns the control address to use. A valid
// BEATBIND_CONTROL value wins; otherwise a per-user default is built from
// the current username.
func DefaultAddress() string {
	if v, ok := trustedAddressFromEnv(); ok {
		return v
	}
	return defaultAddressFor(userutil.CurrentUsername())
}

func trustedAddressFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(addressEnvVar))
	if value == "" {
		return "", false
	}
	if !validAddress(value) {
		slog.Warn("[ipc] "+addressEnvVar+" rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Args == nil {
		req.Args = []string{}
	}
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
