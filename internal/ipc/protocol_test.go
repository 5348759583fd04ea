package ipc

import (
	"encoding/json"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func TestDefaultAddressHonorsTrustedEnvOverride(t *testing.T) {
	override := "/tmp/beatbind-ci.sock"
	if runtime.GOOS == "windows" {
		override = `\\.\pipe\beatbind-ci_pipe`
	}
	t.Setenv(addressEnvVar, override)

	if got := DefaultAddress(); got != override {
		t.Fatalf("DefaultAddress() = %q, want trusted env override", got)
	}
}

func TestDefaultAddressRejectsUntrustedEnvOverride(t *testing.T) {
	untrusted := "relative/other-app"
	if runtime.GOOS == "windows" {
		untrusted = `\\.\pipe\other-app`
	}
	t.Setenv(addressEnvVar, untrusted)

	got := DefaultAddress()
	if got == untrusted {
		t.Fatalf("DefaultAddress() unexpectedly accepted untrusted env override")
	}
	if !strings.Contains(got, "beatbind-") {
		t.Fatalf("DefaultAddress() = %q, want per-user beatbind address", got)
	}
}

func TestDefaultAddressSanitizesUsername(t *testing.T) {
	t.Setenv(addressEnvVar, "")
	t.Setenv("USERNAME", "unit user!")
	t.Setenv("USER", "unit user!")

	got := DefaultAddress()
	if !strings.Contains(got, "beatbind-unit_user_") {
		t.Fatalf("DefaultAddress() = %q, want sanitized username", got)
	}
}

func TestDecodeRequestNormalizes(t *testing.T) {
	req, err := decodeRequest([]byte(`{"command":"  status "}`))
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if req.Command != "status" {
		t.Fatalf("Command = %q, want status", req.Command)
	}
	if req.Args == nil {
		t.Fatal("Args should be non-nil after decode")
	}
}

func TestDecodeRequestRejectsInvalidJSON(t *testing.T) {
	if _, err := decodeRequest([]byte(`{"command":`)); err == nil {
		t.Fatal("decodeRequest() expected error")
	}
}

func TestRequestResponseEncoding(t *testing.T) {
	raw, err := encodeRequest(Request{Command: "simulate", Args: []string{"Ctrl+Alt+Space"}})
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wire["command"] != "simulate" {
		t.Fatalf("wire = %v", wire)
	}

	respRaw, err := encodeResponse(Response{ExitCode: 2, Stderr: "boom\n"})
	if err != nil {
		t.Fatalf("encodeResponse() error = %v", err)
	}
	if string(respRaw) != `{"exit_code":2,"stderr":"boom\n"}` {
		t.Fatalf("encodeResponse() = %s", respRaw)
	}
	resp, err := decodeResponse(respRaw)
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}
	if !reflect.DeepEqual(resp, Response{ExitCode: 2, Stderr: "boom\n"}) {
		t.Fatalf("decodeResponse() = %+v", resp)
	}
}

func TestErrorf(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []any
		want   string
	}{
		{name: "plain", format: "bad thing", want: "bad thing\n"},
		{name: "formatted", format: "unknown command %q", args: []any{"dance"}, want: "unknown command \"dance\"\n"},
		{name: "already terminated", format: "done\n", want: "done\n"},
		{name: "percent without args", format: "100% broken", want: "100% broken\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Errorf(tt.format, tt.args...)
			if got.ExitCode != 1 || got.Stderr != tt.want {
				t.Fatalf("Errorf() = %+v, want stderr %q", got, tt.want)
			}
		})
	}
}
