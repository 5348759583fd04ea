package ipc

import (
	"bufio"
	"io"
	"strings"
	"testing"
)

func TestReadDelimitedFrameWithinLimit(t *testing.T) {
	payload := `{"exit_code":0,"stdout":"ok\n"}` + "\n"
	reader := bufio.NewReaderSize(strings.NewReader(payload), maxResponseBytes+1)

	raw, err := readDelimitedFrame(reader, maxResponseBytes)
	if err != nil {
		t.Fatalf("readDelimitedFrame() error = %v", err)
	}
	if string(raw) != payload {
		t.Fatalf("readDelimitedFrame() = %q, want %q", string(raw), payload)
	}
}

func TestReadDelimitedFrameRejectsOversizedFrame(t *testing.T) {
	oversized := strings.Repeat("b", maxResponseBytes+1) + "\n"
	reader := bufio.NewReaderSize(strings.NewReader(oversized), maxResponseBytes+1)

	_, err := readDelimitedFrame(reader, maxResponseBytes)
	if err == nil {
		t.Fatalf("readDelimitedFrame() expected size error")
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("readDelimitedFrame() error = %q, want 'exceeds' message", err.Error())
	}
}

func TestReadDelimitedFrameReturnsEOFOnEmptyInput(t *testing.T) {
	reader := bufio.NewReaderSize(strings.NewReader(""), maxResponseBytes+1)

	_, err := readDelimitedFrame(reader, maxResponseBytes)
	if err != io.EOF {
		t.Fatalf("readDelimitedFrame() error = %v, want io.EOF", err)
	}
}

func TestReadDelimitedFrameAcceptsEOFWithPartialData(t *testing.T) {
	payload := `{"command":"status"}`
	reader := bufio.NewReaderSize(strings.NewReader(payload), maxRequestBytes+1)

	raw, err := readDelimitedFrame(reader, maxRequestBytes)
	if err != nil {
		t.Fatalf("readDelimitedFrame() error = %v, want nil", err)
	}
	if string(raw) != payload {
		t.Fatalf("readDelimitedFrame() = %q, want %q", string(raw), payload)
	}
}

func TestIsConnectionError(t *testing.T) {
	if IsConnectionError(nil) {
		t.Fatal("IsConnectionError(nil) = true")
	}
	if IsConnectionError(io.ErrUnexpectedEOF) {
		t.Fatal("IsConnectionError(ErrUnexpectedEOF) = true")
	}
}
