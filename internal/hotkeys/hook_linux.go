//go:build linux

package hotkeys

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"beatbind/internal/workerutil"
)

const (
	evdevDir    = "/dev/input"
	sysInputDir = "/sys/class/input"

	evTypeKey = 0x01

	evValueUp     = 0
	evValueDown   = 1
	evValueRepeat = 2

	// keyMax is KEY_MAX from input-event-codes.h.
	keyMax = 0x2ff

	evdevEventBuffer = 256
)

// inputEventSize is sizeof(struct input_event): a timeval followed by
// type (u16), code (u16) and value (s32).
var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

type rawKeyEvent struct {
	code KeyCode
	down bool
}

// EvdevSource reads every keyboard under /dev/input. The process needs read
// access to the event devices (usually membership in the "input" group).
type EvdevSource struct {
	// listDevices is a test seam; nil scans /dev/input.
	listDevices func() ([]string, error)

	mu     sync.Mutex
	active *evdevHook
}

// NewPlatformSource returns the evdev keyboard source.
func NewPlatformSource() KeySource {
	return &EvdevSource{}
}

func (s *EvdevSource) Name() string { return "evdev" }

// Install implements KeySource.
func (s *EvdevSource) Install(h KeyHandler) (Hook, error) {
	if h == nil {
		return nil, &HookInstallError{Source: s.Name(), Err: errors.New("nil key handler")}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, &HookInstallError{Source: s.Name(), Err: ErrHookAlreadyInstalled}
	}

	list := s.listDevices
	if list == nil {
		list = findKeyboards
	}
	paths, err := list()
	if err != nil {
		return nil, &HookInstallError{Source: s.Name(), Err: fmt.Errorf("scan input devices: %w", err)}
	}
	if len(paths) == 0 {
		return nil, &HookInstallError{Source: s.Name(), Err: errors.New("no keyboard devices found (is the user in the 'input' group?)")}
	}

	var files []*os.File
	var openErrs []error
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			openErrs = append(openErrs, err)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, &HookInstallError{
			Source: s.Name(),
			Err:    fmt.Errorf("cannot open any of %d keyboard devices: %w", len(paths), errors.Join(openErrs...)),
		}
	}

	hook := &evdevHook{
		src:    s,
		list:   list,
		known:  make(map[string]struct{}, len(paths)),
		files:  files,
		events: make(chan rawKeyEvent, evdevEventBuffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, path := range paths {
		hook.known[path] = struct{}{}
	}
	hook.start(h)
	s.active = hook
	slog.Debug("[DEBUG-HOTKEY] evdev keyboards opened", "count", len(files))
	return hook, nil
}

type evdevHook struct {
	src   *EvdevSource
	list  func() ([]string, error)
	known map[string]struct{} // every keyboard seen at install, opened or not

	files  []*os.File
	events chan rawKeyEvent
	stop   chan struct{}
	done   chan struct{}

	readers     sync.WaitGroup
	liveReaders atomic.Int32
	stopOnce    sync.Once
	stopErr     error
}

func (h *evdevHook) start(handler KeyHandler) {
	h.liveReaders.Store(int32(len(h.files)))
	for _, f := range h.files {
		workerutil.Go(&h.readers, "evdev-reader", func() {
			defer h.liveReaders.Add(-1)
			h.readDevice(f)
		})
	}
	go func() {
		defer close(h.done)
		for {
			select {
			case <-h.stop:
				return
			case ev := <-h.events:
				if ev.down {
					handler.KeyDown(ev.code)
				} else {
					handler.KeyUp(ev.code)
				}
			}
		}
	}()
}

func (h *evdevHook) readDevice(f *os.File) {
	buf := make([]byte, inputEventSize*64)
	for {
		n, err := f.Read(buf)
		if err != nil {
			select {
			case <-h.stop:
			default:
				slog.Warn("[WARN-HOTKEY] keyboard device lost",
					"device", f.Name(),
					"error", err,
					"remaining", h.liveReaders.Load()-1,
				)
			}
			return
		}
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			ev, ok := decodeInputEvent(buf[off : off+inputEventSize])
			if !ok {
				continue
			}
			select {
			case h.events <- ev:
			case <-h.stop:
				return
			}
		}
	}
}

// decodeInputEvent extracts a key transition from one input_event record.
// Auto-repeat (value 2) is reported as key-down.
func decodeInputEvent(rec []byte) (rawKeyEvent, bool) {
	if len(rec) < inputEventSize {
		return rawKeyEvent{}, false
	}
	base := inputEventSize - 8
	evType := binary.NativeEndian.Uint16(rec[base:])
	code := binary.NativeEndian.Uint16(rec[base+2:])
	value := int32(binary.NativeEndian.Uint32(rec[base+4:]))
	if evType != evTypeKey {
		return rawKeyEvent{}, false
	}
	switch value {
	case evValueDown, evValueRepeat:
		return rawKeyEvent{code: KeyCode(code), down: true}, true
	case evValueUp:
		return rawKeyEvent{code: KeyCode(code), down: false}, true
	default:
		return rawKeyEvent{}, false
	}
}

// Uninstall closes every device and waits for the readers and the consumer.
func (h *evdevHook) Uninstall() error {
	h.stopOnce.Do(func() {
		close(h.stop)
		var errs []error
		for _, f := range h.files {
			if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
		h.readers.Wait()
		<-h.done
		h.stopErr = errors.Join(errs...)

		h.src.mu.Lock()
		if h.src.active == h {
			h.src.active = nil
		}
		h.src.mu.Unlock()
	})
	return h.stopErr
}

// Alive is false once any device reader has exited or a keyboard that was
// not present at install shows up. Either way a reinstall rescans devices.
func (h *evdevHook) Alive() bool {
	select {
	case <-h.stop:
		return false
	default:
	}
	if int(h.liveReaders.Load()) < len(h.files) {
		return false
	}
	paths, err := h.list()
	if err != nil {
		return true
	}
	for _, path := range paths {
		if _, ok := h.known[path]; !ok {
			slog.Debug("[DEBUG-HOTKEY] new keyboard device detected", "device", path)
			return false
		}
	}
	return true
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir(evdevDir)
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join(evdevDir, e.Name())
		if isKeyboard(path, e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

// isKeyboard asks the device for its key capability bitmap and requires
// letter keys and space. When the device cannot be opened for the probe the
// sysfs capability string is used instead.
func isKeyboard(path, eventName string) bool {
	bits, err := keyCapabilities(path)
	if err != nil {
		return sysfsLooksLikeKeyboard(eventName)
	}
	for _, code := range []KeyCode{evSpace, 30 /* A */, 44 /* Z */} {
		if !bitSet(bits, int(code)) {
			return false
		}
	}
	return true
}

func keyCapabilities(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bits := make([]byte, keyMax/8+1)
	req := eviocgbit(evTypeKey, len(bits))
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(unsafe.Pointer(&bits[0]))); errno != 0 {
		return nil, fmt.Errorf("EVIOCGBIT %s: %w", path, errno)
	}
	return bits, nil
}

// eviocgbit encodes EVIOCGBIT(ev, size) = _IOC(_IOC_READ, 'E', 0x20+ev, size).
func eviocgbit(ev, size int) uintptr {
	const (
		iocRead      = 2
		iocDirShift  = 30
		iocSizeShift = 16
		iocTypeShift = 8
	)
	return uintptr(iocRead<<iocDirShift | size<<iocSizeShift | int('E')<<iocTypeShift | (0x20 + ev))
}

func bitSet(bits []byte, n int) bool {
	idx := n / 8
	return idx < len(bits) && bits[idx]&(1<<(n%8)) != 0
}

func sysfsLooksLikeKeyboard(eventName string) bool {
	data, err := os.ReadFile(filepath.Join(sysInputDir, eventName, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	// Keyboards expose long key bitmaps; power buttons and lid switches do not.
	return len(strings.TrimSpace(string(data))) > 10
}
