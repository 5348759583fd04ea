//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32DLL.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32DLL.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32DLL.NewProc("CallNextHookEx")
	procGetMessageW         = user32DLL.NewProc("GetMessageW")
	procPostThreadMessageW  = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW        = user32DLL.NewProc("PeekMessageW")
)

const (
	whKeyboardLL = 13
	hcAction     = 0

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012
	pmNoRemove   = 0x0000

	hookStopTimeout = 2 * time.Second
)

// kbdLLHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdLLHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct. Field order and types must match the
// binary layout on both 32-bit and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

// Win32 allows one callback trampoline per function; the installed handler
// is swapped behind it instead of creating a callback per install.
var (
	hookCallbackOnce sync.Once
	hookCallbackPtr  uintptr
	activeHandler    atomic.Pointer[KeyHandler]
)

func lowLevelKeyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == hcAction {
		if hp := activeHandler.Load(); hp != nil {
			kb := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
			switch wParam {
			case wmKeyDown, wmSysKeyDown:
				(*hp).KeyDown(KeyCode(kb.vkCode))
			case wmKeyUp, wmSysKeyUp:
				(*hp).KeyUp(KeyCode(kb.vkCode))
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

// Win32Source installs a WH_KEYBOARD_LL hook on a dedicated OS thread.
type Win32Source struct {
	mu     sync.Mutex
	active *win32Hook
}

// NewPlatformSource returns the low-level keyboard hook source.
func NewPlatformSource() KeySource {
	return &Win32Source{}
}

func (s *Win32Source) Name() string { return "win32-ll" }

type loopReady struct {
	threadID uint32
	err      error
}

// Install implements KeySource.
func (s *Win32Source) Install(h KeyHandler) (Hook, error) {
	if h == nil {
		return nil, &HookInstallError{Source: s.Name(), Err: errors.New("nil key handler")}
	}
	if err := user32DLL.Load(); err != nil {
		return nil, &HookInstallError{Source: s.Name(), Err: fmt.Errorf("user32.dll is unavailable: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, &HookInstallError{Source: s.Name(), Err: ErrHookAlreadyInstalled}
	}

	hookCallbackOnce.Do(func() {
		hookCallbackPtr = windows.NewCallback(lowLevelKeyboardProc)
	})
	activeHandler.Store(&h)

	readyCh := make(chan loopReady, 1)
	hook := &win32Hook{src: s, doneCh: make(chan struct{})}
	go hook.run(readyCh)

	ready := <-readyCh
	if ready.err != nil {
		activeHandler.Store(nil)
		return nil, &HookInstallError{Source: s.Name(), Err: ready.err}
	}
	hook.threadID = ready.threadID
	s.active = hook
	return hook, nil
}

type win32Hook struct {
	src      *Win32Source
	threadID uint32
	doneCh   chan struct{}
	stopOnce sync.Once
	stopErr  error
}

func (h *win32Hook) run(readyCh chan<- loopReady) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.doneCh)

	threadID := windows.GetCurrentThreadId()

	// Creates the thread message queue so PostThreadMessageW can deliver WM_QUIT.
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	handle, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, hookCallbackPtr, 0, 0)
	if handle == 0 {
		readyCh <- loopReady{err: win32Error("SetWindowsHookExW", callErr)}
		return
	}
	defer func() {
		if res, _, err := procUnhookWindowsHookEx.Call(handle); res == 0 {
			slog.Warn("[WARN-HOTKEY] UnhookWindowsHookEx failed", "error", err)
		}
	}()

	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[WARN-HOTKEY] GetMessageW returned error, hook loop exiting", "error", lastErr)
			return
		case 0:
			slog.Debug("[DEBUG-HOTKEY] hook loop received WM_QUIT")
			return
		}
	}
}

// Uninstall posts WM_QUIT to the hook thread and waits for the unhook.
func (h *win32Hook) Uninstall() error {
	h.stopOnce.Do(func() {
		activeHandler.Store(nil)
		h.stopErr = h.stop()

		h.src.mu.Lock()
		if h.src.active == h {
			h.src.active = nil
		}
		h.src.mu.Unlock()
	})
	return h.stopErr
}

func (h *win32Hook) stop() error {
	select {
	case <-h.doneCh:
		return nil
	default:
	}

	var stopErr error
	if res, _, err := procPostThreadMessageW.Call(uintptr(h.threadID), wmQuit, 0, 0); res == 0 {
		stopErr = win32Error("PostThreadMessageW", err)
	}

	timer := time.NewTimer(hookStopTimeout)
	defer timer.Stop()
	select {
	case <-h.doneCh:
	case <-timer.C:
		slog.Warn("[WARN-HOTKEY] hook loop stop timed out, thread may leak", "threadID", h.threadID)
		stopErr = errors.Join(stopErr, fmt.Errorf("hook loop stop timed out (threadID=%d)", h.threadID))
	}
	return stopErr
}

// Alive reports whether the hook thread is still pumping messages.
// Windows removes a hook whose callback times out without ending the thread,
// so a dead pump is the only removal this probe can see.
func (h *win32Hook) Alive() bool {
	select {
	case <-h.doneCh:
		return false
	default:
		return true
	}
}

func win32Error(op string, err error) error {
	if errors.Is(err, windows.ERROR_SUCCESS) || err == nil {
		return fmt.Errorf("%s failed", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
