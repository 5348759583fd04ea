//go:build !windows && !linux

package hotkeys

// NewPlatformSource returns a source whose Install always fails.
func NewPlatformSource() KeySource {
	return unsupportedSource{}
}

type unsupportedSource struct{}

func (unsupportedSource) Name() string { return "unsupported" }

func (s unsupportedSource) Install(KeyHandler) (Hook, error) {
	return nil, &HookInstallError{Source: s.Name(), Err: ErrUnsupportedPlatform}
}
