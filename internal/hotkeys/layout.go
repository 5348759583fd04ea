package hotkeys

import (
	"fmt"
	"sort"
	"strings"
)

// Layout binds key names to the code space of one platform's input source.
type Layout struct {
	name      string
	modifiers ModifierTable
	byName    map[string]KeyCode
	canonical map[KeyCode]string
	display   map[KeyCode]string
}

type layoutKey struct {
	name    string   // canonical token, upper case
	aliases []string // extra accepted tokens, upper case
	display string   // human-readable label
	code    KeyCode
}

func newLayout(name string, modifiers ModifierTable, keys []layoutKey) Layout {
	l := Layout{
		name:      name,
		modifiers: modifiers,
		byName:    make(map[string]KeyCode, len(keys)*2),
		canonical: make(map[KeyCode]string, len(keys)),
		display:   make(map[KeyCode]string, len(keys)),
	}
	for _, k := range keys {
		l.byName[k.name] = k.code
		for _, alias := range k.aliases {
			l.byName[alias] = k.code
		}
		if _, exists := l.canonical[k.code]; !exists {
			l.canonical[k.code] = bindingToken(k)
			display := k.display
			if display == "" {
				display = k.name
			}
			l.display[k.code] = display
		}
	}
	return l
}

// Name returns the layout identifier ("virtual-key", "evdev").
func (l Layout) Name() string { return l.name }

// Modifiers returns the modifier family table of the layout.
func (l Layout) Modifiers() ModifierTable { return l.modifiers }

// Lookup resolves an upper-case key token.
func (l Layout) Lookup(token string) (KeyCode, bool) {
	code, ok := l.byName[token]
	return code, ok
}

// KeyName returns a display label for code, or "Key<code>" when unknown.
func (l Layout) KeyName(code KeyCode) string {
	if name, ok := l.display[code]; ok {
		return name
	}
	return fmt.Sprintf("Key%d", code)
}

// bindingToken is the spelling of k used when a binding is printed. Word
// tokens take the casing of their display label ("Space", "PageUp") or fall
// back to title case ("Left", "Esc"); upper-casing the result always gives
// k.name back.
func bindingToken(k layoutKey) string {
	if len(k.name) < 2 || strings.IndexFunc(k.name, func(r rune) bool {
		return (r < 'A' || r > 'Z') && (r < '0' || r > '9')
	}) >= 0 {
		return k.name
	}
	compact := strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, k.display)
	if strings.HasSuffix(strings.ToUpper(compact), k.name) {
		return compact[len(compact)-len(k.name):]
	}
	return k.name[:1] + strings.ToLower(k.name[1:])
}

// canonicalToken returns the canonical token for code, if one exists.
func (l Layout) canonicalToken(code KeyCode) (string, bool) {
	name, ok := l.canonical[code]
	return name, ok
}

// KeyNames returns every accepted key token in sorted order.
func (l Layout) KeyNames() []string {
	names := make([]string, 0, len(l.byName))
	for name := range l.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func letterKeys(codes map[byte]KeyCode) []layoutKey {
	keys := make([]layoutKey, 0, len(codes))
	for ch, code := range codes {
		keys = append(keys, layoutKey{name: string(ch), code: code})
	}
	return keys
}

func functionKeys(codes []KeyCode) []layoutKey {
	keys := make([]layoutKey, 0, len(codes))
	for i, code := range codes {
		keys = append(keys, layoutKey{name: fmt.Sprintf("F%d", i+1), code: code})
	}
	return keys
}
