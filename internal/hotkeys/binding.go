package hotkeys

import (
	"fmt"
	"strconv"
	"strings"
)

// Binding describes a parsed key combination.
// Construct only via ParseBinding to guarantee invariant consistency.
type Binding struct {
	modifiers  ModifierSet
	key        KeyCode
	normalized string
}

// Modifiers returns the required modifier set.
func (b Binding) Modifiers() ModifierSet { return b.modifiers }

// Key returns the trigger key code.
func (b Binding) Key() KeyCode { return b.key }

// Normalized returns the canonical human-readable binding string.
func (b Binding) Normalized() string { return b.normalized }

var modifierByName = map[string]ModifierSet{
	"CTRL":    ModControl,
	"CONTROL": ModControl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
	"OPTION":  ModAlt,
	"WIN":     ModMeta,
	"SUPER":   ModMeta,
	"META":    ModMeta,
	"CMD":     ModMeta,
}

// ParseBinding parses a binding like "Ctrl+Alt+Space" against layout.
// The last token is the trigger key; every earlier token must be a modifier.
// Bindings without modifiers (e.g. "PlayPause") are accepted.
func ParseBinding(spec string, layout Layout) (Binding, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Binding{}, fmt.Errorf("hotkey spec is empty")
	}

	parts := strings.Split(raw, "+")
	// "Ctrl++" means Ctrl with the "+" character; treat it as the PLUS key.
	if strings.HasSuffix(raw, "++") {
		parts = append(parts[:len(parts)-2], "PLUS")
	}

	var modifiers ModifierSet
	for _, token := range parts[:len(parts)-1] {
		name := strings.ToUpper(strings.TrimSpace(token))
		mod, ok := modifierByName[name]
		if !ok {
			return Binding{}, fmt.Errorf("unknown modifier %q in hotkey %q", token, raw)
		}
		modifiers |= mod
	}

	keyToken := strings.TrimSpace(parts[len(parts)-1])
	key, normalizedKey, err := parseKey(keyToken, layout)
	if err != nil {
		return Binding{}, err
	}
	if layout.Modifiers().IsModifier(key) {
		return Binding{}, fmt.Errorf("trigger key %q is a modifier in hotkey %q", keyToken, raw)
	}

	return Binding{
		modifiers:  modifiers,
		key:        key,
		normalized: joinBinding(modifiers, normalizedKey),
	}, nil
}

// FormatBinding renders a modifier set and key code in ParseBinding syntax.
func FormatBinding(modifiers ModifierSet, key KeyCode, layout Layout) string {
	token, ok := layout.canonicalToken(key)
	if !ok {
		token = fmt.Sprintf("0x%X", uint32(key))
	}
	return joinBinding(modifiers, token)
}

func joinBinding(modifiers ModifierSet, key string) string {
	if modifiers == ModNone {
		return key
	}
	return modifiers.String() + "+" + key
}

func parseKey(raw string, layout Layout) (KeyCode, string, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return 0, "", fmt.Errorf("missing hotkey key token")
	}

	if key, ok := layout.Lookup(token); ok {
		canonical, _ := layout.canonicalToken(key)
		return key, canonical, nil
	}

	if strings.HasPrefix(token, "0X") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, "", fmt.Errorf("invalid hex key %q", raw)
		}
		if value == 0 {
			return 0, "", fmt.Errorf("key code 0x0000 is not a valid key")
		}
		return KeyCode(value), "0x" + token[2:], nil
	}

	return 0, "", fmt.Errorf("unknown key %q in hotkey spec", raw)
}

// Codes returns the key sequence that produces b: one representative code per
// required modifier family (in Ctrl, Alt, Shift, Meta order) followed by the
// trigger key.
func (b Binding) Codes(table ModifierTable) []KeyCode {
	codes := make([]KeyCode, 0, len(modifierOrder)+1)
	for _, family := range modifierOrder {
		if b.modifiers&family == 0 {
			continue
		}
		if variants := table[family]; len(variants) > 0 {
			codes = append(codes, variants[0])
		}
	}
	return append(codes, b.key)
}
