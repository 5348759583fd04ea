package hotkeys

import "strings"

// KeyCode identifies a physical key in the platform's code space
// (Win32 virtual-key codes, Linux input event codes).
type KeyCode uint32

// ModifierSet is a bitmask of modifier families.
type ModifierSet uint8

const (
	ModControl ModifierSet = 1 << iota
	ModAlt
	ModShift
	ModMeta

	// ModNone is the empty set.
	ModNone ModifierSet = 0
)

// modifierOrder fixes the rendering order of ModifierSet.String and the
// iteration order of ModifierTable lookups.
var modifierOrder = []ModifierSet{ModControl, ModAlt, ModShift, ModMeta}

// Has reports whether every family in other is present in s.
func (s ModifierSet) Has(other ModifierSet) bool { return s&other == other }

// String renders the set as "Ctrl+Alt+Shift+Meta" (in that order).
func (s ModifierSet) String() string {
	if s == ModNone {
		return "None"
	}
	names := make([]string, 0, len(modifierOrder))
	for _, mod := range modifierOrder {
		if s&mod != 0 {
			names = append(names, modifierName(mod))
		}
	}
	return strings.Join(names, "+")
}

func modifierName(mod ModifierSet) string {
	switch mod {
	case ModControl:
		return "Ctrl"
	case ModAlt:
		return "Alt"
	case ModShift:
		return "Shift"
	case ModMeta:
		return "Meta"
	default:
		return "Mod"
	}
}

// ModifierTable maps each modifier family to the raw codes that count as that
// family being held: left, right and generic variants.
type ModifierTable map[ModifierSet][]KeyCode

// Resolve derives the active modifier set from a pressed-key predicate.
func (t ModifierTable) Resolve(isDown func(KeyCode) bool) ModifierSet {
	var mods ModifierSet
	for _, family := range modifierOrder {
		for _, code := range t[family] {
			if isDown(code) {
				mods |= family
				break
			}
		}
	}
	return mods
}

// IsModifier reports whether code belongs to any modifier family.
func (t ModifierTable) IsModifier(code KeyCode) bool {
	for _, codes := range t {
		for _, c := range codes {
			if c == code {
				return true
			}
		}
	}
	return false
}
