package hotkeys

// Linux input event codes (linux/input-event-codes.h).
const (
	evEsc        KeyCode = 1
	evMinus      KeyCode = 12
	evEqual      KeyCode = 13
	evBackspace  KeyCode = 14
	evTab        KeyCode = 15
	evLeftBrace  KeyCode = 26
	evRightBrace KeyCode = 27
	evEnter      KeyCode = 28
	evLeftCtrl   KeyCode = 29
	evSemicolon  KeyCode = 39
	evApostrophe KeyCode = 40
	evGrave      KeyCode = 41
	evLeftShift  KeyCode = 42
	evBackslash  KeyCode = 43
	evComma      KeyCode = 51
	evDot        KeyCode = 52
	evSlash      KeyCode = 53
	evRightShift KeyCode = 54
	evLeftAlt    KeyCode = 56
	evSpace      KeyCode = 57
	evRightCtrl  KeyCode = 97
	evSysRq      KeyCode = 99
	evRightAlt   KeyCode = 100
	evHome       KeyCode = 102
	evUp         KeyCode = 103
	evPageUp     KeyCode = 104
	evLeft       KeyCode = 105
	evRight      KeyCode = 106
	evEnd        KeyCode = 107
	evDown       KeyCode = 108
	evPageDown   KeyCode = 109
	evInsert     KeyCode = 110
	evDelete     KeyCode = 111
	evMute       KeyCode = 113
	evVolumeDown KeyCode = 114
	evVolumeUp   KeyCode = 115
	evPause      KeyCode = 119
	evLeftMeta   KeyCode = 125
	evRightMeta  KeyCode = 126
	evNextSong   KeyCode = 163
	evPlayPause  KeyCode = 164
	evPrevSong   KeyCode = 165
	evStopCD     KeyCode = 166
)

// EvdevLayout is the Linux evdev layout.
var EvdevLayout = newLayout("evdev", ModifierTable{
	ModControl: {evLeftCtrl, evRightCtrl},
	ModAlt:     {evLeftAlt, evRightAlt},
	ModShift:   {evLeftShift, evRightShift},
	ModMeta:    {evLeftMeta, evRightMeta},
}, evdevKeys())

func evdevKeys() []layoutKey {
	letters := map[byte]KeyCode{
		'1': 2, '2': 3, '3': 4, '4': 5, '5': 6, '6': 7, '7': 8, '8': 9, '9': 10, '0': 11,
		'Q': 16, 'W': 17, 'E': 18, 'R': 19, 'T': 20, 'Y': 21, 'U': 22, 'I': 23, 'O': 24, 'P': 25,
		'A': 30, 'S': 31, 'D': 32, 'F': 33, 'G': 34, 'H': 35, 'J': 36, 'K': 37, 'L': 38,
		'Z': 44, 'X': 45, 'C': 46, 'V': 47, 'B': 48, 'N': 49, 'M': 50,
	}
	keys := letterKeys(letters)

	// F1-F10 are contiguous, F11/F12 and F13-F24 live in separate blocks.
	fkeys := []KeyCode{59, 60, 61, 62, 63, 64, 65, 66, 67, 68, 87, 88}
	for code := KeyCode(183); code <= 194; code++ {
		fkeys = append(fkeys, code)
	}
	keys = append(keys, functionKeys(fkeys)...)

	numpad := []KeyCode{82, 79, 80, 81, 75, 76, 77, 71, 72, 73}
	for i, code := range numpad {
		d := string(rune('0' + i))
		keys = append(keys, layoutKey{name: "NUM" + d, aliases: []string{"NUMPAD" + d}, display: "Numpad " + d, code: code})
	}

	return append(keys,
		layoutKey{name: "SPACE", display: "Space", code: evSpace},
		layoutKey{name: "TAB", display: "Tab", code: evTab},
		layoutKey{name: "ENTER", aliases: []string{"RETURN"}, display: "Enter", code: evEnter},
		layoutKey{name: "ESC", aliases: []string{"ESCAPE"}, display: "Escape", code: evEsc},
		layoutKey{name: "BACKSPACE", display: "Backspace", code: evBackspace},
		layoutKey{name: "DELETE", aliases: []string{"DEL"}, display: "Delete", code: evDelete},
		layoutKey{name: "INSERT", aliases: []string{"INS"}, display: "Insert", code: evInsert},
		layoutKey{name: "HOME", display: "Home", code: evHome},
		layoutKey{name: "END", display: "End", code: evEnd},
		layoutKey{name: "PAGEUP", aliases: []string{"PGUP"}, display: "Page Up", code: evPageUp},
		layoutKey{name: "PAGEDOWN", aliases: []string{"PGDN"}, display: "Page Down", code: evPageDown},
		layoutKey{name: "LEFT", display: "Left Arrow", code: evLeft},
		layoutKey{name: "RIGHT", display: "Right Arrow", code: evRight},
		layoutKey{name: "UP", display: "Up Arrow", code: evUp},
		layoutKey{name: "DOWN", display: "Down Arrow", code: evDown},
		layoutKey{name: "PAUSE", display: "Pause", code: evPause},
		layoutKey{name: "PRINTSCREEN", aliases: []string{"PRTSC"}, display: "Print Screen", code: evSysRq},
		layoutKey{name: "PLAYPAUSE", aliases: []string{"MEDIA_PLAY_PAUSE"}, display: "Media Play/Pause", code: evPlayPause},
		layoutKey{name: "NEXTTRACK", aliases: []string{"MEDIA_NEXT"}, display: "Media Next Track", code: evNextSong},
		layoutKey{name: "PREVTRACK", aliases: []string{"MEDIA_PREV"}, display: "Media Previous Track", code: evPrevSong},
		layoutKey{name: "MEDIASTOP", aliases: []string{"MEDIA_STOP"}, display: "Media Stop", code: evStopCD},
		layoutKey{name: "MUTE", aliases: []string{"VOLUME_MUTE"}, display: "Volume Mute", code: evMute},
		layoutKey{name: "VOLUMEUP", aliases: []string{"VOLUME_UP"}, display: "Volume Up", code: evVolumeUp},
		layoutKey{name: "VOLUMEDOWN", aliases: []string{"VOLUME_DOWN"}, display: "Volume Down", code: evVolumeDown},
		layoutKey{name: ";", aliases: []string{"SEMICOLON"}, display: "; (Semicolon)", code: evSemicolon},
		layoutKey{name: "=", aliases: []string{"EQUALS", "PLUS"}, display: "= (Plus)", code: evEqual},
		layoutKey{name: ",", aliases: []string{"COMMA"}, display: ", (Comma)", code: evComma},
		layoutKey{name: "-", aliases: []string{"MINUS"}, display: "- (Minus)", code: evMinus},
		layoutKey{name: ".", aliases: []string{"PERIOD"}, display: ". (Period)", code: evDot},
		layoutKey{name: "/", aliases: []string{"SLASH"}, display: "/ (Slash)", code: evSlash},
		layoutKey{name: "`", aliases: []string{"BACKQUOTE", "GRAVE"}, display: "` (Tilde)", code: evGrave},
		layoutKey{name: "[", aliases: []string{"LBRACKET"}, display: "[ (Open Bracket)", code: evLeftBrace},
		layoutKey{name: "\\", aliases: []string{"BACKSLASH"}, display: "\\ (Backslash)", code: evBackslash},
		layoutKey{name: "]", aliases: []string{"RBRACKET"}, display: "] (Close Bracket)", code: evRightBrace},
		layoutKey{name: "'", aliases: []string{"QUOTE"}, display: "' (Quote)", code: evApostrophe},
	)
}
