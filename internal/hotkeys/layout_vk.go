package hotkeys

// Win32 virtual-key codes used by the low-level keyboard hook.
const (
	vkBack     KeyCode = 0x08
	vkTab      KeyCode = 0x09
	vkReturn   KeyCode = 0x0D
	vkShift    KeyCode = 0x10
	vkControl  KeyCode = 0x11
	vkMenu     KeyCode = 0x12
	vkPause    KeyCode = 0x13
	vkEscape   KeyCode = 0x1B
	vkSpace    KeyCode = 0x20
	vkPrior    KeyCode = 0x21
	vkNext     KeyCode = 0x22
	vkEnd      KeyCode = 0x23
	vkHome     KeyCode = 0x24
	vkLeft     KeyCode = 0x25
	vkUp       KeyCode = 0x26
	vkRight    KeyCode = 0x27
	vkDown     KeyCode = 0x28
	vkSnapshot KeyCode = 0x2C
	vkInsert   KeyCode = 0x2D
	vkDelete   KeyCode = 0x2E
	vkLWin     KeyCode = 0x5B
	vkRWin     KeyCode = 0x5C
	vkNumpad0  KeyCode = 0x60
	vkF1       KeyCode = 0x70
	vkLShift   KeyCode = 0xA0
	vkRShift   KeyCode = 0xA1
	vkLControl KeyCode = 0xA2
	vkRControl KeyCode = 0xA3
	vkLMenu    KeyCode = 0xA4
	vkRMenu    KeyCode = 0xA5

	vkVolumeMute     KeyCode = 0xAD
	vkVolumeDown     KeyCode = 0xAE
	vkVolumeUp       KeyCode = 0xAF
	vkMediaNext      KeyCode = 0xB0
	vkMediaPrev      KeyCode = 0xB1
	vkMediaStop      KeyCode = 0xB2
	vkMediaPlayPause KeyCode = 0xB3

	vkOem1      KeyCode = 0xBA
	vkOemPlus   KeyCode = 0xBB
	vkOemComma  KeyCode = 0xBC
	vkOemMinus  KeyCode = 0xBD
	vkOemPeriod KeyCode = 0xBE
	vkOem2      KeyCode = 0xBF
	vkOem3      KeyCode = 0xC0
	vkOem4      KeyCode = 0xDB
	vkOem5      KeyCode = 0xDC
	vkOem6      KeyCode = 0xDD
	vkOem7      KeyCode = 0xDE
)

// VirtualKeyLayout is the Win32 virtual-key layout.
var VirtualKeyLayout = newLayout("virtual-key", ModifierTable{
	ModControl: {vkLControl, vkRControl, vkControl},
	ModAlt:     {vkLMenu, vkRMenu, vkMenu},
	ModShift:   {vkLShift, vkRShift, vkShift},
	ModMeta:    {vkLWin, vkRWin},
}, virtualKeys())

func virtualKeys() []layoutKey {
	letters := make(map[byte]KeyCode, 36)
	for ch := byte('A'); ch <= 'Z'; ch++ {
		letters[ch] = KeyCode(ch)
	}
	for ch := byte('0'); ch <= '9'; ch++ {
		letters[ch] = KeyCode(ch)
	}
	keys := letterKeys(letters)

	fkeys := make([]KeyCode, 24)
	for i := range fkeys {
		fkeys[i] = vkF1 + KeyCode(i)
	}
	keys = append(keys, functionKeys(fkeys)...)

	for i := 0; i <= 9; i++ {
		d := string(rune('0' + i))
		keys = append(keys, layoutKey{name: "NUM" + d, aliases: []string{"NUMPAD" + d}, display: "Numpad " + d, code: vkNumpad0 + KeyCode(i)})
	}

	return append(keys,
		layoutKey{name: "SPACE", display: "Space", code: vkSpace},
		layoutKey{name: "TAB", display: "Tab", code: vkTab},
		layoutKey{name: "ENTER", aliases: []string{"RETURN"}, display: "Enter", code: vkReturn},
		layoutKey{name: "ESC", aliases: []string{"ESCAPE"}, display: "Escape", code: vkEscape},
		layoutKey{name: "BACKSPACE", display: "Backspace", code: vkBack},
		layoutKey{name: "DELETE", aliases: []string{"DEL"}, display: "Delete", code: vkDelete},
		layoutKey{name: "INSERT", aliases: []string{"INS"}, display: "Insert", code: vkInsert},
		layoutKey{name: "HOME", display: "Home", code: vkHome},
		layoutKey{name: "END", display: "End", code: vkEnd},
		layoutKey{name: "PAGEUP", aliases: []string{"PGUP"}, display: "Page Up", code: vkPrior},
		layoutKey{name: "PAGEDOWN", aliases: []string{"PGDN"}, display: "Page Down", code: vkNext},
		layoutKey{name: "LEFT", display: "Left Arrow", code: vkLeft},
		layoutKey{name: "RIGHT", display: "Right Arrow", code: vkRight},
		layoutKey{name: "UP", display: "Up Arrow", code: vkUp},
		layoutKey{name: "DOWN", display: "Down Arrow", code: vkDown},
		layoutKey{name: "PAUSE", display: "Pause", code: vkPause},
		layoutKey{name: "PRINTSCREEN", aliases: []string{"PRTSC"}, display: "Print Screen", code: vkSnapshot},
		layoutKey{name: "PLAYPAUSE", aliases: []string{"MEDIA_PLAY_PAUSE"}, display: "Media Play/Pause", code: vkMediaPlayPause},
		layoutKey{name: "NEXTTRACK", aliases: []string{"MEDIA_NEXT"}, display: "Media Next Track", code: vkMediaNext},
		layoutKey{name: "PREVTRACK", aliases: []string{"MEDIA_PREV"}, display: "Media Previous Track", code: vkMediaPrev},
		layoutKey{name: "MEDIASTOP", aliases: []string{"MEDIA_STOP"}, display: "Media Stop", code: vkMediaStop},
		layoutKey{name: "MUTE", aliases: []string{"VOLUME_MUTE"}, display: "Volume Mute", code: vkVolumeMute},
		layoutKey{name: "VOLUMEUP", aliases: []string{"VOLUME_UP"}, display: "Volume Up", code: vkVolumeUp},
		layoutKey{name: "VOLUMEDOWN", aliases: []string{"VOLUME_DOWN"}, display: "Volume Down", code: vkVolumeDown},
		layoutKey{name: ";", aliases: []string{"SEMICOLON"}, display: "; (Semicolon)", code: vkOem1},
		layoutKey{name: "=", aliases: []string{"EQUALS", "PLUS"}, display: "= (Plus)", code: vkOemPlus},
		layoutKey{name: ",", aliases: []string{"COMMA"}, display: ", (Comma)", code: vkOemComma},
		layoutKey{name: "-", aliases: []string{"MINUS"}, display: "- (Minus)", code: vkOemMinus},
		layoutKey{name: ".", aliases: []string{"PERIOD"}, display: ". (Period)", code: vkOemPeriod},
		layoutKey{name: "/", aliases: []string{"SLASH"}, display: "/ (Slash)", code: vkOem2},
		layoutKey{name: "`", aliases: []string{"BACKQUOTE", "GRAVE"}, display: "` (Tilde)", code: vkOem3},
		layoutKey{name: "[", aliases: []string{"LBRACKET"}, display: "[ (Open Bracket)", code: vkOem4},
		layoutKey{name: "\\", aliases: []string{"BACKSLASH"}, display: "\\ (Backslash)", code: vkOem5},
		layoutKey{name: "]", aliases: []string{"RBRACKET"}, display: "] (Close Bracket)", code: vkOem6},
		layoutKey{name: "'", aliases: []string{"QUOTE"}, display: "' (Quote)", code: vkOem7},
	)
}
