// Package actions defines the playback actions a hotkey can trigger and the
// controllers that carry them out.
package actions

import "slices"

// ID names a playback action in config files and notifications.
type ID string

const (
	PlayPause     ID = "play_pause"
	Play          ID = "play"
	Pause         ID = "pause"
	NextTrack     ID = "next_track"
	PreviousTrack ID = "previous_track"
	VolumeUp      ID = "volume_up"
	VolumeDown    ID = "volume_down"
	MuteUnmute    ID = "mute_unmute"
	Mute          ID = "mute"
	Unmute        ID = "unmute"
	SeekForward   ID = "seek_forward"
	SeekBackward  ID = "seek_backward"
	SaveTrack     ID = "save_track"
	RemoveTrack   ID = "remove_track"
	ToggleShuffle ID = "toggle_shuffle"
	ToggleRepeat  ID = "toggle_repeat"
)

// Info describes one catalog entry.
type Info struct {
	ID          ID
	DisplayName string
}

var catalog = []Info{
	{PlayPause, "Play/Pause"},
	{Play, "Play"},
	{Pause, "Pause"},
	{NextTrack, "Next Track"},
	{PreviousTrack, "Previous Track"},
	{VolumeUp, "Volume Up"},
	{VolumeDown, "Volume Down"},
	{MuteUnmute, "Mute/Unmute"},
	{Mute, "Mute"},
	{Unmute, "Unmute"},
	{SeekForward, "Seek Forward"},
	{SeekBackward, "Seek Backward"},
	{SaveTrack, "Save Track"},
	{RemoveTrack, "Remove Track"},
	{ToggleShuffle, "Toggle Shuffle"},
	{ToggleRepeat, "Toggle Repeat"},
}

// Catalog returns every known action in display order.
func Catalog() []Info {
	return slices.Clone(catalog)
}

// Lookup finds an action by id.
func Lookup(id string) (Info, bool) {
	for _, info := range catalog {
		if string(info.ID) == id {
			return info, true
		}
	}
	return Info{}, false
}

// DisplayName returns the human-readable name of id, or id itself when unknown.
func DisplayName(id ID) string {
	if info, ok := Lookup(string(id)); ok {
		return info.DisplayName
	}
	return string(id)
}
