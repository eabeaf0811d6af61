package controller

import "fmt"

type Mode string

const (
	ModeSingleURL Mode = "single_url"
	ModePlaylist  Mode = "playlist"
	ModeTopic     Mode = "topic"
	ModeUpload    Mode = "upload"
)

// Modes returns the modes in selector order.
func Modes() []Mode {
	return []Mode{ModeSingleURL, ModePlaylist, ModeTopic, ModeUpload}
}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func (m Mode) Label() string {
	switch m {
	case ModeSingleURL:
		return "Single URL"
	case ModePlaylist:
		return "Playlist"
	case ModeTopic:
		return "Topic"
	case ModeUpload:
		return "Upload"
	}
	return string(m)
}

type InputArea struct {
	Mode              Mode
	TextVisible       bool
	FilePickerVisible bool
	Placeholder       string
}

func RenderInput(mode Mode) InputArea {
	if mode == ModeUpload {
		return InputArea{Mode: mode, FilePickerVisible: true}
	}

	area := InputArea{Mode: mode, TextVisible: true}
	switch mode {
	case ModeSingleURL:
		area.Placeholder = "Enter YouTube URL..."
	case ModePlaylist:
		area.Placeholder = "Enter YouTube Playlist URL..."
	case ModeTopic:
		area.Placeholder = "Enter search topic..."
	}
	return area
}

// SelectMode activates mode and reconfigures the input area.
func (c *Controller) SelectMode(mode Mode) {
	c.mutex.Lock()
	c.applyMode(mode)
	c.mutex.Unlock()
	c.changed()
}

func (c *Controller) applyMode(mode Mode) {
	c.state.Mode = mode
	c.state.Input = RenderInput(mode)
}
