package detector

import (
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/pkg/integrations/x11"
	"github.com/actionsum/focusstat/pkg/window"
)

// ErrNoDisplay is returned when no X server can be reached from this session
var ErrNoDisplay = errors.New("no X11 display available")

// New opens the display connection for the current session. display
// overrides $DISPLAY. Under Wayland it connects to XWayland when available.
func New(display string, trackTitles bool) (window.Display, error) {
	server := DetectDisplayServer()
	if display == "" && os.Getenv("DISPLAY") == "" {
		return nil, errors.Wrapf(ErrNoDisplay, "session type %s", server)
	}
	if server == "wayland" {
		log.Printf("Wayland session detected, only XWayland windows will be tracked")
	}
	conn, err := x11.Connect(display, trackTitles)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
