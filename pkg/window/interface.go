package window

import (
	"context"

	"github.com/pkg/errors"
)

// Handle identifies a window on the display server
type Handle uint32

// NoWindow is reported when nothing holds focus (empty desktop, root window)
const NoWindow Handle = 0

// ErrConnectionClosed is returned once the display connection is gone
var ErrConnectionClosed = errors.New("display connection closed")

// WindowInfo is a snapshot of the metadata of one window.
// Every field may be empty when the property is unavailable.
type WindowInfo struct {
	Name        string // title
	Class       string
	Instance    string
	PID         uint32
	ProcessName string
}

// IsEmpty reports whether no metadata could be read at all
func (w WindowInfo) IsEmpty() bool {
	return w.Name == "" && w.Class == "" && w.Instance == "" && w.PID == 0 && w.ProcessName == ""
}

// EventKind tells why the display server reported a change
type EventKind int

const (
	FocusChanged EventKind = iota
	TitleChanged
)

func (k EventKind) String() string {
	switch k {
	case FocusChanged:
		return "focus"
	case TitleChanged:
		return "title"
	default:
		return "unknown"
	}
}

// Event is a raw change notification from the display server
type Event struct {
	Window Handle
	Kind   EventKind
}

// Properties answers metadata queries for a window handle
type Properties interface {
	// WindowTitle returns the display title of the window
	WindowTitle(w Handle) (string, error)

	// WindowClass returns the instance and class parts of WM_CLASS
	WindowClass(w Handle) (instance, class string, err error)

	// WindowPID returns the owning process id, 0 if unknown
	WindowPID(w Handle) (uint32, error)
}

// Display is the capability every display server integration must provide
type Display interface {
	Properties

	// ActiveWindow returns the window holding focus right now
	ActiveWindow() (Handle, error)

	// NextEvent blocks until the next focus or title change.
	// It returns ErrConnectionClosed when the connection drops.
	NextEvent(ctx context.Context) (Event, error)

	// GetDisplayServer returns the display server type ("x11")
	GetDisplayServer() string

	// Close releases the connection
	Close() error
}
