package x11

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/pkg/window"
)

const (
	atomActiveWindow = "_NET_ACTIVE_WINDOW"
	atomNetWMName    = "_NET_WM_NAME"
	atomNetWMPID     = "_NET_WM_PID"
	atomUTF8String   = "UTF8_STRING"
	atomCompoundText = "COMPOUND_TEXT"

	// in 32-bit units, so titles up to 4KiB
	maxPropertyLength = 1024

	eventBuffer = 16
)

var errPropertyUnavailable = errors.New("property unavailable")

// Conn implements window.Display on top of a single X11 connection.
// It listens to _NET_ACTIVE_WINDOW changes on the root window and, when
// title tracking is on, to title changes of the active window.
type Conn struct {
	conn        *xgb.Conn
	root        xproto.Window
	atoms       map[string]xproto.Atom
	trackTitles bool

	mu     sync.Mutex
	active xproto.Window

	events    chan window.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Connect opens a connection to the X server named by display
// (empty means $DISPLAY) and subscribes to focus changes.
func Connect(display string, trackTitles bool) (*Conn, error) {
	var (
		conn *xgb.Conn
		err  error
	)
	if display == "" {
		conn, err = xgb.NewConn()
	} else {
		conn, err = xgb.NewConnDisplay(display)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	c := &Conn{
		conn:        conn,
		root:        xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms:       make(map[string]xproto.Atom),
		trackTitles: trackTitles,
		events:      make(chan window.Event, eventBuffer),
		done:        make(chan struct{}),
	}

	for _, name := range []string{atomActiveWindow, atomNetWMName, atomNetWMPID, atomUTF8String, atomCompoundText} {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		c.atoms[name] = reply.Atom
	}

	// _NET_ACTIVE_WINDOW lives on the root window
	err = xproto.ChangeWindowAttributesChecked(conn, c.root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to subscribe to root window property changes")
	}

	if active, err := c.readActiveWindow(); err == nil {
		c.active = active
		c.watch(active)
	} else {
		log.Printf("Could not read initial active window: %v", err)
	}

	go c.readLoop()
	return c, nil
}

// GetDisplayServer returns "x11"
func (c *Conn) GetDisplayServer() string {
	return "x11"
}

// ActiveWindow returns the window currently holding focus
func (c *Conn) ActiveWindow() (window.Handle, error) {
	w, err := c.readActiveWindow()
	if err != nil {
		return window.NoWindow, err
	}
	return c.handle(w), nil
}

// NextEvent blocks until the next focus or title change
func (c *Conn) NextEvent(ctx context.Context) (window.Event, error) {
	select {
	case <-ctx.Done():
		return window.Event{}, ctx.Err()
	case ev, ok := <-c.events:
		if !ok {
			return window.Event{}, window.ErrConnectionClosed
		}
		return ev, nil
	}
}

// WindowTitle prefers the UTF-8 _NET_WM_NAME and falls back to WM_NAME
func (c *Conn) WindowTitle(h window.Handle) (string, error) {
	if h == window.NoWindow {
		return "", errPropertyUnavailable
	}
	w := xproto.Window(h)
	if title, err := c.textProperty(w, c.atoms[atomNetWMName]); err == nil {
		return title, nil
	}
	return c.textProperty(w, xproto.AtomWmName)
}

// WindowClass returns the instance and class parts of WM_CLASS
func (c *Conn) WindowClass(h window.Handle) (string, string, error) {
	if h == window.NoWindow {
		return "", "", errPropertyUnavailable
	}
	value, err := c.textProperty(xproto.Window(h), xproto.AtomWmClass)
	if err != nil {
		return "", "", err
	}
	instance, class := splitClass(value)
	return instance, class, nil
}

// WindowPID reads _NET_WM_PID, which not every client sets
func (c *Conn) WindowPID(h window.Handle) (uint32, error) {
	if h == window.NoWindow {
		return 0, errPropertyUnavailable
	}
	reply, err := xproto.GetProperty(c.conn, false, xproto.Window(h), c.atoms[atomNetWMPID],
		xproto.AtomCardinal, 0, 1).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get _NET_WM_PID")
	}
	if reply.Format != 32 || len(reply.Value) < 4 {
		return 0, errPropertyUnavailable
	}
	return xgb.Get32(reply.Value), nil
}

// Close releases the connection. The event loop exits and any
// pending NextEvent returns window.ErrConnectionClosed.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

func (c *Conn) readLoop() {
	defer close(c.events)

	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			// BadWindow for a destroyed window we still watch is expected
			log.Printf("X11 error: %v", xerr)
			continue
		}

		notify, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok || notify.State != xproto.PropertyNewValue {
			continue
		}

		out, ok := c.translate(notify)
		if !ok {
			continue
		}

		select {
		case c.events <- out:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) translate(notify xproto.PropertyNotifyEvent) (window.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if notify.Window == c.root && notify.Atom == c.atoms[atomActiveWindow] {
		w, err := c.readActiveWindow()
		if err != nil {
			log.Printf("Failed to read active window: %v", err)
			w = 0
		}
		if w == c.active {
			return window.Event{}, false
		}
		c.unwatch(c.active)
		c.watch(w)
		c.active = w
		return window.Event{Window: c.handle(w), Kind: window.FocusChanged}, true
	}

	if c.trackTitles && notify.Window == c.active && notify.Window != c.root &&
		(notify.Atom == xproto.AtomWmName || notify.Atom == c.atoms[atomNetWMName]) {
		return window.Event{Window: c.handle(notify.Window), Kind: window.TitleChanged}, true
	}

	return window.Event{}, false
}

func (c *Conn) readActiveWindow() (xproto.Window, error) {
	reply, err := xproto.GetProperty(c.conn, false, c.root, c.atoms[atomActiveWindow],
		xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get _NET_ACTIVE_WINDOW")
	}
	if reply.Type != xproto.AtomWindow || reply.Format != 32 || reply.ValueLen != 1 {
		return 0, errors.New("invalid _NET_ACTIVE_WINDOW reply")
	}
	return xproto.Window(xgb.Get32(reply.Value)), nil
}

func (c *Conn) textProperty(w xproto.Window, atom xproto.Atom) (string, error) {
	reply, err := xproto.GetProperty(c.conn, false, w, atom, xproto.GetPropertyTypeAny,
		0, maxPropertyLength).Reply()
	if err != nil {
		return "", errors.Wrap(err, "failed to get text property")
	}
	if reply.Format != 8 || reply.ValueLen == 0 {
		return "", errPropertyUnavailable
	}

	switch reply.Type {
	case xproto.AtomString, c.atoms[atomUTF8String], c.atoms[atomCompoundText]:
		return strings.TrimRight(string(reply.Value), "\x00"), nil
	default:
		return "", errors.Errorf("unsupported text property type %d", reply.Type)
	}
}

// watch subscribes to title changes of w. Errors for windows that are
// already gone arrive asynchronously on the event loop.
func (c *Conn) watch(w xproto.Window) {
	if !c.trackTitles || w == 0 || w == c.root {
		return
	}
	xproto.ChangeWindowAttributes(c.conn, w, xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange})
}

func (c *Conn) unwatch(w xproto.Window) {
	// never drop the root subscription
	if !c.trackTitles || w == 0 || w == c.root {
		return
	}
	xproto.ChangeWindowAttributes(c.conn, w, xproto.CwEventMask, []uint32{xproto.EventMaskNoEvent})
}

func (c *Conn) handle(w xproto.Window) window.Handle {
	if w == 0 || w == c.root {
		return window.NoWindow
	}
	return window.Handle(w)
}

// splitClass parses the NUL separated "instance\0class\0" WM_CLASS value
func splitClass(value string) (instance, class string) {
	parts := strings.Split(strings.TrimRight(value, "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}
