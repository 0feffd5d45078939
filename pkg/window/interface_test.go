package window

import (
	"context"
	"testing"
)

type MockDisplay struct {
	active        Handle
	titles        map[Handle]string
	events        chan Event
	displayServer string
	closeError    error
}

func (m *MockDisplay) ActiveWindow() (Handle, error) {
	return m.active, nil
}

func (m *MockDisplay) NextEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case ev, ok := <-m.events:
		if !ok {
			return Event{}, ErrConnectionClosed
		}
		return ev, nil
	}
}

func (m *MockDisplay) WindowTitle(w Handle) (string, error) {
	return m.titles[w], nil
}

func (m *MockDisplay) WindowClass(Handle) (string, string, error) {
	return "mock", "Mock", nil
}

func (m *MockDisplay) WindowPID(Handle) (uint32, error) {
	return 0, nil
}

func (m *MockDisplay) GetDisplayServer() string {
	return m.displayServer
}

func (m *MockDisplay) Close() error {
	return m.closeError
}

func TestMockDisplay(t *testing.T) {
	var _ Display = (*MockDisplay)(nil)

	events := make(chan Event, 1)
	mock := &MockDisplay{
		active:        0x400001,
		titles:        map[Handle]string{0x400001: "Test Window"},
		events:        events,
		displayServer: "x11",
	}

	active, err := mock.ActiveWindow()
	if err != nil {
		t.Fatalf("ActiveWindow() error: %v", err)
	}
	if title, _ := mock.WindowTitle(active); title != "Test Window" {
		t.Errorf("WindowTitle() = %s, want Test Window", title)
	}

	events <- Event{Window: 0x400002, Kind: FocusChanged}
	ev, err := mock.NextEvent(context.Background())
	if err != nil || ev.Window != 0x400002 {
		t.Errorf("NextEvent() = %+v, %v", ev, err)
	}

	close(events)
	if _, err := mock.NextEvent(context.Background()); err != ErrConnectionClosed {
		t.Errorf("NextEvent() after close = %v, want ErrConnectionClosed", err)
	}
}

func TestWindowInfoIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		info WindowInfo
		want bool
	}{
		{"zero value", WindowInfo{}, true},
		{"title only", WindowInfo{Name: "Inbox"}, false},
		{"class only", WindowInfo{Class: "firefox"}, false},
		{"pid only", WindowInfo{PID: 42}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{FocusChanged, "focus"},
		{TitleChanged, "title"},
		{EventKind(9), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}
