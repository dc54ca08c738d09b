package x11

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/procsense/procsense/pkg/fixedtext"
	"github.com/procsense/procsense/pkg/window"
)

const (
	activeWindowAttempts = 3
	attemptDelay         = 20 * time.Millisecond
)

// titleLongs is the property length, in 32-bit units, that covers a title
// field of TitleCapacity bytes.
var titleLongs = uint32((fixedtext.TitleCapacity + 3) / 4)

// Sensor implements window.Sensor for X11 (and XWayland) through EWMH
// properties on the root window. Each capture opens its own connection.
type Sensor struct {
	display string
}

// NewSensor creates an X11 sensor for display; an empty display uses $DISPLAY.
func NewSensor(display string) *Sensor {
	return &Sensor{display: display}
}

// IsAvailable checks if an X display is configured
func (s *Sensor) IsAvailable() bool {
	return s.display != "" || os.Getenv("DISPLAY") != ""
}

// GetDisplayServer returns "x11"
func (s *Sensor) GetDisplayServer() string {
	return "x11"
}

// CaptureActiveWindow reads _NET_ACTIVE_WINDOW, then its _NET_WM_PID and title.
func (s *Sensor) CaptureActiveWindow() (window.Sample, error) {
	client, err := newClient(s.display)
	if err != nil {
		return window.Sample{}, fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer client.close()

	win, err := client.activeWindow()
	if err != nil {
		return window.Sample{}, err
	}

	pid := client.windowPID(win)
	if pid == 0 {
		return window.NoActiveWindow("window 0x%x has no _NET_WM_PID", uint32(win))
	}

	return window.Sample{
		PID:           pid,
		Title:         client.windowName(win),
		DisplayServer: "x11",
	}, nil
}

// Close cleans up resources
func (s *Sensor) Close() error {
	return nil
}

type client struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"UTF8_STRING",
}

func newClient(display string) (*client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	setup := xproto.Setup(conn)
	c := &client{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		c.atoms[name] = reply.Atom
	}

	return c, nil
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) property(win xproto.Window, atom, typ xproto.Atom, longs uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, win, atom, typ, 0, longs).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *client) activeFromProperty() xproto.Window {
	data, err := c.property(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (c *client) activeFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil || reply.Focus == c.root {
		return 0
	}
	return c.topLevel(reply.Focus)
}

// topLevel walks up to the child of the root window.
func (c *client) topLevel(win xproto.Window) xproto.Window {
	for win != 0 {
		reply, err := xproto.QueryTree(c.conn, win).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
	return 0
}

func (c *client) activeWindow() (xproto.Window, error) {
	for i := 0; i < activeWindowAttempts; i++ {
		if win := c.activeFromProperty(); win != 0 {
			return win, nil
		}
		// PointerRoot and None are 1 and 0
		if win := c.activeFromInputFocus(); win > 1 {
			return win, nil
		}
		time.Sleep(attemptDelay)
	}
	_, err := window.NoActiveWindow("no focused X11 window")
	return 0, err
}

func (c *client) windowName(win xproto.Window) string {
	data, err := c.property(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], titleLongs)
	if err == nil && len(data) > 0 {
		return fixedtext.Bytes(data, fixedtext.TitleCapacity)
	}

	data, err = c.property(win, c.atoms["WM_NAME"], xproto.AtomString, titleLongs)
	if err == nil && len(data) > 0 {
		return fixedtext.Bytes(data, fixedtext.TitleCapacity)
	}

	return ""
}

func (c *client) windowPID(win xproto.Window) uint32 {
	data, err := c.property(win, c.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}
