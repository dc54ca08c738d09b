package wayland

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/procsense/procsense/pkg/fixedtext"
	"github.com/procsense/procsense/pkg/window"
)

const queryTimeout = 2 * time.Second

// gnomeFocusScript is evaluated inside GNOME Shell and returns the focused
// window as JSON.
const gnomeFocusScript = `(function () {
	let w = global.display.focus_window;
	if (!w) return JSON.stringify({pid: 0, title: ""});
	return JSON.stringify({pid: w.get_pid(), title: w.get_title() || ""});
})()`

// Sensor implements window.Sensor for Wayland compositors that expose the
// focused client: GNOME Shell over D-Bus, sway and Hyprland over their IPC
// tools.
type Sensor struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
}

// NewSensor detects the running compositor.
func NewSensor() *Sensor {
	s := &Sensor{}
	s.hasSwaymsg = commandExists("swaymsg")
	s.hasHyprctl = commandExists("hyprctl")
	s.compositor = detectCompositor(os.Getenv)
	return s
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// detectCompositor identifies the compositor from its session variables,
// then from the process list.
func detectCompositor(getenv func(string) string) string {
	switch {
	case getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return "hyprland"
	case getenv("SWAYSOCK") != "":
		return "sway"
	case strings.Contains(strings.ToUpper(getenv("XDG_CURRENT_DESKTOP")), "GNOME"):
		return "gnome"
	}

	compositors := []struct{ process, name string }{
		{"sway", "sway"},
		{"Hyprland", "hyprland"},
		{"gnome-shell", "gnome"},
	}
	for _, c := range compositors {
		if err := exec.Command("pgrep", "-x", c.process).Run(); err == nil {
			return c.name
		}
	}

	return "unknown"
}

// Compositor returns the detected compositor name.
func (s *Sensor) Compositor() string {
	return s.compositor
}

// IsAvailable checks if the compositor can report its focused window
func (s *Sensor) IsAvailable() bool {
	switch s.compositor {
	case "sway":
		return s.hasSwaymsg
	case "hyprland":
		return s.hasHyprctl
	case "gnome":
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" || os.Getenv("XDG_RUNTIME_DIR") != ""
	default:
		return false
	}
}

// GetDisplayServer returns "wayland"
func (s *Sensor) GetDisplayServer() string {
	return "wayland"
}

// CaptureActiveWindow asks the compositor for its focused client.
func (s *Sensor) CaptureActiveWindow() (window.Sample, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var (
		pid   int64
		title string
		err   error
	)

	switch s.compositor {
	case "sway":
		pid, title, err = s.focusedSway(ctx)
	case "hyprland":
		pid, title, err = s.focusedHyprland(ctx)
	case "gnome":
		pid, title, err = s.focusedGnome(ctx)
	default:
		return window.Sample{}, fmt.Errorf("%w: unsupported wayland compositor %s", window.ErrUnavailable, s.compositor)
	}
	if err != nil {
		return window.Sample{}, err
	}

	return sample(pid, title)
}

// Close cleans up resources
func (s *Sensor) Close() error {
	return nil
}

func sample(pid int64, title string) (window.Sample, error) {
	if pid <= 0 || pid > int64(^uint32(0)) {
		return window.NoActiveWindow("compositor reported pid %d", pid)
	}
	return window.Sample{
		PID:           uint32(pid),
		Title:         fixedtext.String(title, fixedtext.TitleCapacity),
		DisplayServer: "wayland",
	}, nil
}

func (s *Sensor) focusedSway(ctx context.Context) (int64, string, error) {
	output, err := exec.CommandContext(ctx, "swaymsg", "-t", "get_tree", "-r").Output()
	if err != nil {
		return 0, "", fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	return parseSwayTree(output)
}

type swayNode struct {
	Focused       bool       `json:"focused"`
	PID           int64      `json:"pid"`
	Name          string     `json:"name"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

// parseSwayTree finds the focused node of a get_tree reply.
func parseSwayTree(data []byte) (int64, string, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return 0, "", fmt.Errorf("failed to parse sway tree: %w", err)
	}
	if n := findFocused(&root); n != nil {
		return n.PID, n.Name, nil
	}
	return 0, "", nil
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for _, children := range [][]swayNode{n.Nodes, n.FloatingNodes} {
		for i := range children {
			if f := findFocused(&children[i]); f != nil {
				return f
			}
		}
	}
	return nil
}

func (s *Sensor) focusedHyprland(ctx context.Context) (int64, string, error) {
	output, err := exec.CommandContext(ctx, "hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return 0, "", fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return parseHyprlandWindow(output)
}

type focusReply struct {
	PID   int64  `json:"pid"`
	Title string `json:"title"`
}

// parseHyprlandWindow parses `hyprctl activewindow -j`, which prints {} when
// nothing is focused.
func parseHyprlandWindow(data []byte) (int64, string, error) {
	var w focusReply
	if err := json.Unmarshal(data, &w); err != nil {
		return 0, "", fmt.Errorf("failed to parse hyprctl output: %w", err)
	}
	return w.PID, w.Title, nil
}

func (s *Sensor) focusedGnome(ctx context.Context) (int64, string, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return 0, "", fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	var (
		ok     bool
		result string
	)
	obj := conn.Object("org.gnome.Shell", "/org/gnome/Shell")
	if err := obj.CallWithContext(ctx, "org.gnome.Shell.Eval", 0, gnomeFocusScript).Store(&ok, &result); err != nil {
		return 0, "", fmt.Errorf("org.gnome.Shell.Eval: %w", err)
	}
	return parseGnomeEval(ok, result)
}

// parseGnomeEval interprets the (success, result) pair returned by
// org.gnome.Shell.Eval.
func parseGnomeEval(ok bool, result string) (int64, string, error) {
	if !ok {
		return 0, "", errors.Join(window.ErrUnavailable, fmt.Errorf("GNOME Shell refused Eval: %s", result))
	}
	var w focusReply
	if err := json.Unmarshal([]byte(result), &w); err != nil {
		return 0, "", fmt.Errorf("failed to parse Shell.Eval result: %w", err)
	}
	return w.PID, w.Title, nil
}
