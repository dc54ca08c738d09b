package wayland

import (
	"errors"
	"strings"
	"testing"

	"github.com/procsense/procsense/pkg/fixedtext"
	"github.com/procsense/procsense/pkg/window"
)

func TestNewSensor(t *testing.T) {
	sensor := NewSensor()
	if sensor == nil {
		t.Fatal("NewSensor() returned nil")
	}

	t.Logf("Detected compositor: %s", sensor.Compositor())
}

func TestGetDisplayServer(t *testing.T) {
	sensor := NewSensor()
	displayServer := sensor.GetDisplayServer()

	if displayServer != "wayland" {
		t.Errorf("GetDisplayServer() = %s, want %s", displayServer, "wayland")
	}
}

func TestDetectCompositorFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"hyprland", map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "abc"}, "hyprland"},
		{"sway", map[string]string{"SWAYSOCK": "/run/user/1000/sway-ipc.sock"}, "sway"},
		{"gnome", map[string]string{"XDG_CURRENT_DESKTOP": "ubuntu:GNOME"}, "gnome"},
		{"hyprland wins over sway", map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "abc", "SWAYSOCK": "x"}, "hyprland"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectCompositor(func(k string) string { return tt.env[k] })
			if got != tt.want {
				t.Errorf("detectCompositor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	sensor := NewSensor()

	available := sensor.IsAvailable()
	t.Logf("Wayland sensor available: %v", available)
	t.Logf("Compositor: %s", sensor.Compositor())

	unknown := &Sensor{compositor: "unknown"}
	if unknown.IsAvailable() {
		t.Error("IsAvailable() = true for unknown compositor")
	}
}

func TestCaptureActiveWindow(t *testing.T) {
	sensor := NewSensor()

	if !sensor.IsAvailable() {
		t.Skip("Wayland sensor not available on this system")
	}

	sample, err := sensor.CaptureActiveWindow()
	if err != nil {
		t.Logf("CaptureActiveWindow() error (may be expected): %v", err)
		return
	}

	t.Logf("PID: %d", sample.PID)
	t.Logf("Title: %s", sample.Title)

	if sample.DisplayServer != "wayland" {
		t.Errorf("DisplayServer = %s, want wayland", sample.DisplayServer)
	}
}

func TestCaptureUnsupportedCompositor(t *testing.T) {
	sensor := &Sensor{compositor: "river"}

	sample, err := sensor.CaptureActiveWindow()
	if !errors.Is(err, window.ErrUnavailable) {
		t.Errorf("CaptureActiveWindow() error = %v, want ErrUnavailable", err)
	}
	if sample.PID != 0 {
		t.Errorf("PID = %d, want 0", sample.PID)
	}
}

func TestParseSwayTree(t *testing.T) {
	sampleJSON := `{
		"id": 1, "focused": false, "name": "root",
		"nodes": [{
			"id": 2, "focused": false, "name": "HDMI-A-1",
			"nodes": [{"id": 3, "focused": false, "name": "1", "nodes": [
				{"id": 10, "focused": false, "name": "Terminal", "pid": 900}
			]}],
			"floating_nodes": []
		}, {
			"id": 4, "focused": false, "name": "DP-1",
			"nodes": [{"id": 5, "focused": false, "name": "2", "nodes": [],
				"floating_nodes": [
					{"id": 11, "focused": true, "app_id": "firefox", "name": "Mozilla Firefox", "pid": 1234}
				]}]
		}]
	}`

	pid, title, err := parseSwayTree([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parseSwayTree() error: %v", err)
	}

	if pid != 1234 {
		t.Errorf("pid = %d, want 1234", pid)
	}
	if title != "Mozilla Firefox" {
		t.Errorf("title = %s, want Mozilla Firefox", title)
	}
}

func TestParseSwayTreeNothingFocused(t *testing.T) {
	pid, _, err := parseSwayTree([]byte(`{"focused": false, "nodes": []}`))
	if err != nil {
		t.Fatalf("parseSwayTree() error: %v", err)
	}
	if pid != 0 {
		t.Errorf("pid = %d, want 0", pid)
	}

	if _, _, err := parseSwayTree([]byte("not json")); err == nil {
		t.Error("parseSwayTree() accepted invalid JSON")
	}
}

func TestParseHyprlandWindow(t *testing.T) {
	sampleJSON := `{
		"class": "kitty",
		"title": "Terminal Window",
		"pid": 5678
	}`

	pid, title, err := parseHyprlandWindow([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parseHyprlandWindow() error: %v", err)
	}

	if pid != 5678 {
		t.Errorf("pid = %d, want 5678", pid)
	}
	if title != "Terminal Window" {
		t.Errorf("title = %s, want Terminal Window", title)
	}
}

func TestParseGnomeEval(t *testing.T) {
	pid, title, err := parseGnomeEval(true, `{"pid":4242,"title":"Files"}`)
	if err != nil {
		t.Fatalf("parseGnomeEval() error: %v", err)
	}
	if pid != 4242 || title != "Files" {
		t.Errorf("parseGnomeEval() = %d %q, want 4242 Files", pid, title)
	}

	_, _, err = parseGnomeEval(false, "")
	if !errors.Is(err, window.ErrUnavailable) {
		t.Errorf("refused Eval error = %v, want ErrUnavailable", err)
	}
}

func TestSample(t *testing.T) {
	tests := []struct {
		name    string
		pid     int64
		title   string
		wantErr bool
	}{
		{"valid", 1234, "Editor", false},
		{"empty title", 1234, "", false},
		{"zero pid", 0, "Editor", true},
		{"hyprland empty reply", 0, "", true},
		{"negative pid", -1, "x", true},
		{"overflowing pid", 1 << 40, "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := sample(tt.pid, tt.title)
			if tt.wantErr {
				if !errors.Is(err, window.ErrNoActiveWindow) {
					t.Errorf("sample() error = %v, want ErrNoActiveWindow", err)
				}
				if s != (window.Sample{}) {
					t.Errorf("sample() = %+v, want zero sample", s)
				}
				return
			}
			if err != nil {
				t.Fatalf("sample() error: %v", err)
			}
			if s.PID != uint32(tt.pid) || s.Title != tt.title {
				t.Errorf("sample() = %+v", s)
			}
		})
	}
}

func TestSampleTruncatesTitle(t *testing.T) {
	s, err := sample(1, strings.Repeat("W", 1000))
	if err != nil {
		t.Fatalf("sample() error: %v", err)
	}
	if len(s.Title) != fixedtext.TitleCapacity-1 {
		t.Errorf("title length = %d, want %d", len(s.Title), fixedtext.TitleCapacity-1)
	}
}

func TestClose(t *testing.T) {
	sensor := NewSensor()
	err := sensor.Close()
	if err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
}

func TestSensorInterface(t *testing.T) {
	var _ window.Sensor = (*Sensor)(nil)
}

func BenchmarkDetectCompositor(b *testing.B) {
	env := map[string]string{"SWAYSOCK": "x"}
	for i := 0; i < b.N; i++ {
		_ = detectCompositor(func(k string) string { return env[k] })
	}
}
