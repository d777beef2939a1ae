//go:build linux

package capture

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestVideoMatcher(t *testing.T) {
	matcher := videoMatcher()

	tests := []struct {
		name  string
		event netlink.UEvent
		want  bool
	}{
		{
			name:  "camera added",
			event: netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "video4linux", "DEVNAME": "/dev/video2"}},
			want:  true,
		},
		{
			name:  "camera removed",
			event: netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"SUBSYSTEM": "video4linux", "DEVNAME": "/dev/video2"}},
			want:  true,
		},
		{
			name:  "change ignored",
			event: netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"SUBSYSTEM": "video4linux"}},
			want:  false,
		},
		{
			name:  "other subsystem",
			event: netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.Evaluate(tt.event); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHotplugFromUEvent(t *testing.T) {
	event, ok := hotplugFromUEvent(netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"DEVNAME": "/dev/video0"},
	})
	if !ok {
		t.Fatal("expected event with DEVNAME to be reported")
	}
	if event.Action != "add" || event.Device != "video0" {
		t.Errorf("event = %+v, want add video0", event)
	}

	event, ok = hotplugFromUEvent(netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/1-1/video4linux/video3"},
	})
	if !ok || event.Device != "video3" {
		t.Errorf("DEVPATH fallback = %+v, %v", event, ok)
	}

	if _, ok := hotplugFromUEvent(netlink.UEvent{Action: netlink.ADD}); ok {
		t.Error("event without device name should be ignored")
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := NewWatcher(nil, nil)
	w.Stop()
	if w.Running() {
		t.Error("watcher should not be running")
	}
}
