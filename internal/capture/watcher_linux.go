//go:build linux

package capture

import (
	"context"
	"log/slog"
	"path"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"github.com/ayusman/shelfscan/internal/logging"
)

// Watcher reports video4linux hotplug events from the udev netlink socket.
type Watcher struct {
	logger  *slog.Logger
	handler func(HotplugEvent)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewWatcher returns a watcher that calls handler for each camera add or
// remove event.
func NewWatcher(logger *slog.Logger, handler func(HotplugEvent)) *Watcher {
	return &Watcher{
		logger:  logging.NewComponentLogger(logger, "camera-watcher"),
		handler: handler,
	}
}

// Start connects to the netlink socket. A connection failure is logged and
// leaves hotplug reporting disabled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.logger.Warn("netlink unavailable; camera hotplug events disabled",
			logging.Error(err),
			slog.String(logging.FieldEventType, "netlink_connect_failed"),
		)
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.loop(ctx, conn, quit)

	w.logger.Info("camera watcher started")
	return nil
}

// Stop closes the netlink connection.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false
}

// Running reports whether the watcher is connected.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, videoMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handle(uevent)
		case err := <-errs:
			w.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

func (w *Watcher) handle(uevent netlink.UEvent) {
	event, ok := hotplugFromUEvent(uevent)
	if !ok {
		return
	}
	w.logger.Info("camera hotplug",
		slog.String("action", event.Action),
		slog.String("device", event.Device),
	)
	if w.handler != nil {
		w.handler(event)
	}
}

func videoMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func hotplugFromUEvent(uevent netlink.UEvent) (HotplugEvent, bool) {
	device := uevent.Env["DEVNAME"]
	if device == "" {
		if devpath := uevent.Env["DEVPATH"]; devpath != "" {
			device = path.Base(devpath)
		}
	}
	if device == "" {
		return HotplugEvent{}, false
	}
	return HotplugEvent{
		Action: string(uevent.Action),
		Device: path.Base(device),
	}, true
}
