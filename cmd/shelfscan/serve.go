package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/logging"
	"github.com/ayusman/shelfscan/internal/server"
	"github.com/ayusman/shelfscan/internal/store"
	"github.com/ayusman/shelfscan/internal/tray"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var staticDir string
	var withTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event stream and optional tray menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(addr) == "" {
				addr = cfg.Server.Addr
			}
			if strings.TrimSpace(staticDir) == "" {
				staticDir = cfg.Server.StaticDir
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another shelfscan server is already running")
			}
			defer lock.Unlock()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(sigCtx)

			return ctx.withRuntime(cmd, func(c context.Context, rt *app.Runtime) error {
				return serve(c, rt, addr, staticDir, withTray)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory of static files to serve")
	cmd.Flags().BoolVar(&withTray, "tray", false, "Show a system tray menu")
	return cmd
}

func serve(ctx context.Context, rt *app.Runtime, addr, staticDir string, withTray bool) error {
	logger := rt.Logger
	hub := server.NewHub(logger)
	rt.App.SetSurface(hub)
	unsubscribe := rt.App.Subscribe(hub.ScanEvent)
	defer unsubscribe()

	watcher := capture.NewWatcher(logging.NewComponentLogger(logger, "hotplug"), hub.DeviceEvent)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("camera hotplug monitor unavailable", logging.Error(err))
	}
	defer watcher.Stop()

	srv := server.New(server.Config{
		StaticDir: staticDir,
		TokenHash: rt.Config.Server.APITokenHash,
		App:       rt.App,
		Documents: rt.Documents,
		Scans:     rt.DB.Scans(),
		Metrics:   rt.Metrics,
		Hub:       hub,
		Logger:    logger,

		InventoryDocument: rt.InventoryDocument,
	})

	if !withTray {
		return srv.ListenAndServe(ctx, addr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, addr)
	}()

	t := newTray(ctx, rt, "http://"+browserHost(addr), logger)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	// systray owns the main goroutine until Quit.
	t.Run()
	cancel()
	return <-errCh
}

func newTray(ctx context.Context, rt *app.Runtime, url string, logger *slog.Logger) *tray.Tray {
	t := tray.New()
	t.OnScan(func() {
		go func() {
			if _, err := rt.App.Scan(ctx); err != nil && app.Classify(err) != app.CategoryCancelled {
				logger.Warn("tray scan failed", logging.Error(err))
			}
		}()
	})
	t.OnCancel(func() { rt.App.Cancel() })
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			logger.Warn("opening browser failed", logging.Error(err), slog.String("url", url))
		}
	})

	rt.App.Subscribe(func(ev app.Event) {
		switch ev.Type {
		case app.EventScanStarted:
			t.SetScanning(true)
		case app.EventScanAccepted:
			t.SetScanning(false)
			t.SetLastBarcode(ev.Barcode)
		default:
			t.SetScanning(false)
		}
	})
	if rt.DB != nil {
		if last, err := rt.DB.Settings().Get(ctx, store.SettingLastBarcode); err == nil {
			t.SetLastBarcode(last)
		}
	}
	return t
}

// browserHost turns a listen address into something a browser can open.
func browserHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	if rest, ok := strings.CutPrefix(addr, "0.0.0.0"); ok {
		return "localhost" + rest
	}
	return addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
