// Package tray provides the system tray menu for shelfscan.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: scan, last barcode, open inventory, quit.
type Tray struct {
	onScan   func()
	onCancel func()
	onOpen   func()
	onQuit   func()
	scanning bool
	last     string
	mu       sync.RWMutex

	menuScan *systray.MenuItem
	menuLast *systray.MenuItem
}

// New creates a new Tray.
func New() *Tray {
	return &Tray{}
}

// OnScan sets the callback run when "Scan" is clicked while idle.
func (t *Tray) OnScan(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onScan = fn
}

// OnCancel sets the callback run when "Scan" is clicked during a scan.
func (t *Tray) OnCancel(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCancel = fn
}

// OnOpen sets the callback run when "Open Inventory..." is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run when "Quit" is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is called and must run
// on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("shelfscan")
	systray.SetTooltip("shelfscan barcode inventory")

	t.mu.Lock()
	t.menuScan = systray.AddMenuItem(scanTitle(t.scanning), "Scan a barcode with the camera")
	systray.AddSeparator()
	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Last scanned barcode")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Inventory...", "Open the inventory in the browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit shelfscan")

	go func() {
		for {
			select {
			case <-t.menuScan.ClickedCh:
				t.handleScan()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handleScan starts a scan, or cancels the running one.
func (t *Tray) handleScan() {
	t.mu.RLock()
	callback := t.onScan
	if t.scanning {
		callback = t.onCancel
	}
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetScanning switches the scan entry between "Scan" and "Cancel Scan".
func (t *Tray) SetScanning(scanning bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scanning = scanning
	if t.menuScan != nil {
		t.menuScan.SetTitle(scanTitle(scanning))
	}
}

// SetLastBarcode updates the last barcode display in the menu.
func (t *Tray) SetLastBarcode(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = code
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(code))
	}
}

// Scanning reports whether the tray shows a scan in progress.
func (t *Tray) Scanning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scanning
}

// LastBarcode returns the barcode currently shown in the menu.
func (t *Tray) LastBarcode() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

func scanTitle(scanning bool) string {
	if scanning {
		return "■ Cancel Scan"
	}
	return "▶ Scan"
}

func lastTitle(code string) string {
	if code == "" {
		return "Last: none"
	}
	return "Last: " + code
}
