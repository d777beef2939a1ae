package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/config"
	"github.com/ayusman/shelfscan/internal/decoder"
	"github.com/ayusman/shelfscan/internal/fixtures"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/server"
)

const testToken = "shelf-secret"

type harness struct {
	rt      *app.Runtime
	engine  *decoder.MockEngine
	devices *capture.MockDevices
	ts      *httptest.Server
	hub     *server.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = dir
	cfg.Database.DSN = filepath.Join(dir, "shelfscan.db")
	cfg.Documents.Root = filepath.Join(dir, "Local")
	cfg.Hooks.Dir = filepath.Join(dir, "hooks")

	h := &harness{
		engine:  decoder.NewMockEngine(),
		devices: capture.NewMockDevices(capture.MockCameras(2)...),
		hub:     server.NewHub(nil),
	}
	rt, err := app.Bootstrap(context.Background(), &cfg, app.Options{
		Devices: h.devices,
		Factory: decoder.MockFactory(h.engine),
	})
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	h.rt = rt

	rt.App.SetSurface(h.hub)
	rt.App.Subscribe(h.hub.ScanEvent)

	hash, err := server.HashToken(testToken)
	if err != nil {
		t.Fatal(err)
	}
	srv := server.New(server.Config{
		TokenHash: hash,
		App:       rt.App,
		Documents: rt.Documents,
		Scans:     rt.DB.Scans(),
		Metrics:   rt.Metrics,
		Hub:       h.hub,
	})
	h.ts = httptest.NewServer(srv)
	t.Cleanup(h.ts.Close)
	t.Cleanup(h.hub.Close)
	return h
}

func (h *harness) request(t *testing.T, method, path string, body io.Reader, authorized bool) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, h.ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := h.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func (h *harness) events(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	waitFor(t, "event client", func() bool { return h.hub.Clients() == 1 })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func nextMessage(t *testing.T, conn *websocket.Conn) server.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg server.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return msg
}

func TestE2E_ScanAndStock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	h := newHarness(t)
	conn := h.events(t)

	type scanReply struct {
		status int
		body   []byte
		err    error
	}
	done := make(chan scanReply, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, h.ts.URL+"/api/scan", nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		resp, err := h.ts.Client().Do(req)
		if err != nil {
			done <- scanReply{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		done <- scanReply{status: resp.StatusCode, body: body, err: err}
	}()

	waitFor(t, "decoder start", h.engine.Running)
	if got := h.devices.MediaCalls()[0].Facing; got != capture.FacingEnvironment {
		t.Errorf("facing with two cameras = %q, want environment", got)
	}
	h.engine.Emit("4006381333931", "ean_13")

	var reply scanReply
	select {
	case reply = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan request did not return")
	}
	if reply.err != nil {
		t.Fatalf("scan request: %v", reply.err)
	}
	if reply.status != http.StatusOK {
		t.Fatalf("scan status = %d, body %s", reply.status, reply.body)
	}
	var result app.ScanResult
	if err := json.Unmarshal(reply.body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Barcode != "4006381333931" || result.Existing {
		t.Errorf("scan result = %+v", result)
	}
	if h.devices.LiveTracks() != 0 {
		t.Error("camera still held after scan")
	}

	var seen []string
	for len(seen) < 4 {
		msg := nextMessage(t, conn)
		if msg.Type == server.MessageSurface {
			if msg.Visible != nil && *msg.Visible {
				seen = append(seen, "show")
			} else {
				seen = append(seen, "hide")
			}
			continue
		}
		seen = append(seen, msg.Type)
	}
	want := []string{app.EventScanStarted, "show", "hide", app.EventScanAccepted}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events = %v, want %v", seen, want)
		}
	}

	// Writes need the token; the pending barcode fills in the item.
	if status, _ := h.request(t, http.MethodPost, "/api/items", strings.NewReader(`{"name":"Pen"}`), false); status != http.StatusUnauthorized {
		t.Errorf("unauthorized create status = %d, want 401", status)
	}
	status, body := h.request(t, http.MethodPost, "/api/items", strings.NewReader(`{"name":"Pen","quantity":4,"price":1.5}`), true)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", status, body)
	}
	var item inventory.Item
	if err := json.Unmarshal(body, &item); err != nil {
		t.Fatal(err)
	}
	if item.Barcode != "4006381333931" || item.Quantity != 4 {
		t.Errorf("created item = %+v", item)
	}
	if status, body := h.request(t, http.MethodPost, "/api/items", strings.NewReader(`{"barcode":"4006381333931","name":"Dup"}`), true); status != http.StatusConflict {
		t.Errorf("duplicate status = %d, body %s", status, body)
	}

	// A still image of the same code now resolves to the stocked item.
	img, err := fixtures.EAN13("4006381333931")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	status, body = h.request(t, http.MethodPost, "/api/scan/image", &buf, true)
	if status != http.StatusOK {
		t.Fatalf("image scan status = %d, body %s", status, body)
	}
	result = app.ScanResult{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if !result.Existing || result.Item == nil || result.Item.Name != "Pen" {
		t.Errorf("image scan result = %+v", result)
	}

	status, body = h.request(t, http.MethodGet, "/api/scans?limit=5", nil, false)
	if status != http.StatusOK {
		t.Fatalf("scans status = %d", status)
	}
	var history struct {
		Scans []struct {
			Barcode  string `json:"barcode"`
			Existing bool   `json:"existing"`
		} `json:"scans"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatal(err)
	}
	if len(history.Scans) != 2 || !history.Scans[0].Existing || history.Scans[1].Existing {
		t.Errorf("scan history = %+v", history.Scans)
	}

	status, body = h.request(t, http.MethodGet, "/metrics", nil, false)
	if status != http.StatusOK || !strings.Contains(string(body), "shelfscan_inventory_items 1") {
		t.Errorf("metrics missing inventory size: %d", status)
	}
}

func TestE2E_Documents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	h := newHarness(t)

	if status, body := h.request(t, http.MethodGet, "/api/load/stock.json", nil, false); status != http.StatusNotFound || !strings.Contains(string(body), "File not found") {
		t.Errorf("missing load = %d %s", status, body)
	}

	doc := `[{"barcode":"5000112637922","name":"Cola","quantity":6}]`
	status, body := h.request(t, http.MethodPost, "/api/save/stock.json", strings.NewReader(doc), true)
	if status != http.StatusOK || !strings.Contains(string(body), "File saved successfully") {
		t.Fatalf("save = %d %s", status, body)
	}

	onDisk, err := os.ReadFile(filepath.Join(h.rt.Config.Documents.Root, "stock.json"))
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if !strings.Contains(string(onDisk), "\n  {") {
		t.Errorf("saved file not indented: %s", onDisk)
	}

	status, body = h.request(t, http.MethodGet, "/api/load/stock.json", nil, false)
	if status != http.StatusOK {
		t.Fatalf("load status = %d", status)
	}
	var loaded []map[string]any
	if err := json.Unmarshal(body, &loaded); err != nil {
		t.Fatalf("load body %s: %v", body, err)
	}
	if len(loaded) != 1 || loaded[0]["name"] != "Cola" {
		t.Errorf("loaded = %+v", loaded)
	}

	if status, _ := h.request(t, http.MethodPost, "/api/save/stock..json", strings.NewReader(doc), true); status != http.StatusBadRequest {
		t.Errorf("dotted name save status = %d, want 400", status)
	}
	if status, _ := h.request(t, http.MethodDelete, "/api/documents/stock.json", nil, true); status != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", status)
	}
	if status, _ := h.request(t, http.MethodGet, "/api/load/stock.json", nil, false); status != http.StatusNotFound {
		t.Errorf("load after delete status = %d, want 404", status)
	}
}

func TestE2E_NoCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	h := newHarness(t)
	h.devices.SetMediaError(capture.ErrNoDevice)

	status, body := h.request(t, http.MethodPost, "/api/scan", nil, true)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (%s)", status, body)
	}
	if !strings.Contains(string(body), "No camera found") {
		t.Errorf("body = %s", body)
	}
	if h.rt.App.Scanning() {
		t.Error("app still scanning after failure")
	}
}
