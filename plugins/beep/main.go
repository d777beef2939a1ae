// Command beep is a shelfscan hook that plays a short sound for each
// accepted scan: one for new barcodes and another for stocked items.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request is the hook input read from stdin.
type Request struct {
	Event    string          `json:"event"`
	Barcode  string          `json:"barcode"`
	Existing bool            `json:"existing"`
	Config   json.RawMessage `json:"config"`
}

// Response is the hook output written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config overrides the sound files per outcome.
type Config struct {
	New      string `json:"new"`
	Existing string `json:"existing"`
}

var defaultSounds = map[string]Config{
	"darwin": {
		New:      "/System/Library/Sounds/Glass.aiff",
		Existing: "/System/Library/Sounds/Tink.aiff",
	},
	"linux": {
		New:      "/usr/share/sounds/freedesktop/stereo/complete.oga",
		Existing: "/usr/share/sounds/freedesktop/stereo/message.oga",
	},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("failed to parse config: %v", err)})
			return
		}
	}

	sound := pickSound(runtime.GOOS, cfg, req.Existing)
	name, args, ok := playCommand(runtime.GOOS, sound)
	if !ok {
		ringBell()
		writeResponse(Response{Success: true, Data: json.RawMessage(`{"played":"bell"}`)})
		return
	}
	if output, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		ringBell()
		writeResponse(Response{Error: fmt.Sprintf("%s failed: %v: %s", name, err, strings.TrimSpace(string(output)))})
		return
	}

	data, _ := json.Marshal(map[string]string{"played": sound})
	writeResponse(Response{Success: true, Data: data})
}

// pickSound returns the configured sound for the outcome, falling back to
// the platform default.
func pickSound(goos string, cfg Config, existing bool) string {
	defaults := defaultSounds[goos]
	if existing {
		if cfg.Existing != "" {
			return cfg.Existing
		}
		return defaults.Existing
	}
	if cfg.New != "" {
		return cfg.New
	}
	return defaults.New
}

// playCommand returns the player for sound, or false when none applies.
func playCommand(goos, sound string) (string, []string, bool) {
	if sound == "" {
		return "", nil, false
	}
	switch goos {
	case "darwin":
		return "afplay", []string{sound}, true
	case "linux":
		return "paplay", []string{sound}, true
	default:
		return "", nil, false
	}
}

// ringBell writes BEL to the controlling terminal; stdout carries the
// response.
func ringBell() {
	if tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0); err == nil {
		tty.Write([]byte("\a"))
		tty.Close()
	}
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
