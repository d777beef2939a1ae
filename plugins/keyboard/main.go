// Command keyboard is a shelfscan hook that types each accepted barcode
// into the focused window, like a hardware wedge scanner.
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
	Event   string          `json:"event"`
	Barcode string          `json:"barcode"`
	Format  string          `json:"format"`
	Config  json.RawMessage `json:"config"`
}

// Response is the hook output written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the manifest "config" block.
type Config struct {
	// Suffix is typed after the barcode: "enter", "tab" or "none".
	Suffix string `json:"suffix"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Event != "scan.accepted" {
		writeSuccessResponse()
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	name, args, err := typeCommand(runtime.GOOS, req.Barcode, cfg.Suffix)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}
	if output, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		writeErrorResponse(fmt.Sprintf("%s failed: %v: %s", name, err, strings.TrimSpace(string(output))))
		return
	}

	writeSuccessResponse()
}

func parseConfig(raw json.RawMessage) (Config, error) {
	cfg := Config{Suffix: "enter"}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Suffix = strings.ToLower(strings.TrimSpace(cfg.Suffix))
	switch cfg.Suffix {
	case "", "none", "enter", "tab":
	default:
		return cfg, fmt.Errorf("unknown suffix %q", cfg.Suffix)
	}
	return cfg, nil
}

// typeCommand returns the command that types code followed by suffix.
func typeCommand(goos, code, suffix string) (string, []string, error) {
	if code == "" {
		return "", nil, fmt.Errorf("barcode is required")
	}
	switch goos {
	case "darwin":
		return "osascript", []string{"-e", buildKeystrokeScript(code, suffix)}, nil
	case "linux":
		args := []string{"type", "--clearmodifiers", code}
		switch suffix {
		case "enter":
			args = append(args, "key", "--clearmodifiers", "Return")
		case "tab":
			args = append(args, "key", "--clearmodifiers", "Tab")
		}
		return "xdotool", args, nil
	default:
		return "", nil, fmt.Errorf("typing is not supported on %s", goos)
	}
}

// buildKeystrokeScript generates an AppleScript that types code.
func buildKeystrokeScript(code, suffix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(code)
	script := fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escaped)
	switch suffix {
	case "enter":
		script += "\n" + `tell application "System Events" to key code 36`
	case "tab":
		script += "\n" + `tell application "System Events" to key code 48`
	}
	return script
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
