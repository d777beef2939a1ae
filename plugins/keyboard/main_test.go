package main

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestTypeCommand(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		code     string
		suffix   string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{
			name:     "linux with enter",
			goos:     "linux",
			code:     "4006381333931",
			suffix:   "enter",
			wantName: "xdotool",
			wantArgs: []string{"type", "--clearmodifiers", "4006381333931", "key", "--clearmodifiers", "Return"},
		},
		{
			name:     "linux without suffix",
			goos:     "linux",
			code:     "SHELF-0042",
			suffix:   "none",
			wantName: "xdotool",
			wantArgs: []string{"type", "--clearmodifiers", "SHELF-0042"},
		},
		{
			name:     "darwin",
			goos:     "darwin",
			code:     "123",
			suffix:   "tab",
			wantName: "osascript",
		},
		{name: "empty code", goos: "linux", wantErr: true},
		{name: "unsupported os", goos: "plan9", code: "1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args, err := typeCommand(tt.goos, tt.code, tt.suffix)
			if (err != nil) != tt.wantErr {
				t.Fatalf("typeCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if tt.wantArgs != nil && !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %q, want %q", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildKeystrokeScript(t *testing.T) {
	script := buildKeystrokeScript(`AB"C`, "enter")
	if !strings.Contains(script, `keystroke "AB\"C"`) {
		t.Errorf("quote not escaped: %s", script)
	}
	if !strings.Contains(script, "key code 36") {
		t.Errorf("enter suffix missing: %s", script)
	}
	if strings.Contains(buildKeystrokeScript("1", "none"), "key code") {
		t.Error("no suffix expected")
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(nil)
	if err != nil || cfg.Suffix != "enter" {
		t.Errorf("default config = %+v, %v", cfg, err)
	}
	cfg, err = parseConfig(json.RawMessage(`{"suffix":" TAB "}`))
	if err != nil || cfg.Suffix != "tab" {
		t.Errorf("tab config = %+v, %v", cfg, err)
	}
	if _, err := parseConfig(json.RawMessage(`{"suffix":"space"}`)); err == nil {
		t.Error("unknown suffix should fail")
	}
}
