// Package main is a plugin that celebrates challenge milestones on macOS
// with a system sound, a notification banner and optional speech.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
)

// Request is the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Event  string          `json:"event"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response is the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Event mirrors the challenge event passed in Params.
type Event struct {
	Kind     string `json:"kind"`
	PoseName string `json:"pose_name"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
	Score    int    `json:"score"`
}

// Config tunes a hook.
type Config struct {
	Sound  string `json:"sound"`
	Notify *bool  `json:"notify"`
	Say    bool   `json:"say"`
}

const soundDir = "/System/Library/Sounds"

type actionHandler func(ev Event, cfg Config) error

var actionHandlers = map[string]actionHandler{
	"pose_complete":  poseComplete,
	"level_complete": levelComplete,
	"chime":          chime,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	if runtime.GOOS != "darwin" {
		writeErrorResponse("celebrate requires macOS")
		return
	}

	var ev Event
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &ev); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid params: %v", err))
			return
		}
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	if err := handler(ev, cfg); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func (c Config) notify() bool {
	return c.Notify == nil || *c.Notify
}

func (c Config) sound(fallback string) string {
	if c.Sound != "" {
		return c.Sound
	}
	return fallback
}

func poseComplete(ev Event, cfg Config) error {
	msg := fmt.Sprintf("%s held. +%d points", ev.PoseName, ev.Points)
	return celebrate(cfg, "Glass", "Pose Complete!", msg)
}

func levelComplete(ev Event, cfg Config) error {
	msg := fmt.Sprintf("On to level %d. Score %d", ev.Level, ev.Score)
	return celebrate(cfg, "Hero", "Level Complete!", msg)
}

func chime(_ Event, cfg Config) error {
	return playSound(cfg.sound("Tink"))
}

func celebrate(cfg Config, sound, title, msg string) error {
	if err := playSound(cfg.sound(sound)); err != nil {
		return err
	}
	if cfg.notify() {
		if err := notify(title, msg); err != nil {
			return err
		}
	}
	if cfg.Say {
		return run("say", msg)
	}
	return nil
}

// playSound plays one of the bundled system sounds by name.
func playSound(name string) error {
	path := filepath.Join(soundDir, filepath.Base(name)+".aiff")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("unknown sound %q", name)
	}
	return run("afplay", path)
}

func notify(title, msg string) error {
	script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(msg), strconv.Quote(title))
	return run("osascript", "-e", script)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
