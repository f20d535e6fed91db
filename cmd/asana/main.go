package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/asana/internal/app"
	"github.com/ayusman/asana/internal/capture"
	"github.com/ayusman/asana/internal/challenge"
	"github.com/ayusman/asana/internal/config"
	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/pose"
	"github.com/ayusman/asana/internal/server"
	"github.com/ayusman/asana/internal/store"
	"github.com/ayusman/asana/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "asana:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	a, err := app.New(app.Config{
		Store:        st,
		PluginDir:    cfg.PluginDir,
		ImageDir:     webDir,
		Camera:       capture.Config{DeviceID: cfg.CameraID},
		MotionThresh: cfg.MotionThreshold,
		Challenge:    challengeSettings(cfg),
	})
	if err != nil {
		return err
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Warn("plugin discovery failed", "dir", cfg.PluginDir, "error", err)
	}
	if err := a.Start(); err != nil {
		a.Stop()
		return fmt.Errorf("start: %w", err)
	}
	defer a.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Engine:    a.Engine(),
		Frames:    a.Frames(),
		Plugins:   a.PluginManager(),
		Reloader:  a,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		serveErr <- srv.ListenAndServe(ctx, cfg.Addr)
		stop()
	}()

	if cfg.Headless {
		<-ctx.Done()
	} else {
		runTray(ctx, stop, a, browserURL(cfg.Addr))
	}
	stop()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-time.After(10 * time.Second):
		log.Warn("server did not shut down in time")
	}
	return nil
}

// runTray blocks in the menu bar loop until Quit or ctx ends.
func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, url string) {
	t := tray.New(a.Engine())
	t.OnToggle(a.SetEnabled)
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Warn("open browser failed", "url", url, "error", err)
		}
	})
	t.OnQuit(quit)

	snapshots, unsubscribe := a.Engine().Subscribe()
	defer unsubscribe()
	go t.Follow(ctx, snapshots)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func challengeSettings(cfg config.Config) challenge.Settings {
	settings := challenge.DefaultSettings()
	settings.Comparator = pose.Comparator{
		Triplets:         pose.DefaultTriplets,
		ToleranceDegrees: cfg.ToleranceDeg,
	}
	settings.MatchThreshold = cfg.MatchThreshold
	settings.Debounce = cfg.Debounce
	settings.TickInterval = cfg.TickInterval
	settings.TargetTime = time.Duration(cfg.TargetSeconds) * time.Second
	return settings
}

func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		return errors.New("unsupported platform " + runtime.GOOS)
	}
	return cmd.Start()
}

// findWebDir looks for the web directory next to the working directory and
// then inside dataDir. It returns "" when none exists.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
