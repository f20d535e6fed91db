package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeManifest creates dir/<subdir>/plugin.json from m.
func writeManifest(t *testing.T, dir, subdir string, m Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(dir, subdir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, "celebrate", Manifest{
		Name:        "celebrate",
		Version:     "1.0.0",
		Description: "Plays a sound when a pose is held",
		Executable:  "celebrate",
		Actions:     []string{"pose_complete", "level_complete"},
		Events:      []string{"pose_complete"},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "celebrate" {
		t.Errorf("expected plugin name 'celebrate', got %q", plugin.Manifest.Name)
	}
	if len(plugin.Manifest.Actions) != 2 || len(plugin.Manifest.Events) != 1 {
		t.Errorf("unexpected manifest: %+v", plugin.Manifest)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(pluginDir, "celebrate") {
		t.Errorf("unexpected executable path %q", plugin.Executable)
	}
}

func TestManager_ListSortedByName(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"zen", "bell", "lights"} {
		writeManifest(t, tmpDir, name, Manifest{Name: name, Executable: name})
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 3 {
		t.Fatalf("expected 3 plugins, got %d", len(plugins))
	}
	for i, want := range []string{"bell", "lights", "zen"} {
		if plugins[i].Manifest.Name != want {
			t.Errorf("plugins[%d] = %q, want %q", i, plugins[i].Manifest.Name, want)
		}
	}
}

func TestManager_Subscribers(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "bell", Manifest{Name: "bell", Executable: "bell", Events: []string{"pose_complete"}})
	writeManifest(t, tmpDir, "fanfare", Manifest{Name: "fanfare", Executable: "fanfare", Events: []string{"level_complete", "pose_complete"}})
	writeManifest(t, tmpDir, "quiet", Manifest{Name: "quiet", Executable: "quiet"})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	pose := manager.Subscribers("pose_complete")
	if len(pose) != 2 || pose[0].Manifest.Name != "bell" || pose[1].Manifest.Name != "fanfare" {
		t.Errorf("unexpected pose_complete subscribers: %d", len(pose))
	}
	level := manager.Subscribers("level_complete")
	if len(level) != 1 || level[0].Manifest.Name != "fanfare" {
		t.Errorf("unexpected level_complete subscribers: %d", len(level))
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "my-plugin", Manifest{Name: "my-plugin", Version: "2.0.0", Executable: "bin"})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("my-plugin")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", plugin.Manifest.Version)
	}

	if _, err := manager.Get("nonexistent-plugin"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	manager := NewManager("/path/to/plugins")
	if manager.PluginDir() != "/path/to/plugins" {
		t.Errorf("unexpected plugin dir %q", manager.PluginDir())
	}
}

func TestManager_Discover_SkipsBadPlugins(t *testing.T) {
	tmpDir := t.TempDir()

	badDir := filepath.Join(tmpDir, "bad-plugin")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, ManifestFile), []byte("not valid json"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	writeManifest(t, tmpDir, "nameless", Manifest{Executable: "run"})
	writeManifest(t, tmpDir, "no-exec", Manifest{Name: "no-exec"})

	if err := os.MkdirAll(filepath.Join(tmpDir, "no-manifest"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "README"), []byte("loose file"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	for name, dir := range map[string]string{
		"nonexistent": "/path/that/does/not/exist",
		"empty":       t.TempDir(),
	} {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(dir)
			if err := manager.Discover(); err != nil {
				t.Fatalf("Discover() failed: %v", err)
			}
			if plugins := manager.List(); len(plugins) != 0 {
				t.Fatalf("expected 0 plugins, got %d", len(plugins))
			}
		})
	}
}

func TestManager_RediscoverDropsRemoved(t *testing.T) {
	tmpDir := t.TempDir()
	dir := writeManifest(t, tmpDir, "bell", Manifest{Name: "bell", Executable: "bell"})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if len(manager.List()) != 1 {
		t.Fatal("expected the plugin to be discovered")
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("removed plugin still listed")
	}
}
