package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writePlugin creates dir/name with a plugin.json manifest and a shell
// executable holding script. It returns the plugin directory.
func writePlugin(t *testing.T, dir, name string, actions []string, script string) string {
	t.Helper()

	pluginDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifest := Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: name + ".sh",
		Actions:    actions,
	}
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), manifestBytes, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	if script != "" {
		if err := os.WriteFile(filepath.Join(pluginDir, name+".sh"), []byte(script), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}

	return pluginDir
}

// scriptPlugin returns a Plugin backed by a temporary shell script.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	skipOnWindows(t)

	dir := writePlugin(t, t.TempDir(), name, []string{"press"}, script)
	return &Plugin{
		Manifest:   Manifest{Name: name, Executable: name + ".sh", Actions: []string{"press"}},
		Path:       dir,
		Executable: filepath.Join(dir, name+".sh"),
	}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}
