package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupMirror creates a mirror tree with one nested catalog directory.
func setupMirror(t *testing.T) (root, nested string) {
	t.Helper()

	root = t.TempDir()
	nested = filepath.Join(root, "ts", "txt", "2", "gen")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create mirror dir: %v", err)
	}
	return root, nested
}

func startWatcher(t *testing.T, root string) *FileWatcher {
	t.Helper()

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	t.Cleanup(func() { _ = fw.Stop() })

	if err := fw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	return fw
}

// nextEvent waits for an event whose path has the given base name.
func nextEvent(t *testing.T, fw *FileWatcher, base string) FileEvent {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case event := <-fw.Events():
			if filepath.Base(event.Path) == base {
				return event
			}
		case <-timeout:
			t.Fatalf("Timeout waiting for event on %s", base)
		}
	}
}

func TestNewFileWatcher(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if fw.IsRunning() {
		t.Error("Newly created watcher should not be running")
	}
}

func TestFileWatcher_StartStop(t *testing.T) {
	root, _ := setupMirror(t)

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	if err := fw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !fw.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if fw.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}
	if _, ok := <-fw.Events(); ok {
		t.Error("Events channel should be closed after Stop()")
	}
}

func TestFileWatcher_StartAlreadyRunning(t *testing.T) {
	root, _ := setupMirror(t)
	fw := startWatcher(t, root)

	if err := fw.Start(root); err == nil {
		t.Error("Second Start() should fail when watcher is already running")
	}
}

func TestFileWatcher_StartMissingDir(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Start() should fail for a missing directory")
	}
	if fw.IsRunning() {
		t.Error("Watcher should not be running after a failed Start()")
	}
}

func TestFileWatcher_Operations(t *testing.T) {
	root, nested := setupMirror(t)
	path := filepath.Join(nested, "languages.json")
	fw := startWatcher(t, root)

	if err := os.WriteFile(path, []byte(`[]`), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	if event := nextEvent(t, fw, "languages.json"); event.Op != OpCreate {
		t.Errorf("Expected OpCreate, got %v", event.Op)
	}

	// Drain the write that follows the create.
	time.Sleep(100 * time.Millisecond)
	for len(fw.Events()) > 0 {
		<-fw.Events()
	}

	if err := os.WriteFile(path, []byte(`[{"slug":"en"}]`), 0644); err != nil {
		t.Fatalf("Failed to update catalog: %v", err)
	}
	if event := nextEvent(t, fw, "languages.json"); event.Op != OpModify {
		t.Errorf("Expected OpModify, got %v", event.Op)
	}

	time.Sleep(100 * time.Millisecond)
	for len(fw.Events()) > 0 {
		<-fw.Events()
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to delete catalog: %v", err)
	}
	if event := nextEvent(t, fw, "languages.json"); event.Op != OpDelete {
		t.Errorf("Expected OpDelete, got %v", event.Op)
	}
}

func TestFileWatcher_NewSubdirectory(t *testing.T) {
	root, _ := setupMirror(t)
	fw := startWatcher(t, root)

	dir := filepath.Join(root, "ts", "txt", "2", "obs")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	// Let the watcher pick up the new directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "resources.json"), []byte(`[]`), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	event := nextEvent(t, fw, "resources.json")
	if filepath.Dir(event.Path) != dir {
		t.Errorf("Expected event in %s, got %s", dir, event.Path)
	}
}

func TestFileWatcher_NonJSONFilesIgnored(t *testing.T) {
	root, nested := setupMirror(t)
	fw := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(nested, "README.md"), []byte("mirror"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	select {
	case event := <-fw.Events():
		t.Errorf("Unexpected event: %+v", event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEventOp_String(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{EventOp(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
