package clips

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/yeti47/framegrab/server/core/ccc/logging"
)

// setupRetentionTest creates count clips whose modification times increase with their index
func setupRetentionTest(t *testing.T, count int) (string, []string) {
	t.Helper()
	dir := t.TempDir()

	base := time.Now().Add(-time.Hour)
	paths := make([]string, count)
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("clip-%03d.mp4", i))
		if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
			t.Fatalf("Failed to create clip: %v", err)
		}
		modTime := base.Add(time.Duration(i) * time.Second)
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("Failed to set clip time: %v", err)
		}
		paths[i] = path
	}
	return dir, paths
}

func listNames(t *testing.T, dir, ext string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ext {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

func TestEnforceCap_UnderCapDeletesNothing(t *testing.T) {
	dir, _ := setupRetentionTest(t, 3)
	manager := NewRetentionManager(logging.NopLogger, nil)

	removed, err := manager.EnforceCap(dir, "mp4", 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("Expected nothing removed, got %v", removed)
	}
	if got := len(listNames(t, dir, ".mp4")); got != 3 {
		t.Errorf("Expected 3 clips, got %d", got)
	}
}

func TestEnforceCap_DeletesOldestFirst(t *testing.T) {
	dir, paths := setupRetentionTest(t, 5)

	var observed []string
	manager := NewRetentionManager(logging.NopLogger, func(path string) {
		observed = append(observed, path)
	})

	removed, err := manager.EnforceCap(dir, "mp4", 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(removed) != 3 {
		t.Fatalf("Expected 3 removed, got %d", len(removed))
	}
	for i, path := range removed {
		if path != paths[i] {
			t.Errorf("Expected %s removed at position %d, got %s", paths[i], i, path)
		}
	}
	if len(observed) != 3 {
		t.Errorf("Expected observer to see 3 removals, got %d", len(observed))
	}

	remaining := listNames(t, dir, ".mp4")
	want := []string{"clip-003.mp4", "clip-004.mp4"}
	if fmt.Sprint(remaining) != fmt.Sprint(want) {
		t.Errorf("Expected remaining %v, got %v", want, remaining)
	}
}

func TestEnforceCap_IgnoresOtherExtensionsAndDirectories(t *testing.T) {
	dir, _ := setupRetentionTest(t, 2)

	old := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{"frame.png", "notes.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
		os.Chtimes(path, old, old)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.mp4"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	manager := NewRetentionManager(nil, nil)
	if _, err := manager.EnforceCap(dir, ".mp4", 1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, name := range []string{"frame.png", "notes.txt", "nested.mp4", "clip-001.mp4"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to survive: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "clip-000.mp4")); !os.IsNotExist(err) {
		t.Error("Expected the oldest clip to be deleted")
	}
}

func TestEnforceCap_MissingDirectory(t *testing.T) {
	manager := NewRetentionManager(nil, nil)
	if _, err := manager.EnforceCap(filepath.Join(t.TempDir(), "missing"), "mp4", 10); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestEnforceCap_InvalidCap(t *testing.T) {
	manager := NewRetentionManager(nil, nil)
	if _, err := manager.EnforceCap(t.TempDir(), "mp4", -1); err == nil {
		t.Error("Expected an error for a negative cap")
	}
}

func TestEnforceCap_ConcurrentPassesNeverOverDelete(t *testing.T) {
	dir, _ := setupRetentionTest(t, 20)
	manager := NewRetentionManager(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.EnforceCap(dir, "mp4", 10); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(listNames(t, dir, ".mp4")); got != 10 {
		t.Errorf("Expected exactly 10 clips after concurrent passes, got %d", got)
	}
}

func TestNewClipName(t *testing.T) {
	first := NewClipName("mp4")
	second := NewClipName(".mp4")

	if filepath.Ext(first) != ".mp4" || filepath.Ext(second) != ".mp4" {
		t.Errorf("Expected .mp4 names, got %q and %q", first, second)
	}
	if first == second {
		t.Error("Expected unique clip names")
	}
	if len(first) != 36+len(".mp4") {
		t.Errorf("Expected uuid based name, got %q", first)
	}
}

func TestResolveClipPath(t *testing.T) {
	if path, err := ResolveClipPath("clips", "a.mp4"); err != nil || path != filepath.Join("clips", "a.mp4") {
		t.Errorf("Expected clips/a.mp4, got %q (%v)", path, err)
	}
	for _, name := range []string{"", "..", "../etc/passwd", "sub/a.mp4", "."} {
		if _, err := ResolveClipPath("clips", name); err == nil {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
}

func TestEnforceCap_Table(t *testing.T) {
	tests := []struct {
		name        string
		files       int
		maxFiles    int
		wantRemoved []string
	}{
		{name: "at cap", files: 100, maxFiles: 100},
		{name: "one over cap", files: 101, maxFiles: 100, wantRemoved: []string{"f001.mp4"}},
		{
			name:        "five over cap",
			files:       105,
			maxFiles:    100,
			wantRemoved: []string{"f001.mp4", "f002.mp4", "f003.mp4", "f004.mp4", "f005.mp4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			base := time.Now().Add(-time.Hour)
			for i := 1; i <= tt.files; i++ {
				path := filepath.Join(dir, fmt.Sprintf("f%03d.mp4", i))
				if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
					t.Fatalf("Failed to create clip: %v", err)
				}
				modTime := base.Add(time.Duration(i) * time.Second)
				if err := os.Chtimes(path, modTime, modTime); err != nil {
					t.Fatalf("Failed to set clip time: %v", err)
				}
			}

			manager := NewRetentionManager(logging.NopLogger, nil)
			removed, err := manager.EnforceCap(dir, "mp4", tt.maxFiles)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			var removedNames []string
			for _, path := range removed {
				removedNames = append(removedNames, filepath.Base(path))
			}
			if len(removedNames) != len(tt.wantRemoved) {
				t.Fatalf("Expected %v removed, got %v", tt.wantRemoved, removedNames)
			}
			for i, name := range tt.wantRemoved {
				if removedNames[i] != name {
					t.Errorf("Expected %s removed at position %d, got %s", name, i, removedNames[i])
				}
			}

			remaining := listNames(t, dir, ".mp4")
			if len(remaining) != tt.maxFiles {
				t.Errorf("Expected %d clips left, got %d", tt.maxFiles, len(remaining))
			}
			if tt.files > tt.maxFiles && remaining[0] != fmt.Sprintf("f%03d.mp4", tt.files-tt.maxFiles+1) {
				t.Errorf("Expected oldest survivor f%03d.mp4, got %s", tt.files-tt.maxFiles+1, remaining[0])
			}
		})
	}
}
