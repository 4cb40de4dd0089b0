package vulkan

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestShaderWatcherInvalidatesOnSpvWrite(t *testing.T) {
	dir := t.TempDir()
	spvPath := filepath.Join(dir, "triangle.vert.spv")
	if err := os.WriteFile(spvPath, []byte{0, 0, 0, 0}, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	cache := NewShaderModuleCache()
	cache.modules[spvPath] = &shaderModuleEntry{path: spvPath, stage: &VulkanShaderStage{}}

	watcher, err := NewShaderWatcher(nil, cache, dir)
	if err != nil {
		t.Fatalf("NewShaderWatcher: %v", err)
	}
	defer watcher.Close()

	if err := os.WriteFile(spvPath, []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		cache.mu.Lock()
		_, ok := cache.modules[spvPath]
		cache.mu.Unlock()
		if !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected the .spv rewrite to invalidate the cached module within the deadline")
}

func TestShaderWatcherIgnoresNonSpvFiles(t *testing.T) {
	dir := t.TempDir()
	cache := NewShaderModuleCache()
	unrelated := filepath.Join(dir, "README.md")
	cache.modules[unrelated] = &shaderModuleEntry{path: unrelated, stage: &VulkanShaderStage{}}

	watcher, err := NewShaderWatcher(nil, cache, dir)
	if err != nil {
		t.Fatalf("NewShaderWatcher: %v", err)
	}
	defer watcher.Close()

	if err := os.WriteFile(unrelated, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	cache.mu.Lock()
	_, ok := cache.modules[unrelated]
	cache.mu.Unlock()
	if !ok {
		t.Fatalf("a non-.spv write must not invalidate the cache")
	}
}
