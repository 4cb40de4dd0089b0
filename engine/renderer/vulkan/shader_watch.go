package vulkan

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/kestrel-render/vkcore/engine/core"
)

// ShaderWatcher invalidates cached shader modules when their .spv file
// changes on disk, per §10 "shader hot-reload". Modeled on the teacher's
// engine/assets.AssetManager file watch loop, trimmed to the single
// create/write/invalidate concern this core needs.
type ShaderWatcher struct {
	context *VulkanContext
	cache   *ShaderModuleCache
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewShaderWatcher starts watching directory (non-recursively; shader
// directories are flat in this core) for .spv writes, invalidating the
// matching entry in cache as they land.
func NewShaderWatcher(context *VulkanContext, cache *ShaderModuleCache, directory string) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(directory); err != nil {
		watcher.Close()
		return nil, err
	}

	sw := &ShaderWatcher{
		context: context,
		cache:   cache,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go sw.run()
	return sw, nil
}

func (sw *ShaderWatcher) run() {
	for {
		select {
		case e, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if strings.ToLower(filepath.Ext(e.Name)) != ".spv" {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				sw.cache.Invalidate(sw.context, e.Name)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err.Error())
		case <-sw.done:
			return
		}
	}
}

// Close stops the watch loop and releases the underlying fsnotify handle.
func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
