package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/filebox/internal/models"
)

type recordingBroadcaster struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingBroadcaster) BroadcastJSON(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if change, ok := v.(models.TreeChange); ok {
		r.paths = append(r.paths, change.Path)
	}
}

func (r *recordingBroadcaster) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recordingBroadcaster) Saw(path string) bool {
	for _, p := range r.Paths() {
		if p == path {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, root string) *recordingBroadcaster {
	t.Helper()
	out := &recordingBroadcaster{}
	w := NewWatcherService(root, 20*time.Millisecond, out)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Stop() })
	return out
}

func TestWatcherService_StartStop(t *testing.T) {
	w := NewWatcherService(t.TempDir(), time.Millisecond, &recordingBroadcaster{})
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "second Stop is a no-op")
}

func TestWatcherService_StartMissingRoot(t *testing.T) {
	w := NewWatcherService(filepath.Join(t.TempDir(), "missing"), time.Millisecond, &recordingBroadcaster{})
	assert.Error(t, w.Start())
}

func TestWatcherService_FileCreate(t *testing.T) {
	root := t.TempDir()
	out := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))

	assert.Eventually(t, func() bool { return out.Saw("") }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherService_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	out := startWatcher(t, root)

	sub := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.Eventually(t, func() bool { return out.Saw("") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.txt"), []byte("b"), 0644))
	assert.Eventually(t, func() bool { return out.Saw("docs") }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherService_DebounceCoalesces(t *testing.T) {
	root := t.TempDir()
	out := &recordingBroadcaster{}
	w := NewWatcherService(root, 50*time.Millisecond, out)

	for i := 0; i < 5; i++ {
		w.MarkChanged(filepath.Join(root, "docs"))
	}
	w.MarkChanged(root)

	require.Eventually(t, func() bool { return len(out.Paths()) == 2 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"", "docs"}, out.Paths())
}
