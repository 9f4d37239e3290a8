// Tests for the file watcher: construction, event delivery for existing and
// late-created files, close semantics, and the polling fallback.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ///////////////////////////////////////////////
// Constructor Tests
// ///////////////////////////////////////////////

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "existing file",
			setup: func(t *testing.T) string {
				t.Helper()
				path := filepath.Join(t.TempDir(), "ready")
				os.WriteFile(path, nil, 0o644)
				return path
			},
		},
		{
			name: "missing file in existing dir",
			setup: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "not-yet")
			},
		},
		{
			name: "missing parent dir",
			setup: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "nope", "file")
			},
			wantErr: true,
		},
		{
			name: "parent is a file",
			setup: func(t *testing.T) string {
				t.Helper()
				parent := filepath.Join(t.TempDir(), "plain")
				os.WriteFile(parent, nil, 0o644)
				return filepath.Join(parent, "child")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.setup(t))
			if tt.wantErr {
				if !assert.Error(t, err) {
					w.Close()
				}
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, w.Events())
			assert.NoError(t, w.Close())
		})
	}
}

// ///////////////////////////////////////////////
// Event Tests
// ///////////////////////////////////////////////

func TestWriteTriggersEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	path := filepath.Join(t.TempDir(), "ready")
	os.WriteFile(path, []byte("1"), 0o644)

	w, err := newWatcher(path, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	time.Sleep(100 * time.Millisecond)
	w.Drain()
	later := time.Now().Add(time.Second)
	os.WriteFile(path, []byte("2"), 0o644)
	os.Chtimes(path, later, later)

	select {
	case <-w.Events():
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timed out waiting for write event")
	}
}

func TestCreateTriggersEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	path := filepath.Join(t.TempDir(), "appears")
	w, err := newWatcher(path, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(path, []byte("here"), 0o644)

	select {
	case <-w.Events():
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timed out waiting for create event")
	}
}

func TestSiblingIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	w, err := newWatcher(filepath.Join(dir, "target"), 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0o644)

	select {
	case <-w.Events():
		assert.Fail(t, "received event for a sibling file")
	case <-time.After(300 * time.Millisecond):
	}
}

// ///////////////////////////////////////////////
// Close Tests
// ///////////////////////////////////////////////

func TestCloseIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second Close")
}

// ///////////////////////////////////////////////
// Poll Tests
// ///////////////////////////////////////////////

func pollingWatcher(path string) *Watcher {
	w := &Watcher{
		path:         path,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: 50 * time.Millisecond,
	}
	w.startPolling()
	return w
}

func TestPollDetectsCreation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	path := filepath.Join(t.TempDir(), "late")
	w := pollingWatcher(path)
	defer w.Close()

	require.True(t, w.Polling(), "expected polling mode")

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(path, nil, 0o644)

	select {
	case <-w.Events():
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timed out waiting for poll event")
	}
}

func TestPollStopsOnClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	path := filepath.Join(t.TempDir(), "state")
	os.WriteFile(path, nil, 0o644)

	w := pollingWatcher(path)
	time.Sleep(100 * time.Millisecond)
	w.Close()
	time.Sleep(100 * time.Millisecond)

	now := time.Now().Add(time.Second)
	os.Chtimes(path, now, now)

	select {
	case <-w.Events():
		assert.Fail(t, "received event after Close; poll should have stopped")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNotifyCoalesces(t *testing.T) {
	w := &Watcher{events: make(chan struct{}, 1)}
	w.notify()
	w.notify()
	w.notify()

	<-w.Events()
	select {
	case <-w.Events():
		assert.Fail(t, "expected coalesced events")
	default:
	}
}

func TestPollDetectsRecreateWithOlderMtime(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	path := filepath.Join(t.TempDir(), "stamp")
	os.WriteFile(path, []byte("new"), 0o644)
	w := pollingWatcher(path)
	defer w.Close()
	time.Sleep(100 * time.Millisecond)

	os.Remove(path)
	time.Sleep(150 * time.Millisecond)
	os.WriteFile(path, []byte("restored"), 0o644)
	old := time.Now().Add(-time.Hour)
	os.Chtimes(path, old, old)

	select {
	case <-w.Events():
	case <-time.After(3 * time.Second):
		require.FailNow(t, "recreated file with an older mtime was not reported")
	}
}

// ///////////////////////////////////////////////
// Wait Tests
// ///////////////////////////////////////////////

func TestWait(t *testing.T) {
	t.Run("ignores changes before the call", func(t *testing.T) {
		w := &Watcher{events: make(chan struct{}, 1), done: make(chan struct{})}
		w.notify()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, w.Wait(ctx), context.DeadlineExceeded)
	})

	t.Run("returns on change", func(t *testing.T) {
		w := &Watcher{events: make(chan struct{}, 1), done: make(chan struct{})}
		go func() {
			time.Sleep(20 * time.Millisecond)
			w.notify()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		assert.NoError(t, w.Wait(ctx))
	})

	t.Run("returns on close", func(t *testing.T) {
		w, err := New(filepath.Join(t.TempDir(), "x"))
		require.NoError(t, err)
		go func() {
			time.Sleep(20 * time.Millisecond)
			w.Close()
		}()
		assert.ErrorIs(t, w.Wait(context.Background()), ErrClosed)
	})
}
