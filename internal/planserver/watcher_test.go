package planserver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/craftplan/internal/planning/planner"
	"github.com/cory-johannsen/craftplan/internal/planserver"
)

func writeCatalog(t *testing.T, dir, file, id string) {
	t.Helper()
	src := strings.Replace(benchCatalog, "ID: bench", "ID: "+id, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(src), 0644))
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "a.yaml", "alpha")
	reg := planner.NewRegistry()
	w := planserver.NewWatcher(dir, reg, zaptest.NewLogger(t), 0)

	require.NoError(t, w.Reload())
	assert.Equal(t, []string{"alpha"}, reg.IDs())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("Items: ["), 0644))
	assert.Error(t, w.Reload())
	assert.Equal(t, []string{"alpha"}, reg.IDs(), "failed reload keeps previous catalogs")
}

func TestWatcher_RunPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "a.yaml", "alpha")
	reg := planner.NewRegistry()
	w := planserver.NewWatcher(dir, reg, zaptest.NewLogger(t), 20*time.Millisecond)
	require.NoError(t, w.Reload())
	<-w.Reloaded()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is registered asynchronously; keep touching the file until a
	// reload is observed.
	require.Eventually(t, func() bool {
		writeCatalog(t, dir, "b.yaml", "beta")
		select {
		case <-w.Reloaded():
			return len(reg.IDs()) == 2
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alpha", "beta"}, reg.IDs())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RunMissingDir(t *testing.T) {
	w := planserver.NewWatcher(filepath.Join(t.TempDir(), "missing"), planner.NewRegistry(), zaptest.NewLogger(t), 0)
	assert.Error(t, w.Run(context.Background()))
}
