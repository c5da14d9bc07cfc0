package watch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/builder"
	"git.home.luguber.info/inful/sitegen/internal/config"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	cfg := config.Default()
	w, err := New(cfg, builder.New(cfg), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })
	return w
}

func TestIgnored_FiltersHiddenAndTempFiles(t *testing.T) {
	w := newTestWatcher(t)

	require.True(t, w.ignored("content/.index.md.swp"))
	require.True(t, w.ignored("content/index.md~"))
	require.False(t, w.ignored("content/index.md"))
	require.False(t, w.ignored("templates/default.html"))
}

func TestTrigger_CoalescesPendingRebuilds(t *testing.T) {
	w := newTestWatcher(t)

	w.trigger()
	w.trigger()
	w.trigger()
	require.Len(t, w.triggerChan, 1)
}
