package incremental

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadLatest_EmptyDatabase_ReturnsNil(t *testing.T) {
	s := openTestStore(t)

	st, err := s.LoadLatest(context.Background())
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestSaveBuild_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := &BuildState{
		ID:        "build-1",
		CreatedAt: time.Unix(1700000000, 0),
		Hashes: map[string]string{
			"blog/post.md":                   "aaa",
			TemplateHashPrefix + "base.html": "bbb",
		},
		Edges: map[string][]string{
			"blog/index.md": {"blog/post.md"},
		},
		Consulted: map[string][]string{
			"blog/post.md": {"blog/_defaults.yaml"},
		},
	}
	require.NoError(t, s.SaveBuild(ctx, in))

	out, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, in.ID, out.ID)
	require.Equal(t, in.Hashes, out.Hashes)
	require.Equal(t, in.Edges, out.Edges)
	require.Equal(t, in.Consulted, out.Consulted)
}

func TestSaveBuild_ReplacesPreviousBuild(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBuild(ctx, &BuildState{
		ID:        "build-1",
		CreatedAt: time.Unix(1700000000, 0),
		Hashes:    map[string]string{"a.md": "old"},
	}))
	require.NoError(t, s.SaveBuild(ctx, &BuildState{
		ID:        "build-2",
		CreatedAt: time.Unix(1700000100, 0),
		Hashes:    map[string]string{"a.md": "new"},
	}))

	out, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, "build-2", out.ID)
	require.Equal(t, "new", out.Hashes["a.md"])
}
