package incremental

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiff_DetectsAddedModifiedDeleted(t *testing.T) {
	prev := map[string]string{"a.md": "h1", "b.md": "h2", "c.md": "h3"}
	cur := map[string]string{"a.md": "h1", "b.md": "changed", "d.md": "h4"}

	changed := Diff(prev, cur)
	require.Equal(t, map[string]struct{}{
		"b.md": {}, "c.md": {}, "d.md": {},
	}, changed)
}

func TestSelectDirty_NoPriorState_FullRebuild(t *testing.T) {
	plan := SelectDirty(nil, map[string]string{"a.md": "h"})
	require.True(t, plan.Full)
	require.True(t, plan.ShouldRender("anything.md"))
}

func TestSelectDirty_TemplateChange_FullRebuild(t *testing.T) {
	prev := &BuildState{
		Hashes: map[string]string{"a.md": "h", TemplateHashPrefix + "default.html": "t1"},
	}
	cur := map[string]string{"a.md": "h", TemplateHashPrefix + "default.html": "t2"}

	plan := SelectDirty(prev, cur)
	require.True(t, plan.Full)
	require.Contains(t, plan.Reason, "default.html")
}

func TestSelectDirty_ChangedSourcePlusDependents(t *testing.T) {
	prev := &BuildState{
		Hashes: map[string]string{
			"blog/index.md": "hi",
			"blog/post1.md": "h1",
			"blog/post2.md": "h2",
			"about.md":      "ha",
		},
		Edges: map[string][]string{
			"blog/index.md": {"blog/post1.md", "blog/post2.md"},
		},
	}
	cur := map[string]string{
		"blog/index.md": "hi",
		"blog/post1.md": "h1-changed",
		"blog/post2.md": "h2",
		"about.md":      "ha",
	}

	plan := SelectDirty(prev, cur)
	require.False(t, plan.Full)
	require.True(t, plan.ShouldRender("blog/post1.md"))
	require.True(t, plan.ShouldRender("blog/index.md"))
	require.False(t, plan.ShouldRender("blog/post2.md"))
	require.False(t, plan.ShouldRender("about.md"))
}

func TestSelectDirty_ConsultedDefaultsChange(t *testing.T) {
	prev := &BuildState{
		Hashes: map[string]string{
			"blog/post.md":       "h",
			"blog/_defaults.yaml": "d1",
			"about.md":           "ha",
		},
		Consulted: map[string][]string{
			"blog/post.md": {"blog/_defaults.yaml"},
		},
	}
	cur := map[string]string{
		"blog/post.md":       "h",
		"blog/_defaults.yaml": "d2",
		"about.md":           "ha",
	}

	plan := SelectDirty(prev, cur)
	require.False(t, plan.Full)
	require.True(t, plan.ShouldRender("blog/post.md"))
	require.False(t, plan.ShouldRender("about.md"))
}

func TestSelectDirty_NoChanges_EmptyDirtySet(t *testing.T) {
	prev := &BuildState{Hashes: map[string]string{"a.md": "h"}}
	plan := SelectDirty(prev, map[string]string{"a.md": "h"})
	require.False(t, plan.Full)
	require.Empty(t, plan.Dirty)
	require.False(t, plan.ShouldRender("a.md"))
}

func TestHashBytes_Deterministic(t *testing.T) {
	require.Equal(t, HashBytes([]byte("x")), HashBytes([]byte("x")))
	require.NotEqual(t, HashBytes([]byte("x")), HashBytes([]byte("y")))
}
