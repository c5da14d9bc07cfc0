package slug

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMake_LowercasesAndHyphenates(t *testing.T) {
	require.Equal(t, "hello-world", Make("Hello World"))
	require.Equal(t, "a-b-c", Make("a  b__c"))
	require.Equal(t, "launch-notes", Make("launch-notes"))
}

func TestMake_StripsDiacritics(t *testing.T) {
	require.Equal(t, "cafe-du-monde", Make("Café du Monde"))
	require.Equal(t, "uber", Make("über"))
}

func TestMake_TrimsEdgeHyphens(t *testing.T) {
	require.Equal(t, "post", Make("--post--"))
	require.Equal(t, "", Make("!!!"))
}

func TestFromFilename_DatePrefix(t *testing.T) {
	info := FromFilename("2024-01-15_launch-notes.md")
	require.True(t, info.HasDate)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), info.Date)
	require.Equal(t, "launch-notes", info.Slug)
}

func TestFromFilename_NoDate(t *testing.T) {
	info := FromFilename("about.md")
	require.False(t, info.HasDate)
	require.Equal(t, "about", info.Slug)
}

func TestFromFilename_InvalidDateTreatedAsSlug(t *testing.T) {
	info := FromFilename("2024-13-99_nope.md")
	require.False(t, info.HasDate)
	require.Equal(t, "2024-13-99-nope", info.Slug)
}
