package errors

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildError_Error_IncludesCategoryAndSeverity(t *testing.T) {
	err := New(CategoryRender, SeverityError, "template execution failed")
	require.Equal(t, "render (error): template execution failed", err.Error())
}

func TestBuildError_Wrap_UnwrapsToCause(t *testing.T) {
	cause := fs.ErrNotExist
	err := Wrap(cause, CategoryTemplate, SeverityError, "loading template")

	require.True(t, errors.Is(err, fs.ErrNotExist))
	require.Contains(t, err.Error(), "loading template")
}

func TestBuildError_WithContext_AccumulatesFields(t *testing.T) {
	err := New(CategoryFrontmatter, SeverityError, "unterminated block").
		WithContext("path", "blog/post.md").
		WithContext("line", 1)

	require.Equal(t, "blog/post.md", err.Context["path"])
	require.Equal(t, 1, err.Context["line"])
}

func TestIsFatal_OnlyForFatalSeverity(t *testing.T) {
	require.True(t, IsFatal(Fatal("output root unwritable")))
	require.False(t, IsFatal(New(CategoryRender, SeverityError, "boom")))
	require.False(t, IsFatal(errors.New("plain")))
}

func TestGetCategory_DefaultsToInternal(t *testing.T) {
	require.Equal(t, CategoryOutput, GetCategory(New(CategoryOutput, SeverityError, "x")))
	require.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}
