// Package vcs reads version-control metadata from the content root.
package vcs

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// HeadCommit returns the HEAD commit hash of the repository containing dir,
// searching parent directories. It returns "" without error when dir is not
// inside a git repository.
func HeadCommit(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", nil
		}
		return "", fmt.Errorf("open repository at %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		// Fresh repositories have no commits yet.
		return "", nil
	}
	return head.Hash().String(), nil
}
