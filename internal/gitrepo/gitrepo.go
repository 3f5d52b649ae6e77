// Package gitrepo obtains local working copies of remote repositories.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// ErrInvalidURL indicates a repository URL that cannot be parsed.
var ErrInvalidURL = errors.New("invalid repository URL")

// Cloner clones repositories into temporary directories.
type Cloner interface {
	// Clone performs a shallow clone of url into a fresh temporary
	// directory and returns its path along with a cleanup function.
	// The cleanup function must be called on every exit path.
	Clone(ctx context.Context, url string) (dir string, cleanup func(), err error)
}

// GitCloner clones over HTTPS/SSH using go-git.
type GitCloner struct {
	logger *zap.Logger
}

// NewCloner creates a GitCloner.
func NewCloner(logger *zap.Logger) *GitCloner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitCloner{logger: logger}
}

// Clone shallow-clones the default branch of url into a temp directory.
// The returned cleanup removes the directory; it is safe to call more
// than once.
func (c *GitCloner) Clone(ctx context.Context, url string) (string, func(), error) {
	if url == "" {
		return "", nil, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	dir, err := os.MkdirTemp("", "repochat-clone-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warn("failed to remove clone directory",
				zap.String("dir", dir),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("cloning repository",
		zap.String("url", url),
		zap.String("dir", dir),
	)

	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("cloning %s: %w", url, err)
	}

	return dir, cleanup, nil
}

// Branch returns the checked-out branch name of a local working copy, or
// "detached" when HEAD does not point at a branch.
func Branch(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("opening repository %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}

	if !head.Name().IsBranch() {
		return "detached", nil
	}
	return head.Name().Short(), nil
}

// urlPatterns matches the owner/repo tail of common git URL shapes.
// Supports: git@github.com:user/repo.git, https://github.com/user/repo.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[:/]([^/:]+)/([^/]+?)(?:\.git)?/?$`),
}

// RepoNameFromURL derives a default namespace from a repository URL:
// the repository name, lowercased and sanitized to the collection name
// character set. Returns ErrInvalidURL when no name can be extracted.
func RepoNameFromURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	for _, re := range urlPatterns {
		if matches := re.FindStringSubmatch(url); len(matches) > 2 {
			if name := sanitizeName(matches[2]); name != "" {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidURL, url)
}

// sanitizeName keeps only characters valid in collection names.
func sanitizeName(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '.' || r == ' ':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-_")
}
