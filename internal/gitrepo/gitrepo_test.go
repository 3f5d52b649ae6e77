package gitrepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoNameFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"https with .git", "https://github.com/user/my-repo.git", "my-repo"},
		{"https without .git", "https://github.com/user/my-repo", "my-repo"},
		{"trailing slash", "https://github.com/user/my-repo/", "my-repo"},
		{"ssh format", "git@github.com:user/My.Repo.git", "my-repo"},
		{"uppercase sanitized", "https://github.com/User/MyRepo", "myrepo"},
		{"gitlab host", "https://gitlab.com/group/tool.git", "tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := RepoNameFromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestRepoNameFromURLInvalid(t *testing.T) {
	for _, url := range []string{"", "   ", "not-a-url"} {
		_, err := RepoNameFromURL(url)
		assert.ErrorIs(t, err, ErrInvalidURL, url)
	}
}

func TestCloneEmptyURL(t *testing.T) {
	cloner := NewCloner(nil)
	_, _, err := cloner.Clone(t.Context(), "")
	assert.ErrorIs(t, err, ErrInvalidURL)
}
