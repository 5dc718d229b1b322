package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/fileio"
	"github.com/Adithya-Monish-Kumar-K/related-posts/internal/related"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postsJSON = `[
  {"_id": "p1", "title": "Go generics", "tags": ["go", "generics", "go"]},
  {"_id": "p2", "title": "Rust traits", "tags": ["rust"]},
  {"_id": "p3", "title": "Untagged", "tags": []}
]`

func writePosts(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	w, err := fileio.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte(postsJSON))
	require.NoError(t, err)
	require.NoError(t, w.Commit())
	return path
}

func TestFileLoad(t *testing.T) {
	for _, name := range []string{"posts.json", "posts.json.gz", "posts.json.zst"} {
		t.Run(name, func(t *testing.T) {
			items, err := NewFile(writePosts(t, name)).Load(context.Background())
			require.NoError(t, err)
			require.Len(t, items, 3)

			assert.Equal(t, related.Item{ID: "p1", Title: "Go generics", Tags: []string{"go", "generics", "go"}}, items[0])
			assert.Equal(t, "p2", items[1].ID)
			assert.Empty(t, items[2].Tags)
		})
	}
}

func TestFileLoadErrors(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"_id": 1}`), 0o644))
	_, err = NewFile(path).Load(context.Background())
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]related.Item{{ID: "a"}, {ID: "b"}}))

	err := Validate([]related.Item{{ID: "a"}, {ID: " "}, {ID: "a"}, {ID: "b"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "#1", verr.Problems["empty_id"])
	assert.Equal(t, `"a" (#0, #2)`, verr.Problems["duplicate_id"])
	assert.Equal(t, `duplicate_id: "a" (#0, #2); empty_id: #1`, err.Error())
}

func TestValidateSummarizes(t *testing.T) {
	items := make([]related.Item, 8)
	err := Validate(items)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "#0, #1, #2, #3, #4 and 3 more", verr.Problems["empty_id"])
}
