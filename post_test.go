package downblog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/downblog"
)

func TestPostFields_Validate(t *testing.T) {
	cases := []struct {
		name          string
		fields        downblog.PostFields
		expectedField string
	}{
		{
			name:   "Valid post",
			fields: downblog.PostFields{Title: "A", Text: "hello world", Author: "bob"},
		},
		{
			name:          "Missing everything reports title first",
			fields:        downblog.PostFields{},
			expectedField: "title",
		},
		{
			name:          "Missing text and author reports text",
			fields:        downblog.PostFields{Title: "A2"},
			expectedField: "text",
		},
		{
			name:          "Missing author",
			fields:        downblog.PostFields{Title: "A", Text: "hello"},
			expectedField: "author",
		},
		{
			name:          "Whitespace-only title",
			fields:        downblog.PostFields{Title: "  \n", Text: "hello", Author: "bob"},
			expectedField: "title",
		},
		{
			name:          "Whitespace-only author",
			fields:        downblog.PostFields{Title: "A", Text: "hello", Author: "\t"},
			expectedField: "author",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.fields
			err := tc.fields.Validate()
			assert.Equal(t, before, tc.fields)

			if tc.expectedField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, downblog.IsValidationError(err))

			var valErr *downblog.ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Equal(t, tc.expectedField, valErr.Field)
			assert.Contains(t, valErr.Error(), tc.expectedField)
		})
	}
}

func TestPost_WithoutText(t *testing.T) {
	now := time.Now().UTC()
	post := &downblog.Post{ID: "1", Title: "A", Text: "body", Author: "bob", CreatedAt: now, LastModified: now}

	stripped := post.WithoutText()
	assert.False(t, stripped.HasText())
	assert.Equal(t, "A", stripped.Title)
	assert.True(t, post.HasText(), "original must be untouched")
}

func TestPost_Apply(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	post := &downblog.Post{ID: "1", Title: "A", Text: "body", Author: "bob", Slug: "a", CreatedAt: created, LastModified: created}

	modified := created.Add(time.Hour)
	updated := post.Apply(downblog.PostUpdate{Title: "B", Text: "new", Author: "carol", Slug: "b", LastModified: modified})

	assert.Equal(t, "1", updated.ID)
	assert.Equal(t, "B", updated.Title)
	assert.Equal(t, "new", updated.Text)
	assert.Equal(t, "carol", updated.Author)
	assert.Equal(t, "b", updated.Slug)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, modified, updated.LastModified)
	assert.Equal(t, "A", post.Title)
}

func TestPost_SerializeDeserialize(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	post := &downblog.Post{ID: "1", Title: "A", Text: "body", Author: "bob", Slug: "a", CreatedAt: created, LastModified: created}

	data, err := post.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lastModified"`)

	decoded, err := downblog.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, post, decoded)

	listed, err := post.WithoutText().Serialize()
	require.NoError(t, err)
	assert.NotContains(t, string(listed), `"text"`)
}

func TestErrors(t *testing.T) {
	notFound := &downblog.NotFoundError{ID: "42"}
	assert.True(t, downblog.IsNotFound(notFound))
	assert.ErrorIs(t, notFound, downblog.ErrPostNotFound)
	assert.Contains(t, notFound.Error(), "42")

	cause := errors.New("disk full")
	storeErr := downblog.NewStorageError("insert", cause)
	assert.True(t, downblog.IsStorageError(storeErr))
	assert.ErrorIs(t, storeErr, cause)
	assert.Nil(t, downblog.NewStorageError("insert", nil))

	assert.False(t, downblog.IsValidationError(storeErr))
	assert.False(t, downblog.IsNotFound(storeErr))
}
