package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskPatchCols = []string{"title", "detail"}

func TestParsePatchTriState(t *testing.T) {
	p, err := ParsePatch([]byte(`{"title":"new title","detail":null}`), taskPatchCols)
	require.NoError(t, err)

	assert.Equal(t, []string{"detail", "title"}, p.Fields())

	v, err := p.Value("title")
	require.NoError(t, err)
	assert.Equal(t, "new title", v)

	v, err = p.Value("detail")
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.False(t, p.Has("status"))
}

func TestParsePatchRejectsUnknownField(t *testing.T) {
	_, err := ParsePatch([]byte(`{"status":"done"}`), taskPatchCols)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestParsePatchRejectsNonScalar(t *testing.T) {
	p, err := ParsePatch([]byte(`{"title":["a"]}`), taskPatchCols)
	require.NoError(t, err)
	_, err = p.Value("title")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestParsePatchEmpty(t *testing.T) {
	p, err := ParsePatch(nil, taskPatchCols)
	require.NoError(t, err)
	assert.True(t, p.Empty())
}
