package param

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, path string) (string, error) {
	v, ok := m[path]
	if !ok {
		return "", errors.New("parameter not found")
	}
	return v, nil
}

func TestResolve(t *testing.T) {
	f := mapFetcher{"/kandinsky/token": "secret"}

	v, err := Resolve(context.Background(), f, "/kandinsky/token")
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	v, err = Resolve(context.Background(), f, "")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = Resolve(context.Background(), f, "/missing")
	assert.Error(t, err)
}
