package param

import "context"

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}

// Resolve fetches the secret stored at path. An empty path means the secret
// is not configured and yields an empty value.
func Resolve(ctx context.Context, f Fetcher, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return f.Fetch(ctx, path)
}
