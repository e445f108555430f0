package ghfetch

import "context"

// FileFetching is the local filesystem fetch capability from spec.md §4.4.
type FileFetching interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// RepoObjectFetching is the repository object fetch capability from
// spec.md §4.4, implemented by both RESTFetcher and GraphQLFetcher.
type RepoObjectFetching interface {
	Fetch(ctx context.Context, owner, repo, ref, path string) ([]byte, error)
}

var (
	_ FileFetching       = (*FileFetcher)(nil)
	_ RepoObjectFetching = (*RESTFetcher)(nil)
	_ RepoObjectFetching = (*GraphQLFetcher)(nil)
)
