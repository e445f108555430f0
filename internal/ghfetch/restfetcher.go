package ghfetch

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/sisaku-security/actionvet/internal/lintererr"
)

// RESTFetcher fetches repository objects via the GitHub REST contents API,
// grounded on the teacher's pkg/remote/fetcher.go.
type RESTFetcher struct {
	client *github.Client
}

// NewRESTFetcher builds a REST fetcher. An empty token yields an
// unauthenticated client (lower rate limit, per spec.md §6).
func NewRESTFetcher(token string) *RESTFetcher {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return &RESTFetcher{client: github.NewClient(httpClient)}
}

// Fetch retrieves owner/repo's file at path, at ref.
func (f *RESTFetcher) Fetch(ctx context.Context, owner, repo, ref, path string) ([]byte, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	content, _, resp, err := f.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, classifyRESTError(resp, err)
	}
	if content == nil {
		return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNotFound}
	}
	decoded, err := content.GetContent()
	if err != nil {
		return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNetworkError, Cause: err}
	}
	return []byte(decoded), nil
}

func classifyRESTError(resp *github.Response, err error) error {
	var httpResp *http.Response
	if resp != nil {
		httpResp = resp.Response
	}
	if httpResp == nil {
		return &lintererr.TransportCondition{Kind: lintererr.TransportNetworkError, Cause: err}
	}

	switch httpResp.StatusCode {
	case http.StatusUnauthorized:
		return &lintererr.TransportCondition{Kind: lintererr.TransportUnauthorized, Cause: err}
	case http.StatusForbidden:
		if httpResp.Header.Get("x-ratelimit-remaining") == "0" {
			return &lintererr.TransportCondition{
				Kind:       lintererr.TransportRateLimited,
				Cause:      err,
				ResetEpoch: parseEpoch(httpResp.Header.Get("x-ratelimit-reset")),
			}
		}
		return &lintererr.TransportCondition{Kind: lintererr.TransportNetworkError, Cause: err}
	case http.StatusTooManyRequests:
		return &lintererr.TransportCondition{
			Kind:       lintererr.TransportRateLimited,
			Cause:      err,
			ResetEpoch: parseEpoch(httpResp.Header.Get("x-ratelimit-reset")),
		}
	case http.StatusNotFound:
		return &lintererr.TransportCondition{Kind: lintererr.TransportNotFound, Cause: err}
	default:
		if httpResp.StatusCode > 299 {
			return &lintererr.TransportCondition{Kind: lintererr.TransportNetworkError, Cause: err}
		}
		return &lintererr.TransportCondition{Kind: lintererr.TransportNetworkError, Cause: err}
	}
}

func parseEpoch(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FetchActionMetadata fetches action.yml, falling back to action.yaml once
// on not-found, per spec.md §4.4. It works over any RepoObjectFetching so
// either REST or GraphQL backs it interchangeably.
func FetchActionMetadata(ctx context.Context, f RepoObjectFetching, owner, repo, ref, subdir string) ([]byte, error) {
	path := joinSubdir(subdir, "action.yml")
	data, err := f.Fetch(ctx, owner, repo, ref, path)
	if err == nil {
		return data, nil
	}
	var tc *lintererr.TransportCondition
	if !errors.As(err, &tc) || tc.Kind != lintererr.TransportNotFound {
		return nil, err
	}
	return f.Fetch(ctx, owner, repo, ref, joinSubdir(subdir, "action.yaml"))
}

func joinSubdir(subdir, file string) string {
	if subdir == "" {
		return file
	}
	return subdir + "/" + file
}
