package ghfetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shurcooL/graphql"
	"golang.org/x/oauth2"

	"github.com/sisaku-security/actionvet/internal/lintererr"
)

// GraphQLFetcher fetches repository objects via the GitHub GraphQL API.
// Unlike the REST fetcher, it requires a bearer token: GitHub's GraphQL
// endpoint does not support anonymous access.
type GraphQLFetcher struct {
	client *graphql.Client
}

// NewGraphQLFetcher builds a GraphQL fetcher. token must be non-empty; a
// caller lacking a token should fall back to RESTFetcher instead.
func NewGraphQLFetcher(token string) *GraphQLFetcher {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &GraphQLFetcher{client: graphql.NewClient("https://api.github.com/graphql", httpClient)}
}

type blobQuery struct {
	Repository struct {
		Object struct {
			Blob struct {
				Text graphql.String
			} `graphql:"... on Blob"`
		} `graphql:"object(expression: $expression)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// Fetch retrieves owner/repo's file at path, at ref, via
// repository(owner,name){ object(expression:"ref:path"){ ... on Blob{text} } }.
func (f *GraphQLFetcher) Fetch(ctx context.Context, owner, repo, ref, path string) ([]byte, error) {
	var q blobQuery
	vars := map[string]interface{}{
		"owner":      graphql.String(owner),
		"name":       graphql.String(repo),
		"expression": graphql.String(fmt.Sprintf("%s:%s", ref, path)),
	}
	if err := f.client.Query(ctx, &q, vars); err != nil {
		return nil, classifyGraphQLError(err)
	}
	if q.Repository.Object.Blob.Text == "" {
		return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNotFound}
	}
	return []byte(q.Repository.Object.Blob.Text), nil
}

func classifyGraphQLError(err error) error {
	type statusCoder interface{ StatusCode() int }
	if sc, ok := err.(statusCoder); ok {
		switch sc.StatusCode() {
		case http.StatusUnauthorized:
			return &lintererr.TransportCondition{Kind: lintererr.TransportUnauthorized, Cause: err}
		case http.StatusForbidden, http.StatusTooManyRequests:
			return &lintererr.TransportCondition{Kind: lintererr.TransportRateLimited, Cause: err}
		case http.StatusNotFound:
			return &lintererr.TransportCondition{Kind: lintererr.TransportNotFound, Cause: err}
		}
	}
	return &lintererr.TransportCondition{Kind: lintererr.TransportNetworkError, Cause: err}
}
