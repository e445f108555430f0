// Package ghfetch implements C5: the two fetcher capabilities (local
// filesystem, repository object) plus their error classification, grounded
// on the teacher's pkg/remote/fetcher.go (REST via go-github) and
// esacteksab-gh-actlock/githubclient/client.go (oauth2 bearer transport).
package ghfetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sisaku-security/actionvet/internal/lintererr"
)

// FileFetcher resolves filesystem-relative paths against a project root.
type FileFetcher struct {
	Root string
}

func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{Root: root}
}

// Fetch reads the file at root⊕path. A missing file surfaces as a
// TransportCondition of kind not-found, matching the repository fetcher's
// error shape so the document cache can treat both uniformly.
func (f *FileFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	full := filepath.Join(f.Root, clean)

	// Guard against path traversal escaping the project root, the way the
	// teacher's LocalReusableWorkflowCache.FindMetadata does.
	rootClean := filepath.Clean(f.Root)
	if !strings.HasPrefix(full, rootClean+string(filepath.Separator)) && full != rootClean {
		return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNotFound}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNotFound, Cause: err}
		}
		return nil, &lintererr.TransportCondition{Kind: lintererr.TransportNetworkError, Cause: err}
	}
	return data, nil
}
