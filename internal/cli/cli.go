// Package cli implements the external interface from spec.md §6, grounded
// on the teacher's pkg/core/command.go: a flag.FlagSet-driven Command with
// Stdin/Stdout/Stderr fields, directory-mode and file-mode discovery of
// workflow YAML, and fatih/color-styled pass/fail reporting.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/sisaku-security/actionvet/internal/analyzer"
	"github.com/sisaku-security/actionvet/internal/doccache"
	"github.com/sisaku-security/actionvet/internal/ghfetch"
	"github.com/sisaku-security/actionvet/internal/lintererr"
	"github.com/sisaku-security/actionvet/internal/model"
	"github.com/sisaku-security/actionvet/internal/schema"
)

const (
	ExitStatusSuccess            = 0
	ExitStatusValidationFailure  = 1
)

var (
	greenStyle = color.New(color.FgGreen)
	redStyle   = color.New(color.FgRed)
	grayStyle  = color.New(color.FgHiBlack)
)

// Command is the actionvet CLI. The given Stdin/Stdout/Stderr are used for
// all I/O, so it can be exercised from tests without touching the process
// streams.
type Command struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `Usage: actionvet [FLAGS] <path>

actionvet validates GitHub Actions workflow YAML for schema conformance and
cross-document reference consistency (callable workflows, third-party
actions).

<path> is either a directory containing .github/workflows, or a single
workflow file inside .github/workflows/.

Flags:
`)
}

// Main runs the CLI over args (as os.Args: args[0] is the program name) and
// returns a process exit code.
func (cmd *Command) Main(args []string) int {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(cmd.Stderr)
	debug := flags.Bool("debug", false, "enable debug output (for development)")
	flags.Usage = func() {
		printUsage(cmd.Stderr)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitStatusValidationFailure
		}
		return ExitStatusValidationFailure
	}

	positionals := flags.Args()
	if len(positionals) != 1 {
		flags.Usage()
		return ExitStatusValidationFailure
	}

	targets, root, err := resolveTargets(positionals[0])
	if err != nil {
		fmt.Fprintln(cmd.Stderr, err)
		return ExitStatusValidationFailure
	}

	cache := newCache(root)
	an := analyzer.New(cache)
	if *debug {
		cache.EnableDebugOutput(cmd.Stderr)
		an.EnableDebugOutput(cmd.Stderr)
	}

	ok := true
	for _, path := range targets {
		if !cmd.validateOne(an, root, path) {
			ok = false
		}
	}

	if !ok {
		return ExitStatusValidationFailure
	}
	return ExitStatusSuccess
}

// resolveTargets implements spec.md §6's directory-mode and file-mode
// discovery. It returns the workflow paths (relative to root) to validate
// and the root against which they resolve.
func resolveTargets(arg string) ([]string, string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, "", fmt.Errorf("cannot access %s: %w", arg, err)
	}

	if info.IsDir() {
		workflowsDir := filepath.Join(arg, ".github", "workflows")
		entries, err := os.ReadDir(workflowsDir)
		if err != nil {
			return nil, "", fmt.Errorf("no .github/workflows directory under %s: %w", arg, err)
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.HasSuffix(e.Name(), ".yml") || strings.HasSuffix(e.Name(), ".yaml") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		paths := make([]string, 0, len(names))
		for _, name := range names {
			paths = append(paths, filepath.ToSlash(filepath.Join(".github", "workflows", name)))
		}
		return paths, arg, nil
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return nil, "", err
	}
	parent := filepath.Base(filepath.Dir(abs))
	grandparent := filepath.Base(filepath.Dir(filepath.Dir(abs)))
	if parent != "workflows" || grandparent != ".github" {
		return nil, "", fmt.Errorf("%s must be inside a .github/workflows directory", arg)
	}

	root := filepath.Dir(filepath.Dir(filepath.Dir(abs)))
	rel := filepath.ToSlash(filepath.Join(".github", "workflows", filepath.Base(abs)))
	return []string{rel}, root, nil
}

func newCache(root string) *doccache.Cache {
	files := ghfetch.NewFileFetcher(root)

	token := resolveToken()
	var repos ghfetch.RepoObjectFetching
	if token != "" {
		repos = ghfetch.NewGraphQLFetcher(token)
	} else {
		repos = ghfetch.NewRESTFetcher("")
	}
	return doccache.New(files, repos)
}

// resolveToken follows the teacher's GITHUB_TOKEN → GH_TOKEN fallback
// chain (pkg/remote/fetcher.go getToken), without the gh-CLI/git-credential
// steps since this module has no dependency on either external binary.
func resolveToken() string {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_TOKEN")
}

func (cmd *Command) validateOne(an *analyzer.Analyzer, root, relPath string) bool {
	full := filepath.Join(root, relPath)
	data, err := os.ReadFile(full)
	if err != nil {
		cmd.printFailure(relPath, err.Error(), nil)
		return false
	}

	wf, schemaErrs, parseErr := schema.ReadWorkflow(data)
	if parseErr != nil {
		cmd.printFailure(relPath, parseErr.Error(), nil)
		return false
	}
	if len(schemaErrs) > 0 {
		cmd.printFailure(relPath, "schema errors", schemaErrs)
		return false
	}
	wf.Path = relPath

	if err := an.Analyze(context.Background(), wf, relPath); err != nil {
		var de *lintererr.DocumentError
		if errors.As(err, &de) && len(de.SchemaErrors) > 0 {
			cmd.printFailure(relPath, de.Message, de.SchemaErrors)
		} else {
			cmd.printFailure(relPath, err.Error(), nil)
		}
		return false
	}

	greenStyle.Fprintf(cmd.Stdout, "✓ ")
	fmt.Fprintf(cmd.Stdout, "%s is valid\n", relPath)
	return true
}

func (cmd *Command) printFailure(path, message string, schemaErrs []*model.SchemaError) {
	redStyle.Fprintf(cmd.Stdout, "✗ ")
	fmt.Fprintf(cmd.Stdout, "%s: %s\n", path, message)
	for _, se := range schemaErrs {
		fmt.Fprintf(cmd.Stdout, "  - %s\n", se.Message)
		grayStyle.Fprintf(cmd.Stdout, "      %s\n", se.Path)
	}
}
