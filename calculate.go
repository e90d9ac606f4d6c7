package nextver

import (
	"context"
	"errors"

	"github.com/spf13/afero"

	"github.com/nextver/nextver/baseversion"
	"github.com/nextver/nextver/branch"
	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
	"github.com/nextver/nextver/semver"
)

// Options configures one calculation.
type Options struct {
	// RepositoryPath is where to open the Git repository. No repository is
	// opened from it if Adapter is set; it still serves as ConfigPath's
	// default.
	RepositoryPath string
	// Adapter, if set, is used instead of opening RepositoryPath. Tests
	// supply in-memory adapters this way.
	Adapter gitrepo.Adapter
	// ConfigFs and ConfigPath locate the configuration file; ConfigFs
	// defaults to the OS filesystem and ConfigPath to RepositoryPath.
	ConfigFs   afero.Fs
	ConfigPath string
	// CurrentBranchOverride is required when HEAD is detached, and
	// optional otherwise (it still overrides the adapter's own answer).
	CurrentBranchOverride string
}

// Calculate runs the full version-calculation pipeline: resolve branch
// configuration, run every base-version provider, arbitrate their
// candidates, apply the increment engine, and format the pre-release and
// build metadata (spec §2 data flow).
func Calculate(ctx context.Context, opts Options) (*semver.SemanticVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Err: err}
	}

	adapter := opts.Adapter
	if adapter == nil {
		path := opts.RepositoryPath
		if path == "" {
			path = "."
		}
		opened, err := gitrepo.OpenRepository(path)
		if err != nil {
			return nil, &RepositoryError{Op: "opening repository", Err: err}
		}
		adapter = opened
	}

	fs := opts.ConfigFs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = opts.RepositoryPath
	}
	if configPath == "" {
		configPath = "."
	}
	cfg, err := config.Load(fs, configPath)
	if err != nil {
		return nil, err
	}

	currentBranch := opts.CurrentBranchOverride
	if currentBranch == "" {
		currentBranch, err = adapter.CurrentBranch(ctx)
		if err != nil {
			if errors.Is(err, gitrepo.ErrDetachedHead) {
				return nil, &config.ConfigurationError{Reason: "HEAD is detached; CurrentBranchOverride is required"}
			}
			return nil, &RepositoryError{Op: "determining current branch", Err: err}
		}
	}

	currentCommit, err := adapter.Head(ctx)
	if err != nil {
		return nil, &NoCommitsError{}
	}

	bc, err := branch.Resolve(ctx, adapter, cfg, currentBranch, currentCommit)
	if err != nil {
		return nil, &RepositoryError{Op: "resolving branch configuration", Err: err}
	}

	gctx := &GitContext{
		CurrentBranch:     currentBranch,
		CurrentCommit:     currentCommit,
		RepositoryAdapter: adapter,
		ResolvedConfig:    cfg,
		BranchConfig:      bc,
	}

	winner, err := baseversion.Arbitrate(ctx, baseversion.DefaultProviders(), adapter, cfg, bc, currentBranch, currentCommit)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Err: err}
	}

	return assemble(ctx, gctx, winner)
}
