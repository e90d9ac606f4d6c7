// Command nextver computes a SemVer 2.0.0 version for a Git working
// copy, in the style of GitVersion, and prints it to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/nextver/nextver/cache"
	"github.com/nextver/nextver/config"
	"github.com/nextver/nextver/gitrepo"
	"github.com/nextver/nextver/semver"

	"github.com/nextver/nextver"
)

// Version is overwritten at build time via -ldflags.
var Version = "dev"

type cli struct {
	Calculate calculateCmd `cmd:"" default:"1" help:"Compute the version for the current repository"`
	Config    configCmd    `cmd:"" help:"Configuration-related subcommands"`
	Cache     cacheCmd     `cmd:"" help:"Version-cache subcommands"`
	Debug     bool         `help:"Enable verbose (development-mode) logging"`
	Version   bool         `help:"Print the nextver binary version and exit" name:"version"`
}

type calculateCmd struct {
	Repo     string `short:"r" type:"existingdir" help:"Repository path (default: current directory)"`
	Branch   string `help:"Override the current branch name (required with a detached HEAD)"`
	NoCache  bool   `help:"Bypass the on-disk version cache"`
	Output   string `enum:"text,json" default:"text" help:"Output encoding"`
	Format   string `enum:"canonical,full,short" default:"canonical" help:"Version render format"`
	ConfigIn string `name:"config" type:"existingfile" help:"Path to a configuration file (default: <repo>/.nextver.yml)"`
}

type configCmd struct {
	Validate validateCmd `cmd:"" help:"Validate a configuration file without computing a version"`
}

type validateCmd struct {
	Repo     string `short:"r" type:"existingdir" help:"Repository path (default: current directory)"`
	ConfigIn string `name:"config" type:"existingfile" help:"Path to a configuration file (default: <repo>/.nextver.yml)"`
}

type cacheCmd struct {
	Clear clearCmd `cmd:"" help:"Remove every memoized version from the on-disk cache"`
}

type clearCmd struct {
	Repo string `short:"r" type:"existingdir" help:"Repository path (default: current directory)"`
}

func main() {
	var c cli
	parser := kong.Parse(&c,
		kong.Name("nextver"),
		kong.Description("Compute a SemVer 2.0.0 version from Git repository history"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	if c.Version {
		fmt.Printf("nextver version %s\n", Version)
		os.Exit(0)
	}

	logger := newLogger(c.Debug)
	defer func() { _ = logger.Sync() }()

	err := parser.Run(logger)
	parser.FatalIfErrorf(err)
}

func newLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		// zap's own constructors practically never fail; fall back to a
		// no-op logger rather than abort the CLI over logging setup.
		logger = zap.NewNop()
	}
	return logger
}

func repoOrCwd(repo string) (string, error) {
	if repo != "" {
		return repo, nil
	}
	return os.Getwd()
}

func (c *calculateCmd) Run(logger *zap.Logger) error {
	ctx := context.Background()

	repoPath, err := repoOrCwd(c.Repo)
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}

	format, err := parseFormat(c.Format)
	if err != nil {
		return err
	}

	adapter, err := gitrepo.OpenRepository(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository at %s: %w", repoPath, err)
	}

	store := cache.New(afero.NewOsFs(), cache.GitDir(repoPath))

	var cacheKey string
	if !c.NoCache {
		cfg, cfgErr := config.Load(afero.NewOsFs(), resolveConfigDir(repoPath, c.ConfigIn))
		if cfgErr == nil {
			head, headErr := adapter.Head(ctx)
			if headErr == nil {
				cacheKey = cache.Key(string(head), cache.HashConfiguration(cfg))
				if cached, ok, getErr := store.Get(ctx, cacheKey); getErr == nil && ok {
					logger.Debug("cache hit", zap.String("key", cacheKey))
					return printVersion(cached, c.Output, format)
				}
			}
		}
	}

	v, err := nextver.Calculate(ctx, nextver.Options{
		RepositoryPath:        repoPath,
		Adapter:               adapter,
		ConfigPath:            resolveConfigDir(repoPath, c.ConfigIn),
		CurrentBranchOverride: c.Branch,
	})
	if err != nil {
		logger.Error("calculation failed", zap.Error(err))
		return err
	}

	if !c.NoCache && cacheKey != "" {
		if err := store.Put(ctx, cacheKey, v); err != nil {
			logger.Warn("failed to write version cache", zap.Error(err))
		}
	}

	return printVersion(v, c.Output, format)
}

func (c *validateCmd) Run(logger *zap.Logger) error {
	repoPath, err := repoOrCwd(c.Repo)
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}
	_, err = config.Load(afero.NewOsFs(), resolveConfigDir(repoPath, c.ConfigIn))
	if err != nil {
		logger.Error("configuration invalid", zap.Error(err))
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}

func (c *clearCmd) Run(logger *zap.Logger) error {
	repoPath, err := repoOrCwd(c.Repo)
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}
	store := cache.New(afero.NewOsFs(), cache.GitDir(repoPath))
	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	logger.Info("version cache cleared", zap.String("repo", repoPath))
	fmt.Println("cache cleared")
	return nil
}

func resolveConfigDir(repoPath, configIn string) string {
	if configIn != "" {
		return configIn
	}
	return repoPath
}

func parseFormat(s string) (semver.Format, error) {
	switch s {
	case "canonical":
		return semver.FormatCanonical, nil
	case "full":
		return semver.FormatFull, nil
	case "short":
		return semver.FormatShort, nil
	default:
		return 0, fmt.Errorf("unrecognized format %q", s)
	}
}

func printVersion(v *semver.SemanticVersion, output string, format semver.Format) error {
	if output == "json" {
		return json.NewEncoder(os.Stdout).Encode(jsonVersion{
			Version: v.Render(format),
			Major:   v.Major,
			Minor:   v.Minor,
			Patch:   v.Patch,
			Pre:     preString(v),
			Build:   buildString(v),
		})
	}
	fmt.Println(v.Render(format))
	return nil
}

type jsonVersion struct {
	Version string `json:"version"`
	Major   uint64 `json:"major"`
	Minor   uint64 `json:"minor"`
	Patch   uint64 `json:"patch"`
	Pre     string `json:"preRelease,omitempty"`
	Build   string `json:"buildMetadata,omitempty"`
}

func preString(v *semver.SemanticVersion) string {
	if v.Pre == nil {
		return ""
	}
	return v.Pre.String()
}

func buildString(v *semver.SemanticVersion) string {
	if v.Build == nil {
		return ""
	}
	return v.Build.String()
}
