// Package config loads and validates the in-memory configuration that
// drives a calculation: versioning mode, increment defaults, per-branch
// overrides, and the handful of ignore/merge-message-format rules spec'd
// alongside it. Nothing in this package touches Git; it only turns a YAML
// file (or its defaults) into a validated Configuration value.
package config

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/nextver/nextver/semver"
)

// VersioningMode is one of the three pre-release numbering strategies.
type VersioningMode int

const (
	ContinuousDelivery VersioningMode = iota
	ContinuousDeployment
	Mainline
)

func (m VersioningMode) String() string {
	switch m {
	case ContinuousDelivery:
		return "ContinuousDelivery"
	case ContinuousDeployment:
		return "ContinuousDeployment"
	case Mainline:
		return "Mainline"
	default:
		return "unknown"
	}
}

func parseVersioningMode(s string) (VersioningMode, error) {
	switch s {
	case "", "ContinuousDelivery":
		return ContinuousDelivery, nil
	case "ContinuousDeployment":
		return ContinuousDeployment, nil
	case "Mainline":
		return Mainline, nil
	default:
		return 0, fmt.Errorf("unrecognized versioning mode %q", s)
	}
}

// Increment is the numeric component a branch bumps by default, or the
// special Inherit value meaning "look at the source branch".
type Increment int

const (
	IncrementInherit Increment = iota
	IncrementNone
	IncrementPatch
	IncrementMinor
	IncrementMajor
)

func (i Increment) String() string {
	switch i {
	case IncrementNone:
		return "None"
	case IncrementPatch:
		return "Patch"
	case IncrementMinor:
		return "Minor"
	case IncrementMajor:
		return "Major"
	default:
		return "Inherit"
	}
}

func parseIncrement(s string) (Increment, error) {
	switch s {
	case "", "Inherit":
		return IncrementInherit, nil
	case "None":
		return IncrementNone, nil
	case "Patch":
		return IncrementPatch, nil
	case "Minor":
		return IncrementMinor, nil
	case "Major":
		return IncrementMajor, nil
	default:
		return 0, fmt.Errorf("unrecognized increment %q", s)
	}
}

// BranchConfig is one entry of the configured branches map, before
// Inherit-resolution. A resolved, concrete BranchConfig never carries
// IncrementInherit.
type BranchConfig struct {
	Name                                   string
	Regex                                  *regexp.Regexp
	Tag                                    string
	Increment                              Increment
	VersioningMode                         VersioningMode
	PreventIncrementOfMergedBranchVersion  bool
	TrackMergeTarget                       bool
	SourceBranches                         []string
	IsReleaseBranch                        bool
	IsMainline                             bool
}

// rawBranchConfig is the YAML-shaped form before the regex is compiled.
type rawBranchConfig struct {
	Regex                                  string   `mapstructure:"regex"`
	Tag                                    string   `mapstructure:"tag"`
	Increment                              string   `mapstructure:"increment"`
	VersioningMode                         string   `mapstructure:"versioning-mode"`
	PreventIncrementOfMergedBranchVersion  *bool    `mapstructure:"prevent-increment-of-merged-branch-version"`
	TrackMergeTarget                       bool     `mapstructure:"track-merge-target"`
	SourceBranches                         []string `mapstructure:"source-branches"`
	IsReleaseBranch                        bool     `mapstructure:"is-release-branch"`
	IsMainline                             bool     `mapstructure:"is-mainline"`
}

// Ignore filters commits out of consideration entirely.
type Ignore struct {
	Shas              map[string]bool
	CommitsBeforeDate *time.Time
}

// Configuration is the fully-parsed, validated in-memory configuration the
// calculation engine consumes. It never touches disk itself.
type Configuration struct {
	NextVersion         string
	TagPrefix           string
	VersioningMode      VersioningMode
	Increment           Increment
	Branches            map[string]*BranchConfig
	BranchOrder         []string
	Ignore              Ignore
	MergeMessageFormats []*regexp.Regexp
}

// rawConfiguration mirrors the YAML document shape, for viper/mapstructure
// unmarshalling, before regexes are compiled and defaults are folded in.
type rawConfiguration struct {
	NextVersion         string                      `mapstructure:"next-version"`
	TagPrefix           string                      `mapstructure:"tag-prefix"`
	VersioningMode      string                      `mapstructure:"versioning-mode"`
	Increment           string                      `mapstructure:"increment"`
	Branches            map[string]rawBranchConfig  `mapstructure:"branches"`
	IgnoreShas          []string                    `mapstructure:"ignore-shas"`
	CommitsBeforeDate   string                      `mapstructure:"commits-before-date"`
	MergeMessageFormats []string                    `mapstructure:"merge-message-formats"`
}

// defaultBranches mirrors the well-known branch families a fresh
// repository ships with no configuration file: a mainline trunk plus the
// usual development/feature/release/hotfix/support/pull-request
// families. Every pattern here is overridable by name in the user's
// configuration file.
func defaultBranches() map[string]rawBranchConfig {
	return map[string]rawBranchConfig{
		"mainline": {
			Regex:          `^(master|main)$`,
			Tag:            "",
			Increment:      "Minor",
			VersioningMode: "ContinuousDelivery",
			IsMainline:     true,
		},
		"develop": {
			Regex:          `^develop(ment)?$`,
			Tag:            "alpha",
			Increment:      "Minor",
			VersioningMode: "ContinuousDeployment",
			SourceBranches: []string{"mainline"},
		},
		"feature": {
			Regex:          `^features?[/-]`,
			Tag:            "useBranchName",
			Increment:      "Inherit",
			VersioningMode: "ContinuousDelivery",
			SourceBranches: []string{"develop", "mainline"},
		},
		"release": {
			Regex:                                 `^releases?[/-]`,
			Tag:                                    "beta",
			Increment:                              "None",
			VersioningMode:                         "ContinuousDelivery",
			PreventIncrementOfMergedBranchVersion:  boolPtr(true),
			IsReleaseBranch:                        true,
			SourceBranches:                         []string{"develop", "mainline"},
		},
		"hotfix": {
			Regex:          `^hotfix(es)?[/-]`,
			Tag:            "beta",
			Increment:      "Patch",
			VersioningMode: "ContinuousDelivery",
			IsReleaseBranch: true,
			SourceBranches:  []string{"mainline"},
		},
		"support": {
			Regex:          `^support[/-]`,
			Tag:            "",
			Increment:      "Patch",
			VersioningMode: "ContinuousDelivery",
			IsMainline:     true,
			SourceBranches: []string{"mainline"},
		},
		"pull-request": {
			Regex:          `^(pull|pr)[/-]`,
			Tag:            "PullRequest{BranchName}",
			Increment:      "Inherit",
			VersioningMode: "ContinuousDelivery",
			SourceBranches: []string{"develop", "mainline"},
		},
		"unknown": {
			Regex:          `.*`,
			Tag:            "{BranchName}",
			Increment:      "Inherit",
			VersioningMode: "ContinuousDelivery",
			SourceBranches: []string{"mainline"},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

// defaultBranchOrder fixes the tie-break order among the built-in branch
// families: spec §4.3 rule 3 says ties between equally-specific regexes
// are "broken by configuration order", which only has a defined meaning
// if that order is explicit. Go maps are not ordered, so this slice is
// the order of record.
func defaultBranchOrder() []string {
	return []string{
		"mainline", "support", "develop", "release", "hotfix",
		"feature", "pull-request", "unknown",
	}
}

// Default returns the built-in configuration applied when no file on disk
// overrides it: no NextVersion, ContinuousDelivery/Patch defaults, and the
// standard branch family above.
func Default() (*Configuration, error) {
	return build(rawConfiguration{
		VersioningMode: "ContinuousDelivery",
		Increment:      "Patch",
		Branches:       defaultBranches(),
	})
}

// build compiles a rawConfiguration (whatever produced it — defaults or a
// viper unmarshal) into a validated Configuration, or a *ConfigurationError
// wrapping the first problem found: an invalid regex or an unparseable
// enum value is fatal before calculation begins.
func build(raw rawConfiguration) (*Configuration, error) {
	mode, err := parseVersioningMode(raw.VersioningMode)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	topIncrement, err := parseIncrement(raw.Increment)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	merged := defaultBranches()
	order := defaultBranchOrder()
	var extra []string
	for name, override := range raw.Branches {
		base, exists := merged[name]
		if !exists {
			base = rawBranchConfig{Increment: "Inherit", VersioningMode: raw.VersioningMode}
			extra = append(extra, name)
		}
		merged[name] = mergeBranchConfig(base, override)
	}
	sort.Strings(extra)
	order = append(order, extra...)

	branches := make(map[string]*BranchConfig, len(merged))
	for name, rbc := range merged {
		bc, err := compileBranchConfig(name, rbc)
		if err != nil {
			return nil, &ConfigurationError{Reason: err.Error()}
		}
		branches[name] = bc
	}

	formats := make([]*regexp.Regexp, 0, len(raw.MergeMessageFormats)+1)
	formats = append(formats, defaultMergeMessagePattern)
	for _, pattern := range raw.MergeMessageFormats {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid merge-message-formats entry %q: %v", pattern, err)}
		}
		formats = append(formats, re)
	}

	ignore := Ignore{Shas: map[string]bool{}}
	for _, sha := range raw.IgnoreShas {
		ignore.Shas[sha] = true
	}
	if raw.CommitsBeforeDate != "" {
		t, err := time.Parse(time.RFC3339, raw.CommitsBeforeDate)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid commits-before-date %q: %v", raw.CommitsBeforeDate, err)}
		}
		ignore.CommitsBeforeDate = &t
	}

	if raw.NextVersion != "" {
		if _, err := semver.Parse(raw.NextVersion); err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid next-version %q: %v", raw.NextVersion, err)}
		}
	}

	return &Configuration{
		NextVersion:         raw.NextVersion,
		TagPrefix:           raw.TagPrefix,
		VersioningMode:      mode,
		Increment:           topIncrement,
		Branches:            branches,
		BranchOrder:         order,
		Ignore:              ignore,
		MergeMessageFormats: formats,
	}, nil
}

var defaultMergeMessagePattern = regexp.MustCompile(`^Merge (branch|pull request) '?([^' ]+)'?`)

func mergeBranchConfig(base, override rawBranchConfig) rawBranchConfig {
	out := base
	if override.Regex != "" {
		out.Regex = override.Regex
	}
	if override.Tag != "" {
		out.Tag = override.Tag
	}
	if override.Increment != "" {
		out.Increment = override.Increment
	}
	if override.VersioningMode != "" {
		out.VersioningMode = override.VersioningMode
	}
	if override.PreventIncrementOfMergedBranchVersion != nil {
		out.PreventIncrementOfMergedBranchVersion = override.PreventIncrementOfMergedBranchVersion
	}
	if override.SourceBranches != nil {
		out.SourceBranches = override.SourceBranches
	}
	out.TrackMergeTarget = out.TrackMergeTarget || override.TrackMergeTarget
	out.IsReleaseBranch = out.IsReleaseBranch || override.IsReleaseBranch
	out.IsMainline = out.IsMainline || override.IsMainline
	return out
}

func compileBranchConfig(name string, raw rawBranchConfig) (*BranchConfig, error) {
	re, err := regexp.Compile(raw.Regex)
	if err != nil {
		return nil, fmt.Errorf("branch %q: invalid regex %q: %w", name, raw.Regex, err)
	}
	increment, err := parseIncrement(raw.Increment)
	if err != nil {
		return nil, fmt.Errorf("branch %q: %w", name, err)
	}
	mode, err := parseVersioningMode(raw.VersioningMode)
	if err != nil {
		return nil, fmt.Errorf("branch %q: %w", name, err)
	}
	prevent := false
	if raw.PreventIncrementOfMergedBranchVersion != nil {
		prevent = *raw.PreventIncrementOfMergedBranchVersion
	}
	return &BranchConfig{
		Name:                                  name,
		Regex:                                 re,
		Tag:                                   raw.Tag,
		Increment:                             increment,
		VersioningMode:                        mode,
		PreventIncrementOfMergedBranchVersion: prevent,
		TrackMergeTarget:                      raw.TrackMergeTarget,
		SourceBranches:                        raw.SourceBranches,
		IsReleaseBranch:                       raw.IsReleaseBranch,
		IsMainline:                            raw.IsMainline,
	}, nil
}

// ConfigurationError reports a fatal, pre-calculation configuration
// problem: an invalid regex, an unparseable NextVersion, or any other
// field that could not be understood.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}
