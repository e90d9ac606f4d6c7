package branch

import "github.com/nextver/nextver/config"

// Lifecycle is the branch-family classification spec §9's glossary names:
// a pure function of a branch's name and the configured patterns,
// resolved once per invocation. It carries no notion of transitions over
// time.
type Lifecycle int

const (
	Unknown Lifecycle = iota
	MainlineLifecycle
	DevelopmentLifecycle
	FeatureLifecycle
	ReleaseLifecycle
	HotfixLifecycle
	PullRequestLifecycle
	SupportLifecycle
)

var lifecycleByFamily = map[string]Lifecycle{
	"mainline":     MainlineLifecycle,
	"develop":      DevelopmentLifecycle,
	"feature":      FeatureLifecycle,
	"release":      ReleaseLifecycle,
	"hotfix":       HotfixLifecycle,
	"pull-request": PullRequestLifecycle,
	"support":      SupportLifecycle,
}

// Classify reports which branch family matched, as a Lifecycle value.
// Resolve already performs the matching; Classify re-derives it from the
// BranchConfig.Name Resolve attached to the returned config, so callers
// that only have a resolved BranchConfig (not the raw match) can still
// classify it.
func Classify(bc *config.BranchConfig) Lifecycle {
	if bc == nil {
		return Unknown
	}
	if lc, ok := lifecycleByFamily[bc.Name]; ok {
		return lc
	}
	return Unknown
}
