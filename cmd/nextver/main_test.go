package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextver/nextver/semver"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected semver.Format
		wantErr  bool
	}{
		{"canonical", semver.FormatCanonical, false},
		{"full", semver.FormatFull, false},
		{"short", semver.FormatShort, false},
		{"bogus", 0, true},
		{"", 0, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := parseFormat(test.input)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, got)
		})
	}
}

func TestResolveConfigDir(t *testing.T) {
	require.Equal(t, "/explicit/path.yml", resolveConfigDir("/repo", "/explicit/path.yml"))
	require.Equal(t, "/repo", resolveConfigDir("/repo", ""))
}

func TestPreAndBuildStringHandleNil(t *testing.T) {
	v := &semver.SemanticVersion{Major: 1}
	require.Equal(t, "", preString(v))
	require.Equal(t, "", buildString(v))
}

func TestPreAndBuildStringRenderSetValues(t *testing.T) {
	n := 2
	v := &semver.SemanticVersion{
		Major: 1,
		Pre:   &semver.PreRelease{Name: "beta", Number: &n},
		Build: &semver.BuildMetadata{CommitsSinceTag: 5, SHA: "abc123"},
	}
	require.Equal(t, "beta.2", preString(v))
	require.Equal(t, "5.abc123", buildString(v))
}
