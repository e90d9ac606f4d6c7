package semver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("bare triple", func(t *testing.T) {
		v, err := Parse("1.2.3")
		require.NoError(t, err)
		require.Equal(t, uint64(1), v.Major)
		require.Equal(t, uint64(2), v.Minor)
		require.Equal(t, uint64(3), v.Patch)
		require.Nil(t, v.Pre)
	})

	t.Run("leading v", func(t *testing.T) {
		v, err := Parse("v1.2.3")
		require.NoError(t, err)
		require.Equal(t, uint64(1), v.Major)
	})

	t.Run("pre-release with number", func(t *testing.T) {
		v, err := Parse("1.2.3-alpha.5")
		require.NoError(t, err)
		require.NotNil(t, v.Pre)
		require.Equal(t, "alpha", v.Pre.Name)
		require.NotNil(t, v.Pre.Number)
		require.Equal(t, 5, *v.Pre.Number)
	})

	t.Run("pre-release without number", func(t *testing.T) {
		v, err := Parse("1.2.3-foo")
		require.NoError(t, err)
		require.Equal(t, "foo", v.Pre.Name)
		require.Nil(t, v.Pre.Number)
	})

	t.Run("rejects non-numeric component", func(t *testing.T) {
		_, err := Parse("a.b.c")
		require.Error(t, err)
	})

	t.Run("rejects negative component", func(t *testing.T) {
		_, err := Parse("-1.2.3")
		require.Error(t, err)
	})

	t.Run("ignores build metadata in input", func(t *testing.T) {
		v, err := Parse("1.2.3+17")
		require.NoError(t, err)
		require.Equal(t, uint64(1), v.Major)
		require.Nil(t, v.Build)
	})
}

func TestRender(t *testing.T) {
	n := 5
	v := &SemanticVersion{
		Major: 1, Minor: 2, Patch: 3,
		Pre: &PreRelease{Name: "alpha", Number: &n},
		Build: &BuildMetadata{
			CommitsSinceTag: 17,
			BranchName:      "feature/x",
			SHA:             "abc1234",
			CommitDate:      time.Unix(0, 0),
		},
	}

	require.Equal(t, "1.2.3-alpha.5", v.Render(FormatShort))
	require.Equal(t, "1.2.3-alpha.5+17.feature-x.abc1234", v.Render(FormatFull))
	require.Equal(t, "1.2.3-alpha.5+17.feature-x.abc1234", v.Render(FormatCanonical))
}

func TestRenderNoPreRelease(t *testing.T) {
	v := &SemanticVersion{Major: 1, Minor: 0, Patch: 0}
	require.Equal(t, "1.0.0", v.Render(FormatShort))
	require.Equal(t, "1.0.0", v.Render(FormatFull))
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"0.1.0", "1.2.3-alpha.5", "2.0.0-beta"} {
		v, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, s, v.Render(FormatShort))
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.0.0", "1.0.0", 0},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0", "1.0.0-alpha", 1},
		{"1.0.0-alpha.1", "1.0.0-alpha.2", -1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"1.0.0-alpha", "1.0.0-alpha.1", -1},
	}
	for _, c := range cases {
		a, err := Parse(c.a)
		require.NoError(t, err)
		b, err := Parse(c.b)
		require.NoError(t, err)
		require.Equal(t, c.want, Compare(a, b), "%s vs %s", c.a, c.b)
	}
}

func TestCompareIgnoresBuildMetadata(t *testing.T) {
	a := &SemanticVersion{Major: 1, Build: &BuildMetadata{SHA: "aaa"}}
	b := &SemanticVersion{Major: 1, Build: &BuildMetadata{SHA: "bbb"}}
	require.Equal(t, 0, Compare(a, b))
}

func TestIncrementMajor(t *testing.T) {
	v := &SemanticVersion{Major: 1, Minor: 2, Patch: 3, Pre: &PreRelease{Name: "alpha"}}
	v.IncrementMajor()
	require.Equal(t, uint64(2), v.Major)
	require.Equal(t, uint64(0), v.Minor)
	require.Equal(t, uint64(0), v.Patch)
	require.Nil(t, v.Pre)
}

func TestIncrementMinor(t *testing.T) {
	v := &SemanticVersion{Major: 1, Minor: 2, Patch: 3}
	v.IncrementMinor()
	require.Equal(t, uint64(1), v.Major)
	require.Equal(t, uint64(3), v.Minor)
	require.Equal(t, uint64(0), v.Patch)
}

func TestIncrementPatch(t *testing.T) {
	v := &SemanticVersion{Major: 1, Minor: 2, Patch: 3}
	v.IncrementPatch()
	require.Equal(t, uint64(4), v.Patch)
}

func TestIncrementPreReleaseNumber(t *testing.T) {
	t.Run("from nil", func(t *testing.T) {
		v := &SemanticVersion{Major: 1}
		v.IncrementPreReleaseNumber()
		require.NotNil(t, v.Pre)
		require.Equal(t, 1, *v.Pre.Number)
	})

	t.Run("from existing", func(t *testing.T) {
		n := 4
		v := &SemanticVersion{Major: 1, Pre: &PreRelease{Name: "beta", Number: &n}}
		v.IncrementPreReleaseNumber()
		require.Equal(t, 5, *v.Pre.Number)
		require.Equal(t, "beta", v.Pre.Name)
	})
}

func TestClone(t *testing.T) {
	n := 3
	v := &SemanticVersion{Major: 1, Pre: &PreRelease{Name: "alpha", Number: &n}}
	clone := v.Clone()
	*clone.Pre.Number = 9
	require.Equal(t, 3, *v.Pre.Number)
	require.Equal(t, 9, *clone.Pre.Number)
}
