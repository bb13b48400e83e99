package story

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nourhashem/teddyd/speech"
	"github.com/nourhashem/teddyd/types"
)

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator(1)

	s, err := g.Generate(Request{ChildName: "Lina", Age: 5, Theme: ThemeOcean})
	require.NoError(t, err)
	assert.Equal(t, ThemeOcean, s.Theme)
	assert.Equal(t, speech.ToneCalm, s.Tone)
	assert.NotEmpty(t, s.Title)
	assert.Contains(t, s.Text, "Lina")
	// no unexpanded template markers survive assembly
	assert.NotContains(t, s.Text, "{{")
}

func TestGenerator_EveryTheme(t *testing.T) {
	g := NewGenerator(7)

	for _, theme := range Themes() {
		s, err := g.Generate(Request{ChildName: "Omar", Age: 6, Theme: theme})
		require.NoError(t, err, "theme %s", theme)
		assert.Equal(t, theme, s.Theme)
		assert.Contains(t, s.Text, "Omar")
	}
}

func TestGenerator_RandomThemeWhenEmpty(t *testing.T) {
	g := NewGenerator(3)

	s, err := g.Generate(Request{ChildName: "Zoe", Age: 4})
	require.NoError(t, err)
	assert.Contains(t, Themes(), s.Theme)
}

func TestGenerator_ValidatesInput(t *testing.T) {
	g := NewGenerator(1)

	_, err := g.Generate(Request{ChildName: "  ", Theme: ThemeSpace})
	require.Error(t, err)
	var appErr *types.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrInvalidRequest, appErr.Code)

	_, err = g.Generate(Request{ChildName: "Lina", Theme: Theme("volcano")})
	require.Error(t, err)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrInvalidRequest, appErr.Code)
}

func TestGenerator_OlderChildrenGetLongerStories(t *testing.T) {
	short, err := NewGenerator(11).Generate(Request{ChildName: "Ben", Age: 4, Theme: ThemeForest})
	require.NoError(t, err)
	long, err := NewGenerator(11).Generate(Request{ChildName: "Ben", Age: 8, Theme: ThemeForest})
	require.NoError(t, err)

	assert.Greater(t, len(strings.Fields(long.Text)), len(strings.Fields(short.Text)))
}
