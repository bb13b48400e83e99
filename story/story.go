// Package story assembles short bedtime stories from theme templates.
// The output is plain text meant to be handed to the speech router for
// synthesis in a calm tone; there is no language model behind it, just
// curated templates with child-name interpolation.
package story

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"text/template"

	"github.com/nourhashem/teddyd/speech"
	"github.com/nourhashem/teddyd/types"
)

// Theme selects which template family a story is built from.
type Theme string

const (
	ThemeSpace      Theme = "space"
	ThemeOcean      Theme = "ocean"
	ThemeForest     Theme = "forest"
	ThemeFriendship Theme = "friendship"
)

// Themes lists the supported themes in a stable order.
func Themes() []Theme {
	return []Theme{ThemeSpace, ThemeOcean, ThemeForest, ThemeFriendship}
}

// Request describes the story to assemble.
type Request struct {
	ChildName string `json:"child_name"`
	Age       int    `json:"age"`
	Theme     Theme  `json:"theme"`
}

// Story is the assembled result, ready for synthesis.
type Story struct {
	Title string      `json:"title"`
	Text  string      `json:"text"`
	Theme Theme       `json:"theme"`
	Tone  speech.Tone `json:"tone"`
}

type storyContext struct {
	Name string
	Hero string
}

type themeSet struct {
	title    string
	heroes   []string
	openings []string
	middles  []string
	closings []string
}

var themes = map[Theme]themeSet{
	ThemeSpace: {
		title:  "A Trip Among the Stars",
		heroes: []string{"a little silver rocket", "a sleepy comet", "a friendly moon rover"},
		openings: []string{
			"Once upon a time, {{.Name}} looked out the window and saw {{.Hero}} waiting in the garden.",
			"One quiet night, {{.Name}} heard a gentle hum, and there was {{.Hero}}, glowing softly.",
		},
		middles: []string{
			"Together they floated past the sleepy planets, waving to each one as it yawned and turned off its lights.",
			"They counted shooting stars until the sky ran out, and every star they counted whispered a tiny goodnight.",
		},
		closings: []string{
			"When they drifted home, the moon tucked a silver blanket over {{.Name}}, and everything was calm and still.",
			"Back in bed, {{.Name}} could still hear the stars humming their slow, sweet lullaby.",
		},
	},
	ThemeOcean: {
		title:  "The Whispering Waves",
		heroes: []string{"a gentle blue whale", "a tiny seahorse", "an old wise turtle"},
		openings: []string{
			"Down by the shore, {{.Name}} found {{.Hero}} drawing pictures in the wet sand.",
			"The tide brought something special for {{.Name}} that evening: {{.Hero}}, smiling in the foam.",
		},
		middles: []string{
			"They glided through forests of swaying seaweed while the fish blinked their lanterns on and off.",
			"The waves rocked them slowly, back and forth, the way the ocean has rocked its friends for a thousand years.",
		},
		closings: []string{
			"The sea sang its deepest, softest song, and {{.Name}} felt warm and safe all the way home.",
			"And as the water grew quiet, {{.Name}} yawned a salty little yawn and drifted off to sleep.",
		},
	},
	ThemeForest: {
		title:  "The Sleepy Forest",
		heroes: []string{"a fluffy brown bear cub", "a small owl with big round eyes", "a shy deer"},
		openings: []string{
			"At the edge of the woods, {{.Name}} met {{.Hero}} gathering blackberries for supper.",
			"The tall trees parted just a little, and {{.Hero}} peeked out to say hello to {{.Name}}.",
		},
		middles: []string{
			"They tiptoed along the mossy path, saying goodnight to every flower that folded up its petals.",
			"Fireflies lit tiny lanterns for them, one by one, until the whole forest glowed like a quiet festival.",
		},
		closings: []string{
			"The forest hushed, the leaves stopped rustling, and {{.Name}} curled up as cozy as a bear in winter.",
			"And the old oak tree creaked one last lullaby just for {{.Name}}.",
		},
	},
	ThemeFriendship: {
		title:  "The Best Friend Bear",
		heroes: []string{"a magical teddy bear", "a patchwork rabbit", "a velvet elephant"},
		openings: []string{
			"Once upon a time, there was {{.Hero}} who loved nothing more than making {{.Name}} smile.",
			"{{.Name}} had a secret friend: {{.Hero}}, who always knew exactly the right thing to say.",
		},
		middles: []string{
			"They shared every giggle and every worry, because that is what best friends are for.",
			"Whenever {{.Name}} felt small, the friend would whisper: you are braver than you know.",
		},
		closings: []string{
			"And holding paws, they agreed that tomorrow would be another wonderful day, and fell fast asleep.",
			"Because the nicest place in the whole world is right next to a friend, and that is where {{.Name}} stayed.",
		},
	},
}

// Generator assembles stories. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded from seed. A zero seed picks a
// random one.
func NewGenerator(seed int64) *Generator {
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Generator{rng: rand.New(src)}
}

// Generate assembles a story for req. An empty theme picks one at
// random; unknown themes are rejected.
func (g *Generator) Generate(req Request) (*Story, error) {
	name := strings.TrimSpace(req.ChildName)
	if name == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "child name is required").WithHTTPStatus(400)
	}

	theme := req.Theme
	if theme == "" {
		all := Themes()
		theme = all[g.intn(len(all))]
	}
	set, ok := themes[theme]
	if !ok {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown story theme %q", theme)).WithHTTPStatus(400)
	}

	ctx := storyContext{
		Name: name,
		Hero: set.heroes[g.intn(len(set.heroes))],
	}

	parts := []string{
		g.render(set.openings[g.intn(len(set.openings))], ctx),
		g.render(set.middles[g.intn(len(set.middles))], ctx),
	}
	// younger children get the short version
	if req.Age >= 6 {
		parts = append(parts, g.render(set.middles[g.intn(len(set.middles))], ctx))
	}
	parts = append(parts, g.render(set.closings[g.intn(len(set.closings))], ctx))

	return &Story{
		Title: set.title,
		Text:  strings.Join(parts, " "),
		Theme: theme,
		Tone:  speech.ToneCalm,
	}, nil
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

func (g *Generator) render(tmpl string, ctx storyContext) string {
	t, err := template.New("part").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return tmpl
	}
	return buf.String()
}
