package speech

import (
	"context"
	"strings"
	"time"
)

// Operation identifies which speech capability a request exercises.
type Operation string

const (
	// OpTranscription converts recorded child speech to text.
	OpTranscription Operation = "transcription"
	// OpSynthesis converts a reply text to spoken audio.
	OpSynthesis Operation = "synthesis"
)

// Tone is the emotional coloring applied to synthesized speech.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneHappy   Tone = "happy"
	ToneSad     Tone = "sad"
	ToneExcited Tone = "excited"
	ToneCalm    Tone = "calm"
)

// Request is the value object handed to the router and to providers.
// Exactly one payload is meaningful per operation: Audio for
// transcription, Text/Tone for synthesis.
type Request struct {
	Operation Operation `json:"operation"`

	// Transcription payload
	Audio []byte `json:"-"`

	// Synthesis payload
	Text string `json:"text,omitempty"`
	Tone Tone   `json:"tone,omitempty"`

	Language  string `json:"language,omitempty"` // ISO-639-1 code
	SessionID string `json:"session_id,omitempty"`

	// CacheKey optionally overrides the computed fingerprint.
	CacheKey string `json:"-"`
}

// Result is the uniform provider response.
type Result struct {
	Provider  string    `json:"provider"`
	Operation Operation `json:"operation"`

	// Transcription output
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Synthesis output
	Audio  []byte `json:"audio,omitempty"`
	Format string `json:"format,omitempty"` // mp3, wav, pcm

	Cached    bool      `json:"cached,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Descriptor describes a registered provider. Availability is the only
// mutable field and is flipped through Registry.SetAvailability.
type Descriptor struct {
	Name       string      `json:"name"`
	Kind       string      `json:"kind"` // e.g. "whisper", "azure", "elevenlabs", "offline"
	Priority   int         `json:"priority"`
	Available  bool        `json:"available"`
	Operations []Operation `json:"operations"`
}

// Supports reports whether the descriptor covers op.
func (d Descriptor) Supports(op Operation) bool {
	for _, o := range d.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Provider is the uniform execute contract every speech backend satisfies.
// Implementations are opaque to the router; they receive the request and
// either return a result or fail.
type Provider interface {
	// Name returns the provider name, unique within a registry.
	Name() string

	// Execute performs the requested operation.
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// CleanTranscript normalizes a raw transcript before it is cached or
// returned: collapses whitespace and normalizes the Arabic hamza forms
// the upstream recognizers disagree on.
func CleanTranscript(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "إ", "ا")
	return strings.TrimSpace(text)
}
