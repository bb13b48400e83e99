package cache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestTranscriptionKey(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAB}, 2048)

	k1 := TranscriptionKey(audio, "ar")
	k2 := TranscriptionKey(audio, "ar")
	assert.Equal(t, k1, k2, "identical input must fingerprint identically")

	assert.NotEqual(t, k1, TranscriptionKey(audio, "en"), "language is part of the fingerprint")

	// payloads differing only beyond the hashed prefix still differ in length
	longer := append(append([]byte{}, audio...), 0xCD)
	assert.NotEqual(t, k1, TranscriptionKey(longer, "ar"))

	assert.Contains(t, k1, "stt:")
}

func TestSynthesisKey(t *testing.T) {
	k := SynthesisKey("hello little one", "happy", "en")
	assert.Equal(t, k, SynthesisKey("hello little one", "happy", "en"))

	assert.NotEqual(t, k, SynthesisKey("hello little one", "calm", "en"))
	assert.NotEqual(t, k, SynthesisKey("hello little one", "happy", "ar"))
	assert.NotEqual(t, k, SynthesisKey("goodnight", "happy", "en"))
	assert.Contains(t, k, "tts:")
}

// Field-boundary ambiguity: concatenations that read the same across the
// tuple must not collide.
func TestSynthesisKey_FieldBoundaries(t *testing.T) {
	assert.NotEqual(t,
		SynthesisKey("ab", "c", "en"),
		SynthesisKey("a", "bc", "en"),
	)
}

func TestSynthesisKey_Deterministic_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		tone := rapid.SampledFrom([]string{"neutral", "happy", "sad", "excited", "calm"}).Draw(t, "tone")
		lang := rapid.SampledFrom([]string{"ar", "en", "fr"}).Draw(t, "lang")

		k1 := SynthesisKey(text, tone, lang)
		k2 := SynthesisKey(text, tone, lang)
		if k1 != k2 {
			t.Fatalf("fingerprint not deterministic: %q vs %q", k1, k2)
		}

		otherText := rapid.String().Draw(t, "otherText")
		if otherText != text && SynthesisKey(otherText, tone, lang) == k1 {
			t.Fatalf("distinct texts collided: %q / %q", text, otherText)
		}
	})
}

func TestTranscriptionKey_PrefixBound_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 4096).Draw(t, "len")
		audio := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "audio")

		k1 := TranscriptionKey(audio, "ar")
		k2 := TranscriptionKey(append([]byte{}, audio...), "ar")
		if k1 != k2 {
			t.Fatalf("fingerprint not deterministic for same payload")
		}
	})
}
