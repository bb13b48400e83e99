package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// audioPrefixBytes bounds how much of the payload feeds the transcription
// fingerprint. Hashing whole recordings costs more than the cache saves;
// the opening of an utterance plus its length is distinctive enough.
const audioPrefixBytes = 1024

// TranscriptionKey fingerprints a transcription request from a bounded
// prefix of the audio payload, its total length, and the language.
// Deterministic for identical inputs.
func TranscriptionKey(audio []byte, language string) string {
	h := sha256.New()
	prefix := audio
	if len(prefix) > audioPrefixBytes {
		prefix = prefix[:audioPrefixBytes]
	}
	h.Write(prefix)
	h.Write([]byte{0})
	h.Write(lenBytes(len(audio)))
	h.Write([]byte{0})
	h.Write([]byte(language))
	return "stt:" + hex.EncodeToString(h.Sum(nil)[:16])
}

// SynthesisKey fingerprints a synthesis request from the exact
// (text, tone, language) tuple.
func SynthesisKey(text, tone, language string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(tone))
	h.Write([]byte{0})
	h.Write([]byte(language))
	return "tts:" + hex.EncodeToString(h.Sum(nil)[:16])
}

func lenBytes(n int) []byte {
	return []byte{
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
	}
}
