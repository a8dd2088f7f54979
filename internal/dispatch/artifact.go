package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
)

// ArtifactKey derives the audio-cache key for a script. Identical text and
// voice synthesize identical audio, so the hash addresses reusable output.
func ArtifactKey(s Script) string {
	h := sha256.Sum256([]byte(s.VoiceID + "\x00" + s.Text))
	return hex.EncodeToString(h[:])
}
