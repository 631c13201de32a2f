package cache

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// Params is the full set of inputs that affect synthesized audio. Two
// requests with equal Params must share one cached asset.
type Params struct {
	Text            string
	VoiceID         string
	ModelID         string
	Speed           float64
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// Fingerprint returns the content address of p.
func (p Params) Fingerprint() string {
	return Fingerprint(p.Text, p.VoiceID, p.Speed, p.Stability, p.SimilarityBoost, p.ModelID, p.Style, p.SpeakerBoost)
}

// Fingerprint derives the global cache key for a synthesis request.
//
// The text is reduced to a 32-bit rolling hash; every other parameter is
// appended verbatim so that a text hash collision can only alias requests
// that agree on voice, model and settings. The format is
//
//	ga_<hash>_<voice>_<speed>_<stability>_<similarity>_<model>_<style>_<boost>
//
// Existing caches are keyed by this format; it must not change.
func Fingerprint(text, voiceID string, speed, stability, similarityBoost float64, modelID string, style float64, speakerBoost bool) string {
	var b strings.Builder
	b.Grow(len(voiceID) + len(modelID) + 64)
	b.WriteString("ga_")
	b.WriteString(strconv.FormatInt(int64(TextHash(text)), 10))
	for _, part := range []string{
		voiceID,
		formatNumber(speed),
		formatNumber(stability),
		formatNumber(similarityBoost),
		modelID,
		formatNumber(style),
		strconv.FormatBool(speakerBoost),
	} {
		b.WriteByte('_')
		b.WriteString(part)
	}
	return b.String()
}

// TextHash is the 31-multiplier string hash over UTF-16 code units,
// wrapping at 32 bits. The empty string hashes to 0.
func TextHash(text string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = h*31 + int32(c)
	}
	return h
}

// BindingKey derives the session binding key for one playback slot. The
// scheduler recomputes it from the current sentence and voice at play time.
func BindingKey(sessionID uint, sentenceIndex int, voiceID, modelID string, speed, stability, similarityBoost float64) string {
	return strings.Join([]string{
		strconv.FormatUint(uint64(sessionID), 10),
		strconv.Itoa(sentenceIndex),
		voiceID,
		modelID,
		formatNumber(speed),
		formatNumber(stability),
		formatNumber(similarityBoost),
	}, "_")
}

// formatNumber prints the shortest decimal that round-trips, so 1.0 is
// "1" and 0.50 is "0.5".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
