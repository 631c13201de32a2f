// Package download populates the audio cache for a lesson ahead of
// playback.
package download
