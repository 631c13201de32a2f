// Package voice holds the voice preset registry, applied voice actors and
// saved session presets.
package voice
