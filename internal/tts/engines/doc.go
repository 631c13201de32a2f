// Package engines provides synthesis providers.
//
// ElevenLabsEngine calls the ElevenLabs HTTP API and is paced by a token
// bucket so a long lesson does not exceed the account's request quota.
// MockEngine needs no network and returns silent WAV clips sized to the
// text, which keeps downloads and playback testable offline.
package engines
