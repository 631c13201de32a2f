// Package cache provides the persistent audio store used for synthesized
// speech.
//
// The store has two collections. The global collection is content
// addressed: each clip is keyed by the Fingerprint of the parameters that
// produced it and is shared by every lesson. The session collection binds
// a clip to one playback slot (session, sentence, voice, settings) and is
// what the player reads. Both are directories of atomically replaced
// records on disk, fronted by an in-memory LRU (L1). Nothing expires;
// records are removed only by explicit deletion.
package cache
