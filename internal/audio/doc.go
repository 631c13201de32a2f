// Package audio decodes synthesized clips and plays them through oto/v3.
// Player and MockPlayer share a play-and-await contract: Play returns a
// channel that closes when the clip has been heard to the end.
package audio
