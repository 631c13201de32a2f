// Package session plays a downloaded lesson as a shadowing session.
//
// Each sentence is played once per configured voice and repeat. After every
// clip the scheduler stays silent for the clip's length times the follow
// delay ratio so the learner can repeat it aloud. Playback can be paused,
// resumed and moved one sentence at a time.
package session
