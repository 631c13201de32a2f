// Package automation starts a practice session without user input.
//
// A trigger (an auto-start flag plus a lesson reference) is waited on
// until credentials, the voice catalog and the lesson are all available.
// The lesson is then downloaded and played, and the trigger is cleared so
// it fires only once.
package automation
