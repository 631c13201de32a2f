// Package sessions persists practice session metadata in SQLite.
package sessions
