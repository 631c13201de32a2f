package sessions

import (
	"time"
)

// Session is the metadata row of one practice session. The row is created
// the first time a lesson is downloaded or played and completed when
// playback finishes.
type Session struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Title          string `gorm:"not null"`
	Description    string
	LessonDate     string
	RawLesson      []byte `gorm:"type:blob"` // zstd-compressed lesson JSON
	SentenceCount  int
	CompletedAt    *time.Time `gorm:"index"`
	TotalSentences *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the table name.
func (Session) TableName() string {
	return "sessions"
}

// Completed reports whether playback of the session ran to the end.
func (s *Session) Completed() bool {
	return s.CompletedAt != nil
}
