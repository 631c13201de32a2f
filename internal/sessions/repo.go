package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"gorm.io/gorm"

	"github.com/dgnsrekt/shadow/internal/lesson"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// Repo stores session metadata.
type Repo interface {
	Create(ctx context.Context, tx *gorm.DB, l *lesson.Lesson) (*Session, error)
	Get(ctx context.Context, tx *gorm.DB, id uint) (*Session, error)
	List(ctx context.Context, tx *gorm.DB) ([]*Session, error)
	Complete(ctx context.Context, tx *gorm.DB, id uint, completedAt time.Time, totalSentences int) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	Lesson(ctx context.Context, tx *gorm.DB, id uint) (*lesson.Lesson, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *log.Logger

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewRepo returns a Repo backed by db.
func NewRepo(db *gorm.DB, baseLog *log.Logger) (Repo, error) {
	if baseLog == nil {
		baseLog = log.Default()
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &sessionRepo{
		db:      db,
		log:     baseLog.With("repo", "SessionRepo"),
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (r *sessionRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, l *lesson.Lesson) (*Session, error) {
	raw, err := l.Encode()
	if err != nil {
		return nil, fmt.Errorf("unable to encode lesson: %w", err)
	}

	row := &Session{
		Title:         l.Title,
		Description:   l.Description,
		LessonDate:    l.CreatedAt,
		RawLesson:     r.encoder.EncodeAll(raw, nil),
		SentenceCount: l.Len(),
	}
	if err := r.tx(tx).WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	r.log.Debug("session created", "id", row.ID, "title", row.Title)
	return row, nil
}

func (r *sessionRepo) Get(ctx context.Context, tx *gorm.DB, id uint) (*Session, error) {
	var row Session
	err := r.tx(tx).WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *sessionRepo) List(ctx context.Context, tx *gorm.DB) ([]*Session, error) {
	var rows []*Session
	if err := r.tx(tx).WithContext(ctx).
		Omit("raw_lesson").
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sessionRepo) Complete(ctx context.Context, tx *gorm.DB, id uint, completedAt time.Time, totalSentences int) error {
	res := r.tx(tx).WithContext(ctx).
		Model(&Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"completed_at":    completedAt,
			"total_sentences": totalSentences,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	res := r.tx(tx).WithContext(ctx).Delete(&Session{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) Lesson(ctx context.Context, tx *gorm.DB, id uint) (*lesson.Lesson, error) {
	row, err := r.Get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	raw, err := r.decoder.DecodeAll(row.RawLesson, nil)
	if err != nil {
		return nil, fmt.Errorf("stored lesson is corrupted: %w", err)
	}
	return lesson.Parse(raw)
}
