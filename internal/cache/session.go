package cache

import (
	"context"
	"sort"
)

// SessionSummary aggregates the bindings stored for one session.
type SessionSummary struct {
	SessionID uint
	Bindings  int
	Bytes     int64
}

// ListSessionBindings returns the bindings of one session ordered by
// sentence index and voice.
func (s *Store) ListSessionBindings(ctx context.Context, sessionID uint) ([]SessionBinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []SessionBinding
	err := s.bindings.disk.Walk(func(_ string, b *SessionBinding) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.SessionID == sessionID {
			out = append(out, *b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SentenceIndex != out[j].SentenceIndex {
			return out[i].SentenceIndex < out[j].SentenceIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteSessionBindings removes every binding of one session and returns
// how many were removed.
func (s *Store) DeleteSessionBindings(ctx context.Context, sessionID uint) (int, error) {
	bindings, err := s.ListSessionBindings(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	s.bindings.mem.DeleteFunc(func(b *SessionBinding) bool {
		return b.SessionID == sessionID
	})
	for _, b := range bindings {
		if err := s.bindings.disk.Delete(b.ID); err != nil {
			return 0, err
		}
	}
	return len(bindings), nil
}

// SessionSummaries groups stored bindings by session.
func (s *Store) SessionSummaries(ctx context.Context) ([]SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byID := make(map[uint]*SessionSummary)
	err := s.bindings.disk.Walk(func(_ string, b *SessionBinding) error {
		sum, ok := byID[b.SessionID]
		if !ok {
			sum = &SessionSummary{SessionID: b.SessionID}
			byID[b.SessionID] = sum
		}
		sum.Bindings++
		sum.Bytes += b.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}
