package automation

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Query parameters recognized in a trigger.
const (
	ParamAutoStart = "autoStart"
	ParamLesson    = "sessionUrl"
)

// ErrNoTrigger is returned when the auto-start flag is not set.
var ErrNoTrigger = errors.New("auto-start is not requested")

// Trigger is a parsed auto-start request.
type Trigger struct {
	AutoStart bool
	// LessonRef is a lesson path or URL.
	LessonRef string
}

// Active reports whether the trigger should start a session.
func (t Trigger) Active() bool {
	return t.AutoStart && t.LessonRef != ""
}

// ParseTrigger reads the trigger parameters from a URL or a bare query
// string such as "autoStart=true&sessionUrl=lessons/day1.json".
func ParseTrigger(raw string) (Trigger, error) {
	q, err := query(raw)
	if err != nil {
		return Trigger{}, err
	}
	t := Trigger{LessonRef: strings.TrimSpace(q.Get(ParamLesson))}
	if v := q.Get(ParamAutoStart); v != "" {
		t.AutoStart, err = strconv.ParseBool(v)
		if err != nil {
			return Trigger{}, fmt.Errorf("invalid %s value %q", ParamAutoStart, v)
		}
	}
	return t, nil
}

func query(raw string) (url.Values, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger url: %w", err)
		}
		return u.Query(), nil
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid trigger query: %w", err)
	}
	return q, nil
}

// strip removes the trigger parameters and returns what remains.
func strip(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.IndexByte(raw, '?') >= 0 {
		u, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		q := u.Query()
		q.Del(ParamAutoStart)
		q.Del(ParamLesson)
		u.RawQuery = q.Encode()
		if u.RawQuery == "" && u.Scheme == "" && u.Host == "" && u.Path == "" {
			return "", nil
		}
		return u.String(), nil
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", err
	}
	q.Del(ParamAutoStart)
	q.Del(ParamLesson)
	return q.Encode(), nil
}

// TriggerStore keeps a pending trigger on disk so it survives restarts
// until a run consumes it.
type TriggerStore struct {
	path string
}

// NewTriggerStore returns a store backed by the file at path, usually
// <data dir>/autostart.url.
func NewTriggerStore(path string) *TriggerStore {
	return &TriggerStore{path: path}
}

// Path returns the backing file.
func (s *TriggerStore) Path() string { return s.path }

// Save records raw as the pending trigger.
func (s *TriggerStore) Save(raw string) error {
	if _, err := ParseTrigger(raw); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(strings.TrimSpace(raw)+"\n"), 0o600)
}

// Load returns the pending trigger. ok is false when none is stored.
func (s *TriggerStore) Load() (t Trigger, raw string, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Trigger{}, "", false, nil
		}
		return Trigger{}, "", false, err
	}
	raw = strings.TrimSpace(string(data))
	if raw == "" {
		return Trigger{}, "", false, nil
	}
	t, err = ParseTrigger(raw)
	return t, raw, err == nil, err
}

// Clear removes the trigger parameters from the stored reference. Other
// parameters are kept; the file is removed once nothing is left.
func (s *TriggerStore) Clear() error {
	_, raw, ok, err := s.Load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	rest, err := strip(raw)
	if err != nil {
		return err
	}
	if rest == "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return os.WriteFile(s.path, []byte(rest+"\n"), 0o600)
}
