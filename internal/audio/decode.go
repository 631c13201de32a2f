package audio

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// ErrUnknownFormat is returned for bytes that are neither WAV nor MP3.
var ErrUnknownFormat = errors.New("unrecognized audio format")

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// IsMP3 accepts an ID3 tag or an MPEG frame sync.
func IsMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// Decode opens an encoded clip as a seekable PCM stream.
func Decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	switch {
	case IsWAV(data):
		return wav.Decode(bytes.NewReader(data))
	case IsMP3(data):
		return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, beep.Format{}, ErrUnknownFormat
	}
}

// Duration measures the playback length of an encoded clip.
func Duration(data []byte) (time.Duration, error) {
	streamer, format, err := Decode(data)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	if format.SampleRate <= 0 {
		return 0, ErrUnknownFormat
	}
	return format.SampleRate.D(streamer.Len()), nil
}
