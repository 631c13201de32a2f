package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/shadow/internal/tts"
	"github.com/dgnsrekt/shadow/internal/voice"
)

// DefaultBaseURL is the public ElevenLabs API endpoint.
const DefaultBaseURL = "https://api.elevenlabs.io"

// DefaultMaxAudioBytes bounds a single synthesized clip.
const DefaultMaxAudioBytes = 32 << 20

// ElevenLabsEngine implements tts.Provider over the ElevenLabs HTTP API.
type ElevenLabsEngine struct {
	apiKey       string
	baseURL      string
	outputFormat string
	maxAudio     int64
	client       *http.Client
	logger       *log.Logger

	// Rate limiting to stay under the account's request quota
	rateLimiter *rate.Limiter
}

// ElevenLabsConfig holds configuration for the ElevenLabs engine.
type ElevenLabsConfig struct {
	// APIKey is sent as the xi-api-key header. Required.
	APIKey string

	// BaseURL overrides the API endpoint - defaults to DefaultBaseURL
	BaseURL string

	// OutputFormat selects the returned encoding - defaults to mp3_44100_128
	OutputFormat string

	// Timeout for a single HTTP request - defaults to 60s
	Timeout time.Duration

	// Rate limit requests per minute (defaults to 120)
	RequestsPerMinute int

	// MaxAudioBytes rejects larger responses - defaults to DefaultMaxAudioBytes
	MaxAudioBytes int64

	Logger *log.Logger
}

// NewElevenLabsEngine creates a new ElevenLabs engine.
func NewElevenLabsEngine(config ElevenLabsConfig) (*ElevenLabsEngine, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, tts.ErrNoAPIKey
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "mp3_44100_128"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 120
	}
	if config.MaxAudioBytes <= 0 {
		config.MaxAudioBytes = DefaultMaxAudioBytes
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &ElevenLabsEngine{
		apiKey:       config.APIKey,
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		outputFormat: config.OutputFormat,
		maxAudio:     config.MaxAudioBytes,
		client:       &http.Client{Timeout: config.Timeout},
		logger:       config.Logger,
		rateLimiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}, nil
}

type voiceSettingsBody struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type synthesizeBody struct {
	Text          string            `json:"text"`
	ModelID       string            `json:"model_id"`
	VoiceSettings voiceSettingsBody `json:"voice_settings"`
}

// Synthesize converts text to MP3 audio.
func (e *ElevenLabsEngine) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(synthesizeBody{
		Text:    req.Text,
		ModelID: req.ModelID,
		VoiceSettings: voiceSettingsBody{
			Stability:       req.Settings.Stability,
			SimilarityBoost: req.Settings.SimilarityBoost,
			Style:           req.Settings.Style,
			UseSpeakerBoost: req.Settings.SpeakerBoost,
			Speed:           req.Settings.Speed,
		},
	})
	if err != nil {
		return nil, tts.Generic("unable to encode request", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", e.baseURL, req.VoiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, tts.Generic("unable to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, tts.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, e.maxAudio+1))
	if err != nil {
		return nil, tts.Generic("unable to read audio", err)
	}
	if int64(len(audio)) > e.maxAudio {
		return nil, tts.Generic(fmt.Sprintf("audio exceeds %d bytes", e.maxAudio), nil)
	}
	e.logger.Debug("elevenlabs synthesized", "voice", req.VoiceID, "model", req.ModelID, "bytes", len(audio))
	return audio, nil
}

type voicesResponse struct {
	Voices []struct {
		VoiceID     string            `json:"voice_id"`
		Name        string            `json:"name"`
		Category    string            `json:"category"`
		Description string            `json:"description"`
		Labels      map[string]string `json:"labels"`
	} `json:"voices"`
}

// Voices lists the voices visible to the API key.
func (e *ElevenLabsEngine) Voices(ctx context.Context) ([]voice.Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v2/voices?page_size=100", nil)
	if err != nil {
		return nil, tts.Generic("unable to build request", err)
	}
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var decoded voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, tts.Generic("unable to decode voice list", err)
	}

	voices := make([]voice.Voice, 0, len(decoded.Voices))
	for _, v := range decoded.Voices {
		voices = append(voices, voice.Voice{
			VoiceID:     v.VoiceID,
			Name:        v.Name,
			Category:    v.Category,
			Description: v.Description,
			Labels:      v.Labels,
		})
	}
	return voices, nil
}

// Info returns engine capabilities.
func (e *ElevenLabsEngine) Info() tts.ProviderInfo {
	return tts.ProviderInfo{
		Name:     string(tts.EngineElevenLabs),
		Format:   "mp3",
		IsOnline: true,
	}
}

// apiError turns a non-200 response into a classified error. The API
// reports failures as {"detail": {"status": "...", "message": "..."}} or
// {"detail": "..."}.
func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && len(body.Detail) > 0 {
		var detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		var text string
		switch {
		case json.Unmarshal(body.Detail, &detail) == nil && detail.Message != "":
			message = detail.Message
			if detail.Status != "" {
				message = detail.Status + ": " + detail.Message
			}
		case json.Unmarshal(body.Detail, &text) == nil:
			message = text
		}
	}
	if message == "" {
		message = resp.Status
	}
	return tts.NewSynthesisError(resp.StatusCode, message, nil)
}
