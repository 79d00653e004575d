// Package elevenlabs transcribes recorded audio with the ElevenLabs
// speech-to-text API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"codelevels/internal/ports"
)

const (
	defaultBaseURL  = "https://api.elevenlabs.io"
	defaultModel    = "scribe_v1"
	defaultLanguage = "eng"
	defaultTimeout  = 60 * time.Second

	speechToTextPath = "/v1/speech-to-text"
	maxErrorBody     = 4 << 10
)

// ErrEmptyAudio is returned when Transcribe is called without audio bytes.
var ErrEmptyAudio = errors.New("elevenlabs: empty audio")

// APIError reports a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("elevenlabs: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("elevenlabs: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config configures a Transcriber.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	LanguageCode string
	// TagAudioEvents and Diarize are sent as-is; New enables both.
	TagAudioEvents bool
	Diarize        bool
	HTTPClient     *http.Client
}

// Transcriber implements ports.Transcriber.
type Transcriber struct {
	cfg    Config
	client *http.Client
}

var _ ports.Transcriber = (*Transcriber)(nil)

// New builds a Transcriber with scribe_v1, English, audio-event tagging and
// diarization unless cfg overrides the model or language.
func New(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: api key must be provided")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = defaultLanguage
	}
	cfg.TagAudioEvents = true
	cfg.Diarize = true

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Transcriber{cfg: cfg, client: client}, nil
}

type transcriptionResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

// Transcribe uploads audio and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	body, contentType, err := t.encodeForm(audio)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+speechToTextPath, body)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("xi-api-key", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var decoded transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("elevenlabs: decode response: %w", err)
	}
	return strings.TrimSpace(decoded.Text), nil
}

func (t *Transcriber) encodeForm(audio []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	mtype := mimetype.Detect(audio)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="recording%s"`, mtype.Extension()))
	header.Set("Content-Type", mtype.String())

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("elevenlabs: create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("elevenlabs: write audio: %w", err)
	}

	fields := [][2]string{
		{"model_id", t.cfg.Model},
		{"language_code", t.cfg.LanguageCode},
		{"tag_audio_events", strconv.FormatBool(t.cfg.TagAudioEvents)},
		{"diarize", strconv.FormatBool(t.cfg.Diarize)},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("elevenlabs: write field %s: %w", field[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("elevenlabs: close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
