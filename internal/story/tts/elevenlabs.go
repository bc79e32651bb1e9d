package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chayabot/internal/audio"
	"chayabot/internal/config"
	"chayabot/internal/domain/story"

	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

type ElevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ElevenLabsSynthesizer struct {
	cfg    config.ElevenLabsConfig
	client *http.Client
	store  *audio.Store
}

func NewElevenLabsSynthesizer(cfg config.ElevenLabsConfig, client *http.Client, store *audio.Store) *ElevenLabsSynthesizer {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &ElevenLabsSynthesizer{
		cfg:    cfg,
		client: client,
		store:  store,
	}
}

func (e *ElevenLabsSynthesizer) Endpoint() string {
	return fmt.Sprintf("%s/v1/text-to-speech/%s", e.cfg.BaseURL, e.cfg.VoiceID)
}

func (e *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, credential string) (*audio.Handle, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, story.ErrMissingCredential
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text to synthesize", story.ErrSynthesisFailed)
	}

	req, err := e.newRequest(ctx, text, credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", story.ErrSynthesisFailed, err)
	}

	log := logrus.WithFields(logrus.Fields{
		"provider": EngineTypeElevenLabs,
		"voice_id": e.cfg.VoiceID,
		"chars":    len([]rune(text)),
	})
	log.Debug("Requesting speech synthesis")
	started := time.Now()

	resp, err := e.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("Speech synthesis request failed")
		return nil, fmt.Errorf("%w: %v", story.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithField("status", resp.StatusCode).Warn("Speech synthesis returned non-success status")
		return nil, &StatusError{
			Provider:   EngineTypeElevenLabs.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
			cause:      story.ErrSynthesisFailed,
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio: %v", story.ErrSynthesisFailed, err)
	}

	handle, err := e.store.Put(payload, audio.FormatMP3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", story.ErrSynthesisFailed, err)
	}

	log.WithFields(logrus.Fields{
		"bytes":    len(payload),
		"duration": time.Since(started).Round(time.Millisecond),
	}).Info("Speech synthesis completed")
	return handle, nil
}

func (e *ElevenLabsSynthesizer) newRequest(ctx context.Context, text, credential string) (*http.Request, error) {
	body := ElevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.ModelID,
		VoiceSettings: VoiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.SimilarityBoost,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", credential)
	return req, nil
}
