package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chayabot/internal/audio"
	"chayabot/internal/config"
	"chayabot/internal/domain/story"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// googleMaxChars is a little under the 5000 byte request limit.
const googleMaxChars = 4800

// GoogleSynthesizer uses Google Cloud Text-to-Speech with the session
// credential as an API key.
type GoogleSynthesizer struct {
	cfg   config.GoogleConfig
	store *audio.Store
	dial  func(ctx context.Context, credential string) (speechClient, error)
}

type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

type googleClient struct {
	*texttospeech.Client
}

func (c googleClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	return c.Client.SynthesizeSpeech(ctx, req)
}

func NewGoogleSynthesizer(cfg config.GoogleConfig, store *audio.Store) *GoogleSynthesizer {
	return &GoogleSynthesizer{
		cfg:   cfg,
		store: store,
		dial: func(ctx context.Context, credential string) (speechClient, error) {
			client, err := texttospeech.NewClient(ctx, option.WithAPIKey(credential))
			if err != nil {
				return nil, err
			}
			return googleClient{client}, nil
		},
	}
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text, credential string) (*audio.Handle, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, story.ErrMissingCredential
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text to synthesize", story.ErrSynthesisFailed)
	}
	if n := len([]rune(text)); n > googleMaxChars {
		return nil, fmt.Errorf("%w: text of %d characters exceeds the %d character limit", story.ErrSynthesisFailed, n, googleMaxChars)
	}

	client, err := g.dial(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create TTS client: %v", story.ErrSynthesisFailed, err)
	}
	defer client.Close()

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.cfg.LanguageCode,
			Name:         g.cfg.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	started := time.Now()
	resp, err := client.SynthesizeSpeech(ctx, req)
	if err != nil {
		logrus.WithError(err).WithField("provider", EngineTypeGoogle).Warn("Speech synthesis request failed")
		return nil, fmt.Errorf("%w: %v", story.ErrSynthesisFailed, err)
	}

	handle, err := g.store.Put(resp.AudioContent, audio.FormatMP3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", story.ErrSynthesisFailed, err)
	}

	logrus.WithFields(logrus.Fields{
		"provider": EngineTypeGoogle,
		"voice":    g.cfg.Voice,
		"bytes":    len(resp.AudioContent),
		"duration": time.Since(started).Round(time.Millisecond),
	}).Info("Speech synthesis completed")
	return handle, nil
}
