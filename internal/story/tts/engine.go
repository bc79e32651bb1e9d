package tts

import (
	"fmt"
	"net/http"

	"chayabot/internal/audio"
	"chayabot/internal/config"
)

type EngineType string

const (
	EngineTypeMock       EngineType = "mock"
	EngineTypeElevenLabs EngineType = "elevenlabs"
	EngineTypeGoogle     EngineType = "google"
)

func (e EngineType) String() string {
	return string(e)
}

// NewSynthesizer builds the synthesizer selected by cfg.TTSType.
func NewSynthesizer(cfg *config.Config, store *audio.Store) (Synthesizer, error) {
	switch EngineType(cfg.TTSType) {
	case EngineTypeElevenLabs, "":
		return NewElevenLabsSynthesizer(cfg.ElevenLabs, &http.Client{Timeout: cfg.Timeout}, store), nil

	case EngineTypeGoogle:
		return NewGoogleSynthesizer(cfg.Google, store), nil

	case EngineTypeMock:
		return NewMockSynthesizer(store), nil

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", cfg.TTSType)
	}
}

// AvailableEngines lists the engine names accepted by tts.type.
func AvailableEngines() []EngineType {
	return []EngineType{EngineTypeElevenLabs, EngineTypeGoogle, EngineTypeMock}
}
