package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type ElevenLabsConfig struct {
	BaseURL         string
	APIKey          string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}

type GoogleConfig struct {
	LanguageCode string
	Voice        string
}

type Config struct {
	TTSType    string
	ElevenLabs ElevenLabsConfig
	Google     GoogleConfig
	Timeout    time.Duration
	Workers    int
	AudioDir   string
	LogLevel   string
}

func SetDefaults() {
	viper.SetDefault("tts.type", "elevenlabs")

	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("elevenlabs.voice_id", "9BWtsMINqrJLrRacOk9x")
	viper.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")
	viper.SetDefault("elevenlabs.stability", 0.5)
	viper.SetDefault("elevenlabs.similarity_boost", 0.5)
	viper.SetDefault("elevenlabs.api_key", "")

	viper.SetDefault("google.language_code", "en-US")
	viper.SetDefault("google.voice", "en-US-Chirp3-HD-Charon")

	viper.SetDefault("generation.timeout", 60*time.Second)
	viper.SetDefault("generation.workers", 4)
	viper.SetDefault("audio.dir", "")
	viper.SetDefault("log.level", "info")
}

// Init wires the config file search path, .env loading and environment
// overrides. A missing config file is not an error.
func Init() {
	// .env is optional
	_ = godotenv.Load()

	SetDefaults()

	viper.SetConfigName("chayabot")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.chayabot")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("chayabot")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("elevenlabs.api_key", "CHAYABOT_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Warn("Failed to read config file, using defaults")
		}
	}
}

// Load snapshots the current viper settings into a Config.
func Load() (*Config, error) {
	cfg := &Config{
		TTSType: strings.ToLower(strings.TrimSpace(viper.GetString("tts.type"))),
		ElevenLabs: ElevenLabsConfig{
			BaseURL:         strings.TrimRight(viper.GetString("elevenlabs.base_url"), "/"),
			APIKey:          viper.GetString("elevenlabs.api_key"),
			VoiceID:         viper.GetString("elevenlabs.voice_id"),
			ModelID:         viper.GetString("elevenlabs.model_id"),
			Stability:       viper.GetFloat64("elevenlabs.stability"),
			SimilarityBoost: viper.GetFloat64("elevenlabs.similarity_boost"),
		},
		Google: GoogleConfig{
			LanguageCode: viper.GetString("google.language_code"),
			Voice:        viper.GetString("google.voice"),
		},
		Timeout:  viper.GetDuration("generation.timeout"),
		Workers:  viper.GetInt("generation.workers"),
		AudioDir: viper.GetString("audio.dir"),
		LogLevel: viper.GetString("log.level"),
	}

	if cfg.ElevenLabs.BaseURL == "" {
		return nil, fmt.Errorf("elevenlabs.base_url must be set")
	}
	if cfg.ElevenLabs.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs.voice_id must be set")
	}
	if cfg.ElevenLabs.ModelID == "" {
		return nil, fmt.Errorf("elevenlabs.model_id must be set")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("generation.timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// ConfigureLogging applies log.level to the global logrus logger.
func ConfigureLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).WithField("level", cfg.LogLevel).Warn("Unknown log level, keeping info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
