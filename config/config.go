package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Application paths
	LogDir string `yaml:"log_dir"`
	Debug  bool   `yaml:"debug"`

	// Overall per-request deadline for the whole pipeline.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	OpenAI    OpenAIConfig    `yaml:"openai"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Captions  CaptionsConfig  `yaml:"captions"`
	Summary   SummaryConfig   `yaml:"summary"`
}

type OpenAIConfig struct {
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	WhisperModel string  `yaml:"whisper_model"`
	Temperature  float64 `yaml:"temperature"`
}

type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// RateLimitConfig throttles aggregate outbound calls to the video platform,
// shared across concurrent requests.
type RateLimitConfig struct {
	Interval time.Duration `yaml:"interval"`
	Burst    int           `yaml:"burst"`
}

type CaptionsConfig struct {
	// Languages is the default preference order when the caller gives none.
	Languages []string `yaml:"languages"`

	// MaxAttempts caps retries of a single strategy on transient failures.
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`

	// EnableAudioFallback gates the slow download-and-transcribe tier.
	EnableAudioFallback bool          `yaml:"enable_audio_fallback"`
	YTDLPPath           string        `yaml:"ytdlp_path"`
	TempDir             string        `yaml:"temp_dir"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
}

type SummaryConfig struct {
	// MaxInputChars is the largest text summarized in a single call;
	// longer inputs go through the map-reduce path.
	MaxInputChars int `yaml:"max_input_chars"`
	// MaxChunkChars bounds each map-phase chunk.
	MaxChunkChars int `yaml:"max_chunk_chars"`
	// ChunkRetries is how many extra attempts a failed call gets.
	ChunkRetries int `yaml:"chunk_retries"`
	// Concurrency bounds parallel map-phase calls; 1 means sequential.
	Concurrency       int `yaml:"concurrency"`
	MaxRecursionDepth int `yaml:"max_recursion_depth"`
	MaxOutputTokens   int `yaml:"max_output_tokens"`
}

// Load builds the configuration from defaults, an optional YAML file
// (CONFIG_FILE or ./ytbrief.yaml), then environment overrides.
func Load() (*Config, error) {
	cfg := defaults()

	if path := findConfigFile(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
		logrus.WithField("path", path).Info("Loaded config file")
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		LogDir:         "./logs",
		RequestTimeout: 10 * time.Minute,
		OpenAI: OpenAIConfig{
			Model:        "gpt-4o-mini",
			WhisperModel: "whisper-1",
			Temperature:  0.7,
		},
		Cache: CacheConfig{
			Path: "./data/transcripts.db",
			TTL:  6 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Interval: 1 * time.Second,
			Burst:    5,
		},
		Captions: CaptionsConfig{
			Languages:           []string{"en", "en-US", "en-GB"},
			MaxAttempts:         3,
			InitialBackoff:      2 * time.Second,
			MaxBackoff:          30 * time.Second,
			EnableAudioFallback: true,
			YTDLPPath:           "yt-dlp",
			TempDir:             os.TempDir(),
			HTTPTimeout:         30 * time.Second,
		},
		Summary: SummaryConfig{
			MaxInputChars:     160000,
			MaxChunkChars:     12000,
			ChunkRetries:      2,
			Concurrency:       3,
			MaxRecursionDepth: 2,
			MaxOutputTokens:   4000,
		},
	}
}

func findConfigFile() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	if _, err := os.Stat("ytbrief.yaml"); err == nil {
		return "ytbrief.yaml"
	}
	return ""
}

func applyEnv(cfg *Config) {
	cfg.LogDir = GetEnv("LOG_DIR", cfg.LogDir)
	cfg.Debug = getEnvAsBool("DEBUG", cfg.Debug)
	cfg.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.OpenAI.APIKey = GetEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.Model = GetEnv("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.WhisperModel = GetEnv("WHISPER_MODEL", cfg.OpenAI.WhisperModel)

	cfg.Cache.Path = GetEnv("CACHE_PATH", cfg.Cache.Path)
	cfg.Cache.TTL = getEnvAsDuration("CACHE_TTL", cfg.Cache.TTL)

	cfg.RateLimit.Interval = getEnvAsDuration("RATE_LIMIT_INTERVAL", cfg.RateLimit.Interval)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)

	if langs := os.Getenv("CAPTION_LANGUAGES"); langs != "" {
		cfg.Captions.Languages = splitAndTrim(langs)
	}
	cfg.Captions.MaxAttempts = getEnvAsInt("CAPTION_MAX_ATTEMPTS", cfg.Captions.MaxAttempts)
	cfg.Captions.InitialBackoff = getEnvAsDuration("CAPTION_INITIAL_BACKOFF", cfg.Captions.InitialBackoff)
	cfg.Captions.MaxBackoff = getEnvAsDuration("CAPTION_MAX_BACKOFF", cfg.Captions.MaxBackoff)
	cfg.Captions.EnableAudioFallback = getEnvAsBool("ENABLE_AUDIO_FALLBACK", cfg.Captions.EnableAudioFallback)
	cfg.Captions.YTDLPPath = GetEnv("YTDLP_PATH", cfg.Captions.YTDLPPath)
	cfg.Captions.TempDir = GetEnv("TEMP_DIR", cfg.Captions.TempDir)
	cfg.Captions.HTTPTimeout = getEnvAsDuration("CAPTION_HTTP_TIMEOUT", cfg.Captions.HTTPTimeout)

	cfg.Summary.MaxInputChars = getEnvAsInt("SUMMARY_MAX_INPUT_CHARS", cfg.Summary.MaxInputChars)
	cfg.Summary.MaxChunkChars = getEnvAsInt("SUMMARY_MAX_CHUNK_CHARS", cfg.Summary.MaxChunkChars)
	cfg.Summary.ChunkRetries = getEnvAsInt("SUMMARY_CHUNK_RETRIES", cfg.Summary.ChunkRetries)
	cfg.Summary.Concurrency = getEnvAsInt("SUMMARY_CONCURRENCY", cfg.Summary.Concurrency)
	cfg.Summary.MaxOutputTokens = getEnvAsInt("SUMMARY_MAX_OUTPUT_TOKENS", cfg.Summary.MaxOutputTokens)
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.WithFields(logrus.Fields{
			"key":   key,
			"value": value,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Validate(cfg *Config) error {
	if cfg.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if cfg.Captions.MaxAttempts < 1 {
		return errors.New("caption max attempts must be at least 1")
	}
	if len(cfg.Captions.Languages) == 0 {
		return errors.New("at least one caption language is required")
	}
	if cfg.Summary.MaxInputChars <= 0 || cfg.Summary.MaxChunkChars <= 0 {
		return errors.New("summary size limits must be greater than 0")
	}
	if cfg.Summary.MaxChunkChars > cfg.Summary.MaxInputChars {
		return errors.New("max chunk chars must not exceed max input chars")
	}
	if cfg.Summary.Concurrency < 1 {
		return errors.New("summary concurrency must be at least 1")
	}
	return nil
}
