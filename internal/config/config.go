package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "NEWSRADIO_CONFIG"
	databasePathEnv  = "NEWSRADIO_DB_PATH"
	synthesisKeyEnv  = "SYNTHESIS_API_KEY"
	rendererKeyEnv   = "RENDERER_API_KEY"
	speechKeyEnv     = "SPEECH_API_KEY"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Duration wraps time.Duration for YAML fields like "4h" or "500ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Production    ProductionConfig   `yaml:"production"`
	Ingestion     IngestionConfig    `yaml:"ingestion"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Retry         RetryConfig        `yaml:"retry"`
	Synthesis     SynthesisConfig    `yaml:"synthesis"`
	Renderer      RendererConfig     `yaml:"renderer"`
	Speech        SpeechConfig       `yaml:"speech"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig sets the slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig locates the embedded SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProductionConfig tunes the cycle orchestrator.
type ProductionConfig struct {
	CycleInterval     Duration `yaml:"cycleInterval"`
	NewsInterval      Duration `yaml:"newsInterval"`
	RenderConcurrency int      `yaml:"renderConcurrency"`
	StoryTarget       int      `yaml:"storyTarget"`
	MinAudioBytes     int64    `yaml:"minAudioBytes"`
	AudioDir          string   `yaml:"audioDir"`
	SongStyle         string   `yaml:"songStyle"`
}

// IngestionConfig tunes the deduplicating feed.
type IngestionConfig struct {
	DedupCapacity int      `yaml:"dedupCapacity"`
	Keywords      []string `yaml:"keywords"`
}

// SchedulerConfig tunes the content scheduler cascade.
type SchedulerConfig struct {
	PatternID  string   `yaml:"patternId"`
	SlotWindow Duration `yaml:"slotWindow"`
}

// RetryConfig is the shared policy applied at each external-call boundary.
type RetryConfig struct {
	MaxAttempts int      `yaml:"maxAttempts"`
	BaseDelay   Duration `yaml:"baseDelay"`
	MaxDelay    Duration `yaml:"maxDelay"`
}

// SynthesisConfig defines how to contact the narrative synthesis backend.
type SynthesisConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// RendererConfig defines how to contact the song rendering backend.
type RendererConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// SpeechConfig defines how to contact the text-to-speech backend.
type SpeechConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	Voice    string `yaml:"voice"`
}

// NotificationConfig encapsulates outbound event channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SourceConfig describes a single source with its scanner strategy.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	URL     string            `yaml:"url"`
	Enabled *bool             `yaml:"enabled"`
	Options map[string]string `yaml:"options"`
}

// IsEnabled treats an unset flag as enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(synthesisKeyEnv); v != "" {
		c.Synthesis.APIKey = v
	}

	if v := os.Getenv(rendererKeyEnv); v != "" {
		c.Renderer.APIKey = v
	}

	if v := os.Getenv(speechKeyEnv); v != "" {
		c.Speech.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Production.CycleInterval > 0 {
		base.Production.CycleInterval = override.Production.CycleInterval
	}
	if override.Production.NewsInterval > 0 {
		base.Production.NewsInterval = override.Production.NewsInterval
	}
	if override.Production.RenderConcurrency > 0 {
		base.Production.RenderConcurrency = override.Production.RenderConcurrency
	}
	if override.Production.StoryTarget > 0 {
		base.Production.StoryTarget = override.Production.StoryTarget
	}
	if override.Production.MinAudioBytes > 0 {
		base.Production.MinAudioBytes = override.Production.MinAudioBytes
	}
	if override.Production.AudioDir != "" {
		base.Production.AudioDir = override.Production.AudioDir
	}
	if override.Production.SongStyle != "" {
		base.Production.SongStyle = override.Production.SongStyle
	}

	if override.Ingestion.DedupCapacity > 0 {
		base.Ingestion.DedupCapacity = override.Ingestion.DedupCapacity
	}
	if len(override.Ingestion.Keywords) > 0 {
		base.Ingestion.Keywords = override.Ingestion.Keywords
	}

	if override.Scheduler.PatternID != "" {
		base.Scheduler.PatternID = override.Scheduler.PatternID
	}
	if override.Scheduler.SlotWindow > 0 {
		base.Scheduler.SlotWindow = override.Scheduler.SlotWindow
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BaseDelay > 0 {
		base.Retry.BaseDelay = override.Retry.BaseDelay
	}
	if override.Retry.MaxDelay > 0 {
		base.Retry.MaxDelay = override.Retry.MaxDelay
	}

	if override.Synthesis.Endpoint != "" {
		base.Synthesis.Endpoint = override.Synthesis.Endpoint
	}
	if override.Synthesis.Model != "" {
		base.Synthesis.Model = override.Synthesis.Model
	}
	if override.Synthesis.APIKey != "" {
		base.Synthesis.APIKey = override.Synthesis.APIKey
	}
	if override.Synthesis.SystemPrompt != "" {
		base.Synthesis.SystemPrompt = override.Synthesis.SystemPrompt
	}

	if override.Renderer.Endpoint != "" {
		base.Renderer.Endpoint = override.Renderer.Endpoint
	}
	if override.Renderer.APIKey != "" {
		base.Renderer.APIKey = override.Renderer.APIKey
	}

	if override.Speech.Endpoint != "" {
		base.Speech.Endpoint = override.Speech.Endpoint
	}
	if override.Speech.APIKey != "" {
		base.Speech.APIKey = override.Speech.APIKey
	}
	if override.Speech.Voice != "" {
		base.Speech.Voice = override.Speech.Voice
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "newsradio.db"},
		Production: ProductionConfig{
			CycleInterval:     Duration(4 * time.Hour),
			NewsInterval:      Duration(15 * time.Minute),
			RenderConcurrency: 2,
			StoryTarget:       5,
			MinAudioBytes:     32 * 1024,
			AudioDir:          "audio",
			SongStyle:         "upbeat pop",
		},
		Ingestion: IngestionConfig{
			DedupCapacity: 500,
		},
		Scheduler: SchedulerConfig{
			PatternID:  "default",
			SlotWindow: Duration(60 * time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   Duration(500 * time.Millisecond),
			MaxDelay:    Duration(10 * time.Second),
		},
		Synthesis: SynthesisConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are the newsroom writer for an automated radio station.",
		},
		Renderer: RendererConfig{Endpoint: "https://render.example.org/v1/songs"},
		Speech:   SpeechConfig{Endpoint: "https://speech.example.org/v1/speak", Voice: "anchor"},
		Sources: []SourceConfig{
			{
				Name:    "hn-frontpage",
				Scanner: "rss",
				URL:     "https://hnrss.org/frontpage",
			},
		},
	}
}
