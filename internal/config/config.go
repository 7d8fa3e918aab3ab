// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var snowflake = regexp.MustCompile(`^\d+$`)

type Config struct {
	DiscordToken   string        `env:"DISCORD_TOKEN,required,notEmpty"`
	OwnerID        string        `env:"OWNER_ID,required,notEmpty"`
	GuildID        string        `env:"DISCORD_GUILD_ID"`
	CommandsPath   string        `env:"COMMANDS_PATH" envDefault:"commands"`
	StoragePath    string        `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"data/novabot.db"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string        `env:"LOG_FILE"`
	LogPretty      bool          `env:"LOG_PRETTY" envDefault:"true"`
	WatchCommands  bool          `env:"WATCH_COMMANDS" envDefault:"true"`
	HandlerTimeout time.Duration `env:"HANDLER_TIMEOUT" envDefault:"30s"`
	EmbedColor     int           `env:"EMBED_COLOR" envDefault:"5793266"`
	ModLogChannel  string        `env:"MOD_LOG_CHANNEL" envDefault:"mod-logs"`
	MessageLog     string        `env:"MESSAGE_LOG_CHANNEL" envDefault:"message-logs"`
	JoinLog        string        `env:"JOIN_LOG_CHANNEL" envDefault:"join-logs"`
	BannedWords    []string      `env:"AUTOMOD_BANNED_WORDS" envSeparator:","`
	SentryDSN      string        `env:"SENTRY_DSN"`
}

// Load reads an optional .env file and parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse builds a Config from the current environment without touching .env files.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !snowflake.MatchString(c.OwnerID) {
		return errors.New("OWNER_ID must be a valid Discord user ID (numbers only)")
	}
	if c.GuildID != "" && !snowflake.MatchString(c.GuildID) {
		return errors.New("DISCORD_GUILD_ID must be a valid Discord guild ID (numbers only)")
	}
	if c.HandlerTimeout <= 0 {
		return errors.New("HANDLER_TIMEOUT must be positive")
	}
	return nil
}
