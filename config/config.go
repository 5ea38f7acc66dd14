// Package config loads environment variables into a typed Config used across the bot.
// Defaults let the binary run with only VIDEO_ID set; call Validate before starting
// the chat loop.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// UsernamePlaceholder is replaced with the author's display name in WelcomeMessage.
const UsernamePlaceholder = "{username}"

type Config struct {
	// Stream
	VideoID string `env:"VIDEO_ID"`

	// Broadcaster
	BroadcastIntervalMinutes int           `env:"BROADCAST_INTERVAL_MINUTES" envDefault:"15"`
	BroadcastMessages        []string      `env:"BROADCAST_MESSAGES" envSeparator:"|" envDefault:"Don't forget to subscribe to the channel!|Leave a like to support the stream!|Follow us on social media for more content!"`
	BroadcastRetryDelay      time.Duration `env:"BROADCAST_RETRY_DELAY" envDefault:"60s"`

	// Chat commands and welcome
	LinkText       string `env:"CHAT_COMMAND_LINK" envDefault:"Here is the channel link: https://www.youtube.com/channel/YOUR_CHANNEL_ID"`
	DiscordText    string `env:"CHAT_COMMAND_DISCORD" envDefault:"Join our Discord: https://discord.gg/YOUR_INVITE_CODE"`
	WelcomeMessage string `env:"WELCOME_MESSAGE" envDefault:"Welcome to the chat, {username}!"`

	// Rate limiting
	UserCooldownSeconds          int `env:"USER_COOLDOWN_SECONDS" envDefault:"5"`
	GlobalCommandCooldownSeconds int `env:"GLOBAL_COMMAND_COOLDOWN_SECONDS" envDefault:"3"`

	// Permissions
	Moderators         []string          `env:"MODERATORS" envSeparator:","`
	CommandPermissions map[string]string `env:"COMMAND_PERMISSIONS" envDefault:"!ban:moderator,!unban:moderator,!load:moderator,!unload:moderator,!reload:moderator"`
	DisabledCommands   []string          `env:"DISABLED_COMMANDS" envSeparator:","`

	// Storage
	BanListPath string `env:"BAN_LIST_PATH" envDefault:"banned_users.json"`

	// YouTube OAuth
	YTClientSecretFile string `env:"YT_CLIENT_SECRET_FILE" envDefault:"client_secret.json"`
	YTClientID         string `env:"YT_CLIENT_ID"`
	YTClientSecret     string `env:"YT_CLIENT_SECRET"`
	YTRedirectURI      string `env:"YT_REDIRECT_URI" envDefault:"http://localhost:8090/callback"`
	YTScopes           string `env:"YT_SCOPES" envDefault:"https://www.googleapis.com/auth/youtube.force-ssl"`
	YTTokenFile        string `env:"YT_TOKEN_FILE" envDefault:"token.json"`
	EncryptionKey      string `env:"ENCRYPTION_KEY"`

	// Polling
	PollInterval     time.Duration `env:"CHAT_POLL_INTERVAL" envDefault:"10s"`
	MaxFetchFailures int           `env:"CHAT_MAX_FETCH_FAILURES" envDefault:"3"`
	FetchRetryDelay  time.Duration `env:"CHAT_FETCH_RETRY_DELAY" envDefault:"5s"`

	// Outbound
	SendRatePerSecond float64 `env:"SEND_RATE_PER_SECOND" envDefault:"1"`

	// HTTP / logging
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads environment variables and applies defaults. It does not fail when VIDEO_ID
// is missing; use Validate for that.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports configuration errors that must abort startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.VideoID) == "" {
		return fmt.Errorf("missing VIDEO_ID: set it to the video id of your live stream")
	}
	if c.BroadcastIntervalMinutes <= 0 {
		return fmt.Errorf("invalid BROADCAST_INTERVAL_MINUTES %d: must be positive", c.BroadcastIntervalMinutes)
	}
	if c.UserCooldownSeconds < 0 {
		return fmt.Errorf("invalid USER_COOLDOWN_SECONDS %d: must not be negative", c.UserCooldownSeconds)
	}
	if c.GlobalCommandCooldownSeconds < 0 {
		return fmt.Errorf("invalid GLOBAL_COMMAND_COOLDOWN_SECONDS %d: must not be negative", c.GlobalCommandCooldownSeconds)
	}
	if c.SendRatePerSecond <= 0 {
		return fmt.Errorf("invalid SEND_RATE_PER_SECOND %v: must be positive", c.SendRatePerSecond)
	}
	if !strings.Contains(c.WelcomeMessage, UsernamePlaceholder) {
		return fmt.Errorf("invalid WELCOME_MESSAGE: must contain %s", UsernamePlaceholder)
	}
	return nil
}

// BroadcastInterval returns the broadcaster interval as a duration.
func (c *Config) BroadcastInterval() time.Duration {
	return time.Duration(c.BroadcastIntervalMinutes) * time.Minute
}

func (c *Config) UserCooldown() time.Duration {
	return time.Duration(c.UserCooldownSeconds) * time.Second
}

func (c *Config) GlobalCommandCooldown() time.Duration {
	return time.Duration(c.GlobalCommandCooldownSeconds) * time.Second
}

// ChatCommands returns the fixed response text table keyed by command token.
func (c *Config) ChatCommands() map[string]string {
	return map[string]string{
		"!link":    c.LinkText,
		"!discord": c.DiscordText,
	}
}

// Permissions expands COMMAND_PERMISSIONS into token -> required roles. Roles within one
// entry are separated by "|". Tokens are lowercased.
func (c *Config) Permissions() map[string][]string {
	out := make(map[string][]string, len(c.CommandPermissions))
	for token, roles := range c.CommandPermissions {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		var list []string
		for _, r := range strings.Split(roles, "|") {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				list = append(list, r)
			}
		}
		out[token] = list
	}
	return out
}

// FormatWelcome substitutes the display name into WelcomeMessage.
func (c *Config) FormatWelcome(username string) string {
	return strings.ReplaceAll(c.WelcomeMessage, UsernamePlaceholder, username)
}
