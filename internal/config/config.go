package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	FrontendURL  string `mapstructure:"FRONTEND_URL"`
	EnableCORS   bool   `mapstructure:"ENABLE_CORS"`

	// Organizer login + notifications channel.
	DiscordClientID               string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`

	// Payment gateway credentials, passed explicitly to the matching
	// callback adapter at startup.
	TranzilaTerminal string `mapstructure:"TRANZILA_TERMINAL"`
	MeshulamPageCode string `mapstructure:"MESHULAM_PAGE_CODE"`

	// Outbound email. With no API key the mailer runs in log-only mode.
	EmailAPIKey string `mapstructure:"EMAIL_API_KEY"`
	EmailFrom   string `mapstructure:"EMAIL_FROM"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "nifgashim.db")
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	viper.SetDefault("FRONTEND_URL", "http://127.0.0.1:4000")
	viper.SetDefault("EMAIL_FROM", "Nifgashim <noreply@nifgashim.org>")

	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("TRANZILA_TERMINAL")
	viper.BindEnv("MESHULAM_PAGE_CODE")
	viper.BindEnv("EMAIL_API_KEY")
	viper.BindEnv("EMAIL_FROM")
	viper.BindEnv("ENABLE_CORS")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
