package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ServerPort string

	RedisURL string

	JWTSecret string

	AccessTokenMaxAge  int
	RefreshTokenMaxAge int

	ConfirmationTokenMaxAge int
	ResetTokenMaxAge        int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	AllowedOrigins []string

	SessionHeartbeatInterval time.Duration
	SessionIdleTimeout       time.Duration

	BrokerHighWaterMark int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	accessTokenMaxAge := atoiOr("ACCESS_TOKEN_MAX_AGE", 900)
	refreshTokenMaxAge := atoiOr("REFRESH_TOKEN_MAX_AGE", 2592000)
	confirmationTokenMaxAge := atoiOr("CONFIRMATION_TOKEN_MAX_AGE", 86400)
	resetTokenMaxAge := atoiOr("RESET_TOKEN_MAX_AGE", 3600)
	smtpPort := atoiOr("SMTP_PORT", 587)
	heartbeatSeconds := atoiOr("SESSION_HEARTBEAT_SECONDS", 30)
	idleSeconds := atoiOr("SESSION_IDLE_TIMEOUT_SECONDS", 90)
	highWaterMark := atoiOr("BROKER_HIGH_WATER_MARK", 256)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	var origins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		ServerPort: serverPort,
		RedisURL:   redisURL,

		JWTSecret: os.Getenv("JWT_SECRET"),

		AccessTokenMaxAge:  accessTokenMaxAge,
		RefreshTokenMaxAge: refreshTokenMaxAge,

		ConfirmationTokenMaxAge: confirmationTokenMaxAge,
		ResetTokenMaxAge:        resetTokenMaxAge,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),

		AllowedOrigins: origins,

		SessionHeartbeatInterval: time.Duration(heartbeatSeconds) * time.Second,
		SessionIdleTimeout:       time.Duration(idleSeconds) * time.Second,

		BrokerHighWaterMark: highWaterMark,
	}, nil
}

func atoiOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
