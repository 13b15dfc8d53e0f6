package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment      string
	APIURL           string
	WebSocketURL     string
	AccessToken      string
	UserID           string
	UserName         string
	RequestTimeout   time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	TypingTimeout    time.Duration
	MetricsAddr      string
	TestServerPort   string
	TestServerSecret string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("CHATSYNC_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	requestTimeout, err := getDurationOrDefault("CHATSYNC_REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	reconnectInitial, err := getDurationOrDefault("CHATSYNC_RECONNECT_INITIAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	reconnectMax, err := getDurationOrDefault("CHATSYNC_RECONNECT_MAX", 30*time.Second)
	if err != nil {
		return nil, err
	}
	typingTimeout, err := getDurationOrDefault("CHATSYNC_TYPING_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment:      env,
		APIURL:           strings.TrimRight(getEnvOrDefault("CHATSYNC_API_URL", "http://localhost:8080"), "/"),
		WebSocketURL:     os.Getenv("CHATSYNC_WS_URL"),
		AccessToken:      os.Getenv("CHATSYNC_ACCESS_TOKEN"),
		UserID:           os.Getenv("CHATSYNC_USER_ID"),
		UserName:         os.Getenv("CHATSYNC_USER_NAME"),
		RequestTimeout:   requestTimeout,
		ReconnectInitial: reconnectInitial,
		ReconnectMax:     reconnectMax,
		TypingTimeout:    typingTimeout,
		MetricsAddr:      os.Getenv("CHATSYNC_METRICS_ADDR"),
		TestServerPort:   getEnvOrDefault("CHATSYNC_TEST_SERVER_PORT", "8080"),
		TestServerSecret: getEnvOrDefault("CHATSYNC_TEST_SERVER_SECRET", "chatsync-dev-secret"),
	}

	if config.WebSocketURL == "" {
		config.WebSocketURL = DeriveWebSocketURL(config.APIURL)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("CHATSYNC_ACCESS_TOKEN is required")
	}

	if c.UserID == "" {
		return fmt.Errorf("CHATSYNC_USER_ID is required")
	}

	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("CHATSYNC_API_URL is invalid: %w", err)
	}

	if port, err := strconv.Atoi(c.TestServerPort); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("CHATSYNC_TEST_SERVER_PORT is not a valid port number: %s", c.TestServerPort)
	}

	if c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("CHATSYNC_RECONNECT_MAX (%s) must not be less than CHATSYNC_RECONNECT_INITIAL (%s)", c.ReconnectMax, c.ReconnectInitial)
	}

	return nil
}

// DeriveWebSocketURL turns the REST base URL into the chat socket endpoint
// (http -> ws, https -> wss).
func DeriveWebSocketURL(apiURL string) string {
	wsURL := apiURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	return strings.TrimRight(wsURL, "/") + "/api/chat/ws"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid duration: %w", key, err)
	}
	return d, nil
}
