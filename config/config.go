package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultProtectedPaths are the path patterns that require a session.
var DefaultProtectedPaths = []string{
	`/shipping-address`,
	`/payment-method`,
	`/place-order`,
	`/profile`,
	`/user/(.*)`,
	`/order/(.*)`,
	`/admin`,
}

type Config struct {
	ServerPort     int
	MetricsEnabled bool
	Database       DatabaseConfig
	Auth           AuthConfig
	OAuth          OAuthConfig
	Redis          RedisConfig
	Storage        StorageConfig
	MQ             MQConfig
	Log            LogConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type AuthConfig struct {
	Secret         string
	SessionMaxAge  time.Duration
	SessionCookie  string
	SecureCookies  bool
	SignInPath     string
	ErrorPath      string
	ProtectedPaths []string

	// AllowProviderSwitch lets an identity owned by one federated provider
	// be signed into through another federated provider with the same email.
	AllowProviderSwitch bool

	MaxFailedSignIns   int
	FailedSignInWindow time.Duration
}

type OAuthConfig struct {
	Google OAuthClientConfig
	GitHub OAuthClientConfig
}

type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether the client has enough configuration to be registered.
func (c OAuthClientConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Backend       string
	PublicBaseURL string
	Minio         MinioConfig
	GCS           GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MQConfig struct {
	Backend     string
	EventsTopic string
	RabbitMQ    RabbitMQConfig
	PubSub      PubSubConfig
}

type RabbitMQConfig struct {
	URL string

	// ConsumerQueue is bound to the events exchange by the event watcher.
	ConsumerQueue   string
	PrefetchCount   int
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type LogConfig struct {
	Level string
	Dev   bool
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "shopadmin"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "shopadmin_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	authConfig := AuthConfig{
		Secret:              strings.TrimSpace(getEnv("AUTH_SECRET", "")),
		SessionMaxAge:       getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		SessionCookie:       getEnv("SESSION_COOKIE", "session_token"),
		SecureCookies:       getEnvBool("SECURE_COOKIES", true),
		SignInPath:          getEnv("SIGNIN_PATH", "/signin"),
		ErrorPath:           getEnv("ERROR_PATH", "/signin"),
		ProtectedPaths:      getEnvList("PROTECTED_PATHS", DefaultProtectedPaths),
		AllowProviderSwitch: getEnvBool("AUTH_ALLOW_PROVIDER_SWITCH", true),
		MaxFailedSignIns:    getEnvInt("LOGIN_MAX_FAILURES", 10),
		FailedSignInWindow:  getEnvDuration("LOGIN_FAILURE_WINDOW", 15*time.Minute),
	}

	oauthConfig := OAuthConfig{
		Google: OAuthClientConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		GitHub: OAuthClientConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GITHUB_REDIRECT_URL", ""),
		},
	}

	storageConfig := StorageConfig{
		Backend:       getEnv("STORAGE_BACKEND", "none"),
		PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "shopadmin-pictures"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	mqConfig := MQConfig{
		Backend:     getEnv("MQ_BACKEND", "none"),
		EventsTopic: getEnv("MQ_EVENTS_TOPIC", "identity-events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			ConsumerQueue:   getEnv("RABBITMQ_CONSUMER_QUEUE", "identity-events.watch"),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	logConfig := LogConfig{
		Level: getEnv("LOG_LEVEL", ""),
		Dev:   getEnv("LOG_DEV", "") == "1",
	}
	if logConfig.Level == "" {
		logConfig.Level = "info"
		if logConfig.Dev {
			logConfig.Level = "debug"
		}
	}

	return Config{
		ServerPort:     getEnvInt("SERVER_PORT", 8080),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		Database:       dbConfig,
		Auth:           authConfig,
		OAuth:          oauthConfig,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: storageConfig,
		MQ:      mqConfig,
		Log:     logConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
