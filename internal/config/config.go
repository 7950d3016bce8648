package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Identity IdentityConfig
	Email    EmailConfig
	Stripe   StripeConfig
	Redis    RedisConfig
	Broker   BrokerConfig
	R2       R2Config
	Jobs     JobsConfig
	QR       QRConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string // Full database URL
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SessionConfig struct {
	Secret string
	Name   string
}

// IdentityConfig configures bearer-token identities issued by the identity provider.
type IdentityConfig struct {
	JWTSecret string
	Issuer    string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	FromName     string
	Workers      int
	QueueSize    int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BrokerConfig selects the domain event publisher: "rabbitmq", "kafka" or "none".
type BrokerConfig struct {
	Kind         string
	RabbitMQURL  string
	Exchange     string
	KafkaBrokers []string
	KafkaTopic   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	Region          string
	Endpoint        string
}

type JobsConfig struct {
	ExpireSchedule  string
	PendingOrderTTL time.Duration
}

type QRConfig struct {
	Size   int
	Border int
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	config := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			Host:           v.GetString("HOST"),
			Env:            v.GetString("ENV"),
			AllowedOrigins: splitCSV(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: parseDatabaseConfig(v),
		Session: SessionConfig{
			Secret: v.GetString("SESSION_SECRET"),
			Name:   v.GetString("SESSION_NAME"),
		},
		Identity: IdentityConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		Email: EmailConfig{
			SMTPHost:     v.GetString("SMTP_HOST"),
			SMTPPort:     v.GetInt("SMTP_PORT"),
			SMTPUser:     v.GetString("SMTP_USER"),
			SMTPPassword: v.GetString("SMTP_PASSWORD"),
			FromEmail:    v.GetString("FROM_EMAIL"),
			FromName:     v.GetString("FROM_NAME"),
			Workers:      v.GetInt("MAIL_WORKERS"),
			QueueSize:    v.GetInt("MAIL_QUEUE_SIZE"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			Timeout:       v.GetDuration("STRIPE_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Broker: BrokerConfig{
			Kind:         strings.ToLower(strings.TrimSpace(v.GetString("BROKER"))),
			RabbitMQURL:  v.GetString("RABBITMQ_URL"),
			Exchange:     v.GetString("RABBITMQ_EXCHANGE"),
			KafkaBrokers: splitCSV(v.GetString("KAFKA_BROKERS")),
			KafkaTopic:   v.GetString("KAFKA_TOPIC"),
		},
		R2: R2Config{
			AccountID:       v.GetString("R2_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("R2_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("R2_BUCKET_NAME"),
			PublicURL:       v.GetString("R2_PUBLIC_URL"),
			Region:          v.GetString("R2_REGION"),
			Endpoint:        v.GetString("R2_ENDPOINT"),
		},
		Jobs: JobsConfig{
			ExpireSchedule:  v.GetString("JOBS_EXPIRE_SCHEDULE"),
			PendingOrderTTL: v.GetDuration("ORDER_PENDING_TTL"),
		},
		QR: QRConfig{
			Size:   v.GetInt("QR_SIZE"),
			Border: v.GetInt("QR_BORDER"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("HOST", "localhost")
	v.SetDefault("ENV", "development")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("SESSION_SECRET", "your-secret-key-change-in-production")
	v.SetDefault("SESSION_NAME", "vr_theatre_session")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("FROM_EMAIL", "tickets@vrtheatre.local")
	v.SetDefault("FROM_NAME", "VR Theatre")
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_QUEUE_SIZE", 100)
	v.SetDefault("STRIPE_TIMEOUT", 30*time.Second)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("BROKER", "none")
	v.SetDefault("RABBITMQ_EXCHANGE", "checkout_events")
	v.SetDefault("KAFKA_TOPIC", "checkout.events")
	v.SetDefault("R2_BUCKET_NAME", "ticket-codes")
	v.SetDefault("R2_REGION", "auto")
	v.SetDefault("JOBS_EXPIRE_SCHEDULE", "@every 15m")
	v.SetDefault("ORDER_PENDING_TTL", 48*time.Hour)
	v.SetDefault("QR_SIZE", 320)
	v.SetDefault("QR_BORDER", 16)
}

// Validate checks combinations that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	switch c.Broker.Kind {
	case "", "none":
	case "rabbitmq":
		if c.Broker.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when BROKER=rabbitmq")
		}
	case "kafka":
		if len(c.Broker.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when BROKER=kafka")
		}
	default:
		return fmt.Errorf("unknown BROKER %q", c.Broker.Kind)
	}
	if c.QR.Size <= 0 {
		return fmt.Errorf("QR_SIZE must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func parseDatabaseConfig(v *viper.Viper) DatabaseConfig {
	// Check if DATABASE_URL is provided
	databaseURL := v.GetString("DATABASE_URL")
	if databaseURL != "" {
		return parseDatabaseURL(databaseURL)
	}

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "vr_theatre")
	v.SetDefault("DB_SSLMODE", "disable")

	// Fall back to individual environment variables
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetInt("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		DBName:   v.GetString("DB_NAME"),
		SSLMode:  v.GetString("DB_SSLMODE"),
	}
}

func parseDatabaseURL(databaseURL string) DatabaseConfig {
	config := DatabaseConfig{
		URL: databaseURL,
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		// If parsing fails, return the URL as-is
		return config
	}

	config.Host = u.Hostname()
	if u.Port() != "" {
		config.Port, _ = strconv.Atoi(u.Port())
	} else {
		config.Port = 5432
	}

	if u.User != nil {
		config.User = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	config.DBName = strings.TrimPrefix(u.Path, "/")

	config.SSLMode = u.Query().Get("sslmode")
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
