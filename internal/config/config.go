package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Tokens  TokensConfig  `mapstructure:"tokens"`
	Cookies CookiesConfig `mapstructure:"cookies"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Twilio  TwilioConfig  `mapstructure:"twilio"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Phone   PhoneConfig   `mapstructure:"phone"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// TokensConfig holds the signing secrets and lifetimes for every token the
// service mints. Each token kind signs with its own secret. AccessTTL must
// be strictly shorter than RefreshTTL.
type TokensConfig struct {
	ActivationSecret string        `mapstructure:"activation_secret"`
	AccessSecret     string        `mapstructure:"access_secret"`
	RefreshSecret    string        `mapstructure:"refresh_secret"`
	ResetSecret      string        `mapstructure:"reset_secret"`
	ActivationTTL    time.Duration `mapstructure:"activation_ttl"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	ResetTTL         time.Duration `mapstructure:"reset_ttl"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
}

type CookiesConfig struct {
	Domain   string `mapstructure:"domain"`
	SameSite string `mapstructure:"same_site"`
	Secure   bool   `mapstructure:"secure"`
}

type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from"`
	SenderName string `mapstructure:"sender_name"`
	ResetURL   string `mapstructure:"reset_url"`
}

type TwilioConfig struct {
	AccountSID          string `mapstructure:"account_sid"`
	AuthToken           string `mapstructure:"auth_token"`
	MessagingServiceSID string `mapstructure:"messaging_service_sid"`
	WhatsAppFrom        string `mapstructure:"whatsapp_from"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type MetricsConfig struct {
	Port string `mapstructure:"port"`
}

type PhoneConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
}

var ErrTokenTTLOrder = errors.New("tokens.access_ttl must be shorter than tokens.refresh_ttl")

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "gyanoda")
	v.SetDefault("mongo.connect_timeout", "10s")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.connect_timeout", "5s")

	// Secrets and credentials default to empty. Registering every key is
	// what lets AutomaticEnv resolve it; without a registered presence
	// Unmarshal never consults the environment for a nested key.
	v.SetDefault("tokens.activation_secret", "")
	v.SetDefault("tokens.access_secret", "")
	v.SetDefault("tokens.refresh_secret", "")
	v.SetDefault("tokens.reset_secret", "")
	v.SetDefault("tokens.activation_ttl", "5m")
	v.SetDefault("tokens.access_ttl", "24h")
	v.SetDefault("tokens.refresh_ttl", "72h")
	v.SetDefault("tokens.reset_ttl", "1h")
	v.SetDefault("tokens.session_ttl", "168h")

	v.SetDefault("cookies.domain", "")
	v.SetDefault("cookies.same_site", "lax")
	v.SetDefault("cookies.secure", false)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.sender_name", "Gyanoda")
	v.SetDefault("smtp.reset_url", "")

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.messaging_service_sid", "")
	v.SetDefault("twilio.whatsapp_from", "")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "avatars")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("metrics.port", "")

	v.SetDefault("phone.default_region", "IN")

	if path != "" {
		if fi, err := os.Stat(path); err == nil {
			if fi.IsDir() {
				v.AddConfigPath(path)
				v.SetConfigName("config")
				v.SetConfigType("yaml")
			} else {
				v.SetConfigFile(path)
			}
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	// TOKENS_ACTIVATION_SECRET overrides tokens.activation_secret, and so
	// on for every key above.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Tokens.AccessTTL >= cfg.Tokens.RefreshTTL {
		return nil, ErrTokenTTLOrder
	}

	return &cfg, nil
}
