package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/recorrente/recorrente/internal/types"
)

type Configuration struct {
	Deployment   DeploymentConfig   `validate:"required"`
	Server       ServerConfig       `validate:"required"`
	Logging      LoggingConfig      `validate:"required"`
	Postgres     PostgresConfig     `validate:"required"`
	Bank         BankConfig         `validate:"required"`
	Billing      BillingConfig      `validate:"required"`
	Notification NotificationConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `validate:"required"`
	Port                   int    `validate:"required"`
	User                   string `validate:"required"`
	Password               string
	DBName                 string `validate:"required"`
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

func (c PostgresConfig) GetDSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode,
	)
}

// BankConfig holds the settings for the external banking API that issues
// and tracks charges
type BankConfig struct {
	BaseURL  string `validate:"required,url"`
	TokenURL string `validate:"required,url"`
	Scope    string
	// FallbackTokenTTL is used when the provider omits expires_in from
	// the token response
	FallbackTokenTTL time.Duration
	// TokenExpirySkew is subtracted from the provider-declared lifetime
	// so a token is refreshed before it actually expires
	TokenExpirySkew time.Duration
	// RequestsPerSecond caps outbound provider calls
	RequestsPerSecond float64
	Timeout           time.Duration
}

// BillingConfig holds the knobs of the due-item and reconciliation passes
type BillingConfig struct {
	LookaheadDays int `validate:"required,min=1"`
	// BatchSize is the number of charges reconciled per batch before the
	// inter-batch pause
	BatchSize  int           `validate:"required,min=1"`
	BatchPause time.Duration
	// ExtensionDays is the grace window the provider keeps a charge
	// payable after its due date
	ExtensionDays int
	// ReferenceCodeMaxLen is the provider's length limit for the
	// reference code sent on charge creation
	ReferenceCodeMaxLen int
	PaymentMethods      []string
	ChargeMessage       string
}

type NotificationConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
}

func NewConfig() (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/recorrente")

	v.SetEnvPrefix("RECORRENTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetimeminutes", 30)
	v.SetDefault("bank.fallbacktokenttl", 20*time.Minute)
	v.SetDefault("bank.tokenexpiryskew", time.Minute)
	v.SetDefault("bank.requestspersecond", 5.0)
	v.SetDefault("bank.timeout", 30*time.Second)
	v.SetDefault("billing.lookaheaddays", 7)
	v.SetDefault("billing.batchsize", 5)
	v.SetDefault("billing.batchpause", 2*time.Second)
	v.SetDefault("billing.extensiondays", 30)
	v.SetDefault("billing.referencecodemaxlen", 25)
	v.SetDefault("billing.paymentmethods", []string{"BOLETO", "PIX"})
	v.SetDefault("notification.timeout", 15*time.Second)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Bank: BankConfig{
			BaseURL:           "https://api.bank.test",
			TokenURL:          "https://auth.bank.test/token",
			FallbackTokenTTL:  20 * time.Minute,
			TokenExpirySkew:   time.Minute,
			RequestsPerSecond: 5,
			Timeout:           30 * time.Second,
		},
		Billing: BillingConfig{
			LookaheadDays:       7,
			BatchSize:           5,
			BatchPause:          0,
			ExtensionDays:       30,
			ReferenceCodeMaxLen: 25,
			PaymentMethods:      []string{"BOLETO", "PIX"},
			ChargeMessage:       "Fatura referente ao período vigente",
		},
	}
}
