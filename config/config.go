package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogFile  string `mapstructure:"log_file"`

	// Environment: "development" enables debug behaviour.
	Environment string `mapstructure:"environment"`

	// BackendDomain is host:port without scheme; used to construct the
	// public /webhook and wss://<domain>/media-stream URLs handed to teler.
	BackendDomain string `mapstructure:"backend_domain" validate:"required"`

	// Provider credentials. Empty keys put the matching adapter into
	// degraded (mock/fallback) mode unless RequireProviders is set.
	TelerAPIKey      string `mapstructure:"teler_api_key"`
	TelerBaseURL     string `mapstructure:"teler_base_url"`
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	SarvamAPIKey     string `mapstructure:"sarvam_api_key"`
	SarvamBaseURL    string `mapstructure:"sarvam_base_url"`
	RequireProviders bool   `mapstructure:"require_providers"`

	// Session tuning.
	DefaultLanguage        string `mapstructure:"default_language" validate:"required"`
	MaxConversationHistory int    `mapstructure:"max_conversation_history" validate:"gt=0"`
	SilenceWarningInterval int    `mapstructure:"silence_warning_interval_seconds" validate:"gt=0"`
	MaxSilenceWarnings     int    `mapstructure:"max_silence_warnings" validate:"gte=0"`
	MinAccumulationMs      int    `mapstructure:"min_accumulation_ms_before_stt" validate:"gt=0"`
	MaxBufferMs            int    `mapstructure:"max_buffer_ms" validate:"gt=0"`
	ShutdownGraceSeconds   int    `mapstructure:"shutdown_grace_seconds" validate:"gte=0"`

	// VAD. When the silero model is absent the energy oracle serves.
	VADModelPath       string  `mapstructure:"vad_model_path"`
	VADEnergyThreshold float64 `mapstructure:"vad_energy_threshold" validate:"gt=0"`

	// History store: "memory" or "sqlite". Retention 0 means unbounded.
	HistoryStore     string `mapstructure:"history_store" validate:"oneof=memory sqlite"`
	HistoryDBPath    string `mapstructure:"history_db_path"`
	HistoryRetention int    `mapstructure:"history_retention" validate:"gte=0"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "voice-gateway")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 5000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("ENVIRONMENT", "production")

	v.SetDefault("BACKEND_DOMAIN", "localhost:5000")

	v.SetDefault("TELER_API_KEY", "")
	v.SetDefault("TELER_BASE_URL", "https://api.teler.ai")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("SARVAM_API_KEY", "")
	v.SetDefault("SARVAM_BASE_URL", "https://api.sarvam.ai")
	v.SetDefault("REQUIRE_PROVIDERS", false)

	v.SetDefault("DEFAULT_LANGUAGE", "hi-IN")
	v.SetDefault("MAX_CONVERSATION_HISTORY", 20)
	v.SetDefault("SILENCE_WARNING_INTERVAL_SECONDS", 30)
	v.SetDefault("MAX_SILENCE_WARNINGS", 2)
	v.SetDefault("MIN_ACCUMULATION_MS_BEFORE_STT", 3000)
	v.SetDefault("MAX_BUFFER_MS", 60000)
	v.SetDefault("SHUTDOWN_GRACE_SECONDS", 3)

	v.SetDefault("VAD_MODEL_PATH", "")
	v.SetDefault("VAD_ENERGY_THRESHOLD", 300.0)

	v.SetDefault("HISTORY_STORE", "memory")
	v.SetDefault("HISTORY_DB_PATH", "voice-gateway.db")
	v.SetDefault("HISTORY_RETENTION", 0)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}

// IsDevelopment reports whether debug behaviour should be enabled.
func (c *AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// BackendURL returns the public http(s) base URL for this service.
// localhost stays plain http so local flows work without TLS.
func (c *AppConfig) BackendURL() string {
	if strings.HasPrefix(c.BackendDomain, "localhost") {
		return fmt.Sprintf("http://%s", c.BackendDomain)
	}
	return fmt.Sprintf("https://%s", c.BackendDomain)
}

// MediaStreamURL returns the ws(s) URL teler should dial for media.
func (c *AppConfig) MediaStreamURL() string {
	if strings.HasPrefix(c.BackendDomain, "localhost") {
		return fmt.Sprintf("ws://%s/media-stream", c.BackendDomain)
	}
	return fmt.Sprintf("wss://%s/media-stream", c.BackendDomain)
}

// WebhookURL returns the default status-callback URL.
func (c *AppConfig) WebhookURL() string {
	return c.BackendURL() + "/webhook"
}
