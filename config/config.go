package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"lesson-insights-api/utils"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLanguageCode     = "en-US"
	DefaultSampleRateHertz  = 16000
	DefaultSpeechTimeout    = 1200 // seconds
	DefaultChunkSize        = 1500
	DefaultChunkOverlap     = 50
	DefaultStorageEndpoint  = "https://storage.googleapis.com"
	DefaultOpenAIModel      = "gpt-3.5-turbo-1106"
	DefaultGeminiModel      = "gemini-2.5-flash"
	DefaultLessonChannel    = "lesson_uploaded"
	DefaultResultTTLHours   = 24
	ProviderOpenAI          = "openai"
	ProviderGemini          = "gemini"
	defaultSummaryTemp      = 0.0
	defaultInsightsTemp     = 0.2
	defaultStorageRegion    = "auto"
	defaultStorageURIScheme = "gs"
	defaultServerPort       = "8080"
	defaultPostgresPort     = "5432"
	defaultPostgresSSLMode  = "disable"
	defaultValkeyMasterName = "mymaster"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
)

type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Speech   SpeechConfig   `yaml:"speech"`
	LLM      LLMConfig      `yaml:"llm"`
	Splitter SplitterConfig `yaml:"splitter"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
}

// StorageConfig addresses Cloud Storage through its S3-compatible XML API.
type StorageConfig struct {
	ProjectID       string `yaml:"project_id"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	URIScheme       string `yaml:"uri_scheme"`
}

type SpeechConfig struct {
	CredentialsFile            string        `yaml:"credentials_file"`
	Encoding                   AudioEncoding `yaml:"encoding"`
	SampleRateHertz            int           `yaml:"sample_rate_hertz"`
	LanguageCode               string        `yaml:"language_code"`
	EnableAutomaticPunctuation bool          `yaml:"enable_automatic_punctuation"`
	TimeoutSeconds             int           `yaml:"timeout_seconds"`
}

// Timeout is the bound on waiting for a recognition job.
func (s SpeechConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type LLMConfig struct {
	Provider            string  `yaml:"provider"`
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	Model               string  `yaml:"model"`
	SummaryTemperature  float32 `yaml:"summary_temperature"`
	InsightsTemperature float32 `yaml:"insights_temperature"`
}

type SplitterConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type PipelineConfig struct {
	Cleanup          bool `yaml:"cleanup"`
	CleanupOnFailure bool `yaml:"cleanup_on_failure"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Port           string `yaml:"port"`
	SpoolDir       string `yaml:"spool_dir"`
	Channel        string `yaml:"channel"`
	ResultTTLHours int    `yaml:"result_ttl_hours"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type ValkeyConfig struct {
	Host              string   `yaml:"host"`
	Port              string   `yaml:"port"`
	UseSentinel       bool     `yaml:"use_sentinel"`
	SentinelAddresses []string `yaml:"sentinel_addresses"`
	MasterName        string   `yaml:"master_name"`
}

// Default returns the configuration the pipeline runs with when nothing is overridden.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Endpoint:  DefaultStorageEndpoint,
			Region:    defaultStorageRegion,
			URIScheme: defaultStorageURIScheme,
		},
		Speech: SpeechConfig{
			Encoding:                   EncodingWebmOpus,
			SampleRateHertz:            DefaultSampleRateHertz,
			LanguageCode:               DefaultLanguageCode,
			EnableAutomaticPunctuation: true,
			TimeoutSeconds:             DefaultSpeechTimeout,
		},
		LLM: LLMConfig{
			Provider:            ProviderOpenAI,
			SummaryTemperature:  defaultSummaryTemp,
			InsightsTemperature: defaultInsightsTemp,
		},
		Splitter: SplitterConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Pipeline: PipelineConfig{
			Cleanup: true,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Server: ServerConfig{
			Port:           defaultServerPort,
			Channel:        DefaultLessonChannel,
			ResultTTLHours: DefaultResultTTLHours,
		},
		Postgres: PostgresConfig{
			Port:    defaultPostgresPort,
			SSLMode: defaultPostgresSSLMode,
		},
		Valkey: ValkeyConfig{
			MasterName: defaultValkeyMasterName,
		},
	}
}

// Load assembles the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Storage.ProjectID = utils.GetEnvOrDefault("GOOGLE_CLOUD_PROJECT", c.Storage.ProjectID)
	c.Storage.Bucket = utils.GetEnvOrDefault("LESSON_BUCKET", c.Storage.Bucket)
	c.Storage.Endpoint = utils.GetEnvOrDefault("STORAGE_ENDPOINT_URL", c.Storage.Endpoint)
	c.Storage.AccessKeyID = utils.GetEnvOrDefault("GCS_HMAC_ACCESS_KEY_ID", c.Storage.AccessKeyID)
	c.Storage.SecretAccessKey = utils.GetEnvOrDefault("GCS_HMAC_SECRET", c.Storage.SecretAccessKey)

	c.Speech.CredentialsFile = utils.GetEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.Speech.CredentialsFile)
	c.Speech.TimeoutSeconds = utils.GetEnvInt("SPEECH_TIMEOUT_SECONDS", c.Speech.TimeoutSeconds)

	c.LLM.Provider = utils.GetEnvOrDefault("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = utils.GetEnvOrDefault("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = utils.GetEnvOrDefault("OPENAI_BASE_URL", c.LLM.BaseURL)
	switch strings.ToLower(c.LLM.Provider) {
	case ProviderGemini:
		c.LLM.APIKey = utils.GetEnvOrDefault("GEMINI_API_KEY", c.LLM.APIKey)
	default:
		c.LLM.APIKey = utils.GetEnvOrDefault("OPENAI_API_KEY", c.LLM.APIKey)
	}

	c.Logging.Level = utils.GetEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = utils.GetEnvOrDefault("LOG_FORMAT", c.Logging.Format)

	c.Server.Port = utils.GetEnvOrDefault("APP_PORT", c.Server.Port)
	c.Server.SpoolDir = utils.GetEnvOrDefault("LESSON_SPOOL_DIR", c.Server.SpoolDir)
	c.Server.ResultTTLHours = utils.GetEnvInt("LESSON_RESULT_TTL_HOURS", c.Server.ResultTTLHours)

	c.Postgres.Host = utils.GetEnvOrDefault("POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = utils.GetEnvOrDefault("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.User = utils.GetEnvOrDefault("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = utils.GetEnvOrDefault("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.DBName = utils.GetEnvOrDefault("POSTGRES_DB", c.Postgres.DBName)
	c.Postgres.SSLMode = utils.GetEnvOrDefault("POSTGRES_SSLMODE", c.Postgres.SSLMode)

	c.Valkey.Host = utils.GetEnvOrDefault("VALKEY_HOST", c.Valkey.Host)
	c.Valkey.Port = utils.GetEnvOrDefault("VALKEY_PORT", c.Valkey.Port)
	c.Valkey.UseSentinel = utils.GetEnvBool("VALKEY_USE_SENTINEL", c.Valkey.UseSentinel)
	c.Valkey.MasterName = utils.GetEnvOrDefault("VALKEY_SENTINEL_MASTER_NAME", c.Valkey.MasterName)
	if csv := os.Getenv("VALKEY_SENTINEL_ADDRESS"); csv != "" {
		c.Valkey.SentinelAddresses = splitCSV(csv)
	}
}

// Validate checks the settings every pipeline run depends on and fills
// defaults for optional ones.
func (c *Config) Validate() error {
	enc, err := ParseAudioEncoding(string(c.Speech.Encoding))
	if err != nil {
		return fmt.Errorf("speech.encoding: %w", err)
	}
	c.Speech.Encoding = enc

	if c.Speech.SampleRateHertz <= 0 {
		return fmt.Errorf("speech.sample_rate_hertz must be positive")
	}
	if c.Speech.TimeoutSeconds <= 0 {
		return fmt.Errorf("speech.timeout_seconds must be positive")
	}
	if c.Splitter.ChunkSize <= 0 {
		return fmt.Errorf("splitter.chunk_size must be positive")
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("splitter.chunk_overlap must be in [0, chunk_size)")
	}

	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.Model == "" {
			c.LLM.Model = DefaultOpenAIModel
		}
	case ProviderGemini:
		if c.LLM.Model == "" {
			c.LLM.Model = DefaultGeminiModel
		}
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}

	if c.Speech.LanguageCode == "" {
		c.Speech.LanguageCode = DefaultLanguageCode
	}
	if c.Storage.Endpoint == "" {
		c.Storage.Endpoint = DefaultStorageEndpoint
	}
	if c.Storage.Region == "" {
		c.Storage.Region = defaultStorageRegion
	}
	if c.Storage.URIScheme == "" {
		c.Storage.URIScheme = defaultStorageURIScheme
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Server.Channel == "" {
		c.Server.Channel = DefaultLessonChannel
	}
	if c.Server.ResultTTLHours <= 0 {
		c.Server.ResultTTLHours = DefaultResultTTLHours
	}

	return nil
}

// ValidateService checks the settings only service mode needs.
func (c *Config) ValidateService() error {
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required in service mode")
	}
	if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.DBName == "" {
		return fmt.Errorf("postgres host, user and dbname are required in service mode")
	}
	if c.Valkey.UseSentinel {
		if len(c.Valkey.SentinelAddresses) == 0 {
			return fmt.Errorf("valkey.sentinel_addresses is required when use_sentinel is set")
		}
	} else if c.Valkey.Host == "" || c.Valkey.Port == "" {
		return fmt.Errorf("valkey host and port are required in service mode")
	}
	if c.Server.SpoolDir == "" {
		c.Server.SpoolDir = os.TempDir()
	}
	return nil
}

func splitCSV(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
