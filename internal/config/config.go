package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envStoreDriver           = "STORE_DRIVER"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envAWSRegion             = "REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envAWSEndpoint           = "AWS_ENDPOINT"
	envBucketAudio           = "CT_BUCKET_STORY_AUDIO"
	envBucketImages          = "CT_BUCKET_STORY_IMAGES"
	envBucketUserProfiles    = "CT_BUCKET_USER_PROFILES"
	envBucketOrgProfiles     = "CT_BUCKET_ORG_PROFILES"
	envJWTAccessSecret       = "JWT_SECRET_KEY"
	envJWTRefreshSecret      = "JWT_REFRESH_SECRET_KEY"
	envJWTAccessTTL          = "JWT_ACCESS_TTL"
	envJWTRefreshTTL         = "JWT_REFRESH_TTL"
	envAuthHideExistence     = "AUTH_HIDE_EXISTENCE"
	envBcryptCost            = "BCRYPT_COST"
	envQueueDriver           = "QUEUE_DRIVER"
	envSQSQueueURL           = "CT_SQS_QUEUE_URL"
	envRabbitURL             = "RABBITMQ_URL"
	envRabbitQueue           = "RABBITMQ_QUEUE"
	envQueueWaitTime         = "QUEUE_WAIT_TIME"
	envQueueMaxMessages      = "QUEUE_MAX_MESSAGES"
	envQueueVisibility       = "QUEUE_VISIBILITY_TIMEOUT"
	envRedisURL              = "REDIS_URL"
	envMLSummarizer          = "ML_SUMMARIZER"
	envMLTagger              = "ML_TAGGER"
	envMLChat                = "ML_CHAT"
	envPerplexityAPIKey      = "PERPLEXITY_API_KEY"
	envPerplexityURL         = "PERPLEXITY_API_URL"
	envPerplexityModel       = "PERPLEXITY_MODEL"
	envDeepgramAPIKey        = "DEEPGRAM_API_KEY"
	envDeepgramURL           = "DEEPGRAM_API_URL"
	envTaggerURL             = "ML_TAGGER_URL"
	envTaggerToken           = "ML_TAGGER_TOKEN"
	envMLHTTPTimeout         = "ML_HTTP_TIMEOUT"
	envTaskStaleAfter        = "ML_TASK_STALE_AFTER"
	envReapInterval          = "ML_REAP_INTERVAL"
	envLogLevel              = "LOG_LEVEL"
	envLogFormat             = "LOG_FORMAT"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	QueueDriverSQS      = "sqs"
	QueueDriverRabbitMQ = "rabbitmq"
	QueueDriverMemory   = "memory"

	MLDriverLocal  = "local"
	MLDriverRemote = "remote"
)

const (
	defaultServerPort          = "8000"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 30 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultDBHost              = "localhost"
	defaultDBPort              = 5432
	defaultDBName              = "commonthread"
	defaultDBUser              = "commonthread"
	defaultDBSSLMode           = "disable"
	defaultDBMaxConns          = 25
	defaultDBMinConns          = 2
	defaultAWSRegion           = "us-east-2"
	defaultBucketAudio         = "ct-story-audio"
	defaultBucketImages        = "ct-story-images"
	defaultBucketUserProfiles  = "ct-user-profiles"
	defaultBucketOrgProfiles   = "ct-org-profiles"
	defaultAccessTTL           = 2 * time.Hour
	defaultRefreshTTL          = 7 * 24 * time.Hour
	defaultBcryptCost          = 12
	defaultRabbitQueue         = "ml-tasks"
	defaultQueueWaitTime       = 20 * time.Second
	defaultQueueMaxMessages    = 10
	defaultQueueVisibility     = 15 * time.Minute
	defaultPerplexityURL       = "https://api.perplexity.ai/chat/completions"
	defaultPerplexityModel     = "sonar-pro"
	defaultDeepgramURL         = "https://api.deepgram.com/v1/listen"
	defaultMLHTTPTimeout       = 2 * time.Minute
	defaultTaskStaleAfter      = time.Hour
	defaultReapInterval        = 10 * time.Minute
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	minJWTSecretLength         = 32
	minUniqueCharsInSecret     = 16
	minRepeatedCharThreshold   = 4
	maxRepeatedChars           = 2
	maxSQSMessages             = 10
	errPortRequiredFmt         = "PORT must be set"
	errSecretMinLengthFmt      = "%s must be at least %d characters"
	errSecretLowEntropyFmt     = "%s has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errSecretsMustDifferFmt    = "JWT_SECRET_KEY and JWT_REFRESH_SECRET_KEY must differ"
	errMaxMessagesRangeFmt     = "QUEUE_MAX_MESSAGES must be between 1 and %d"
	errRemoteNeedsKeyFmt       = "%s=remote requires %s"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Buckets  BucketConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Queue    QueueConfig
	Redis    RedisConfig
	ML       MLConfig
	Worker   WorkerConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service endpoint (localstack, minio).
	Endpoint string
}

type BucketConfig struct {
	StoryAudio   string
	StoryImages  string
	UserProfiles string
	OrgProfiles  string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type AuthConfig struct {
	// HideResourceExistence answers 403 instead of 404 for missing resources.
	HideResourceExistence bool
	BcryptCost            int
}

type QueueConfig struct {
	Driver            string
	SQSQueueURL       string
	RabbitURL         string
	RabbitQueue       string
	WaitTime          time.Duration
	MaxMessages       int
	VisibilityTimeout time.Duration
}

type RedisConfig struct {
	// URL is optional; presigned URLs are cached in-process when empty.
	URL string
}

type MLConfig struct {
	Summarizer       string
	Tagger           string
	Chat             string
	PerplexityAPIKey string
	PerplexityURL    string
	PerplexityModel  string
	DeepgramAPIKey   string
	DeepgramURL      string
	TaggerURL        string
	TaggerToken      string
	HTTPTimeout      time.Duration
}

type WorkerConfig struct {
	StaleAfter   time.Duration
	ReapInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv(envStoreDriver, StoreDriverPostgres)),
		},
		Database: DatabaseConfig{
			Host:     getEnv(envDBHost, defaultDBHost),
			Port:     getIntEnv(envDBPort, defaultDBPort),
			Database: getEnv(envDBName, defaultDBName),
			User:     getEnv(envDBUser, defaultDBUser),
			Password: getEnv(envDBPassword, ""),
			SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
		},
		AWS: AWSConfig{
			Region:          getEnv(envAWSRegion, defaultAWSRegion),
			AccessKeyID:     getEnv(envAWSAccessKeyID, ""),
			SecretAccessKey: getEnv(envAWSSecretAccessKey, ""),
			Endpoint:        getEnv(envAWSEndpoint, ""),
		},
		Buckets: BucketConfig{
			StoryAudio:   getEnv(envBucketAudio, defaultBucketAudio),
			StoryImages:  getEnv(envBucketImages, defaultBucketImages),
			UserProfiles: getEnv(envBucketUserProfiles, defaultBucketUserProfiles),
			OrgProfiles:  getEnv(envBucketOrgProfiles, defaultBucketOrgProfiles),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv(envJWTAccessSecret, ""),
			RefreshSecret: getEnv(envJWTRefreshSecret, ""),
			AccessTTL:     getDurationEnv(envJWTAccessTTL, defaultAccessTTL),
			RefreshTTL:    getDurationEnv(envJWTRefreshTTL, defaultRefreshTTL),
		},
		Auth: AuthConfig{
			HideResourceExistence: getBoolEnv(envAuthHideExistence, false),
			BcryptCost:            getIntEnv(envBcryptCost, defaultBcryptCost),
		},
		Queue: QueueConfig{
			Driver:            strings.ToLower(getEnv(envQueueDriver, QueueDriverSQS)),
			SQSQueueURL:       getEnv(envSQSQueueURL, ""),
			RabbitURL:         getEnv(envRabbitURL, ""),
			RabbitQueue:       getEnv(envRabbitQueue, defaultRabbitQueue),
			WaitTime:          getDurationEnv(envQueueWaitTime, defaultQueueWaitTime),
			MaxMessages:       getIntEnv(envQueueMaxMessages, defaultQueueMaxMessages),
			VisibilityTimeout: getDurationEnv(envQueueVisibility, defaultQueueVisibility),
		},
		Redis: RedisConfig{
			URL: getEnv(envRedisURL, ""),
		},
		ML: MLConfig{
			Summarizer:       strings.ToLower(getEnv(envMLSummarizer, MLDriverLocal)),
			Tagger:           strings.ToLower(getEnv(envMLTagger, MLDriverLocal)),
			Chat:             strings.ToLower(getEnv(envMLChat, MLDriverLocal)),
			PerplexityAPIKey: getEnv(envPerplexityAPIKey, ""),
			PerplexityURL:    getEnv(envPerplexityURL, defaultPerplexityURL),
			PerplexityModel:  getEnv(envPerplexityModel, defaultPerplexityModel),
			DeepgramAPIKey:   getEnv(envDeepgramAPIKey, ""),
			DeepgramURL:      getEnv(envDeepgramURL, defaultDeepgramURL),
			TaggerURL:        getEnv(envTaggerURL, ""),
			TaggerToken:      getEnv(envTaggerToken, ""),
			HTTPTimeout:      getDurationEnv(envMLHTTPTimeout, defaultMLHTTPTimeout),
		},
		Worker: WorkerConfig{
			StaleAfter:   getDurationEnv(envTaskStaleAfter, defaultTaskStaleAfter),
			ReapInterval: getDurationEnv(envReapInterval, defaultReapInterval),
		},
		Log: LogConfig{
			Level:  getEnv(envLogLevel, defaultLogLevel),
			Format: getEnv(envLogFormat, defaultLogFormat),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

// Validate checks settings shared by every process. Token secrets are
// checked separately by ValidateAPI since the worker never signs tokens.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("%s", messages.requiredEnvNotSet(envDBPassword))
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("%s", messages.unknownOption(envStoreDriver, c.Store.Driver, []string{StoreDriverPostgres, StoreDriverMemory}))
	}

	switch c.Queue.Driver {
	case QueueDriverSQS:
		if c.Queue.SQSQueueURL == "" {
			return fmt.Errorf("%s", messages.requiredEnvNotSet(envSQSQueueURL))
		}
	case QueueDriverRabbitMQ:
		if c.Queue.RabbitURL == "" {
			return fmt.Errorf("%s", messages.requiredEnvNotSet(envRabbitURL))
		}
	case QueueDriverMemory:
	default:
		return fmt.Errorf("%s", messages.unknownOption(envQueueDriver, c.Queue.Driver, []string{QueueDriverSQS, QueueDriverRabbitMQ, QueueDriverMemory}))
	}

	if c.Queue.MaxMessages < 1 || c.Queue.MaxMessages > maxSQSMessages {
		return fmt.Errorf(errMaxMessagesRangeFmt, maxSQSMessages)
	}

	if err := validateMLDriver(envMLSummarizer, c.ML.Summarizer); err != nil {
		return err
	}
	if err := validateMLDriver(envMLTagger, c.ML.Tagger); err != nil {
		return err
	}
	if err := validateMLDriver(envMLChat, c.ML.Chat); err != nil {
		return err
	}
	if c.ML.Summarizer == MLDriverRemote && c.ML.PerplexityAPIKey == "" {
		return fmt.Errorf(errRemoteNeedsKeyFmt, envMLSummarizer, envPerplexityAPIKey)
	}
	if c.ML.Chat == MLDriverRemote && c.ML.PerplexityAPIKey == "" {
		return fmt.Errorf(errRemoteNeedsKeyFmt, envMLChat, envPerplexityAPIKey)
	}
	if c.ML.Tagger == MLDriverRemote && c.ML.TaggerURL == "" {
		return fmt.Errorf(errRemoteNeedsKeyFmt, envMLTagger, envTaggerURL)
	}

	return nil
}

// ValidateAPI checks the settings only the HTTP server needs.
func (c *Config) ValidateAPI() error {
	if err := validateSecret(envJWTAccessSecret, c.JWT.AccessSecret); err != nil {
		return err
	}

	if err := validateSecret(envJWTRefreshSecret, c.JWT.RefreshSecret); err != nil {
		return err
	}

	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf(errSecretsMustDifferFmt)
	}

	return nil
}

func validateMLDriver(key, value string) error {
	switch value {
	case MLDriverLocal, MLDriverRemote:
		return nil
	default:
		return fmt.Errorf("%s", messages.unknownOption(key, value, []string{MLDriverLocal, MLDriverRemote}))
	}
}

func validateSecret(key, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s", messages.requiredEnvNotSet(key))
	}

	if len(secret) < minJWTSecretLength {
		return fmt.Errorf(errSecretMinLengthFmt, key, minJWTSecretLength)
	}

	if !hasMinimumEntropy(secret) {
		return fmt.Errorf(errSecretLowEntropyFmt, key)
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	if len(charCounts) < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
