package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	// Domain is the externally reachable base URL of this service,
	// used to build webhook callback URLs handed to the crawler.
	Domain string `mapstructure:"domain"`
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	NATS struct {
		URL       string             `mapstructure:"url"`
		TaskQueue ConsumerNatsConfig `mapstructure:"taskQueue"`
		Tenants   ConsumerNatsConfig `mapstructure:"tenants"`
	} `mapstructure:"nats"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Crawler    ClientConfig     `mapstructure:"crawler"`
	Channels   ClientConfig     `mapstructure:"channels"`
	Nexus      ClientConfig     `mapstructure:"nexus"`
	Onboarding OnboardingConfig `mapstructure:"onboarding"`
	WorkerPools struct {
		PostCrawl PostCrawlWorkerPoolConfig `mapstructure:"postCrawl"`
	} `mapstructure:"workerPools"`
}

// ClientConfig holds connection settings for an external collaborator API
type ClientConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OnboardingConfig holds workflow tuning knobs and channel agent wiring
type OnboardingConfig struct {
	LinkWaitMaxAttempts    int               `mapstructure:"linkWaitMaxAttempts"`    // Attempts before the tenant-link waiter gives up
	LinkWaitRetryDelay     time.Duration     `mapstructure:"linkWaitRetryDelay"`     // Delay between tenant-link checks
	TaskLockTTL            time.Duration     `mapstructure:"taskLockTTL"`            // KV bucket TTL; stale locks expire after this
	FileStatusPollInterval time.Duration     `mapstructure:"fileStatusPollInterval"` // Delay between content file status polls
	FileStatusMaxAttempts  int               `mapstructure:"fileStatusMaxAttempts"`  // Polls per file before moving on
	AgentUUIDs             map[string]string `mapstructure:"agentUUIDs"`             // Passive agent key -> platform UUID
	WWCProfileAvatarURL    string            `mapstructure:"wwcProfileAvatarURL"`
}

// PostCrawlWorkerPoolConfig holds configuration for the post-crawl pipeline pool
type PostCrawlWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Max tasks allowed to block waiting for a worker
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// ConsumerNatsConfig holds configuration specific to a NATS consumer
type ConsumerNatsConfig struct {
	MaxAge       int64         `mapstructure:"maxAge"` // max age of messages in day
	Stream       string        `mapstructure:"stream"`
	Consumer     string        `mapstructure:"consumer"` // durable name
	QueueGroup   string        `mapstructure:"group"`
	SubjectList  []string      `mapstructure:"subjectList"`
	MaxDeliver   int           `mapstructure:"maxDeliver"`   // Max delivery attempts before terminal handling
	NakBaseDelay time.Duration `mapstructure:"nakBaseDelay"` // Base delay for backoff NAK
	NakMaxDelay  time.Duration `mapstructure:"nakMaxDelay"`  // Maximum delay for backoff NAK
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// Create new viper instance
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("database.postgresAutoMigrate", true)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.taskQueue.stream", "onboarding_tasks")
	v.SetDefault("nats.taskQueue.consumer", "onboarding_task_worker")
	v.SetDefault("nats.taskQueue.group", "onboarding_task_group")
	v.SetDefault("nats.taskQueue.subjectList", []string{"v1.onboarding.>"})
	v.SetDefault("nats.taskQueue.maxAge", 7)
	// One initial delivery plus sixty retries for the link waiter.
	v.SetDefault("nats.taskQueue.maxDeliver", 61)
	v.SetDefault("nats.taskQueue.nakBaseDelay", 10*time.Second)
	v.SetDefault("nats.taskQueue.nakMaxDelay", 10*time.Second)
	v.SetDefault("nats.tenants.stream", "tenant_events")
	v.SetDefault("nats.tenants.consumer", "onboarding_tenant_link")
	v.SetDefault("nats.tenants.group", "onboarding_tenant_link_group")
	v.SetDefault("nats.tenants.subjectList", []string{"v1.tenants.>"})
	v.SetDefault("nats.tenants.maxAge", 7)
	v.SetDefault("nats.tenants.maxDeliver", 5)
	v.SetDefault("nats.tenants.nakBaseDelay", 2*time.Second)
	v.SetDefault("nats.tenants.nakMaxDelay", 30*time.Second)

	// Collaborator client defaults
	v.SetDefault("crawler.timeout", 30*time.Second)
	v.SetDefault("channels.timeout", 15*time.Second)
	v.SetDefault("nexus.timeout", 60*time.Second)

	// Onboarding workflow defaults
	v.SetDefault("onboarding.linkWaitMaxAttempts", 60)
	v.SetDefault("onboarding.linkWaitRetryDelay", 10*time.Second)
	v.SetDefault("onboarding.taskLockTTL", 1800*time.Second)
	v.SetDefault("onboarding.fileStatusPollInterval", 3*time.Second)
	v.SetDefault("onboarding.fileStatusMaxAttempts", 60)

	// WorkerPools defaults
	v.SetDefault("workerPools.postCrawl.poolSize", 4)
	v.SetDefault("workerPools.postCrawl.queueSize", 256)
	v.SetDefault("workerPools.postCrawl.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default") // name of config file (without extension)
	v.SetConfigType("yaml")    // REQUIRED if the config file does not have the extension in the name

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("/etc/onboarding-orchestrator")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if domain := os.Getenv("DOMAIN"); domain != "" {
		v.Set("domain", domain)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		// Get the field tag value (mapstructure)
		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		// Build the env var path
		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		// Bind the env var
		_ = v.BindEnv(key)
	}
}
