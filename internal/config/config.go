package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// StorageBackend selects the slot store implementation
type StorageBackend string

const (
	StorageBackendFile   StorageBackend = "file"
	StorageBackendMemory StorageBackend = "memory"
	StorageBackendRedis  StorageBackend = "redis"
)

// ExportSink selects where asynchronously exported PDFs are written
type ExportSink string

const (
	ExportSinkLocal ExportSink = "local"
	ExportSinkMinio ExportSink = "minio"
)

type Configuration struct {
	Server  ServerConfig  `validate:"required"`
	Logging LoggingConfig `validate:"required"`
	Storage StorageConfig `validate:"required"`
	Redis   RedisConfig
	Export  ExportConfig `validate:"required"`
	Minio   MinioConfig
	Jobs    JobsConfig
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

type StorageConfig struct {
	Backend  StorageBackend `validate:"required,oneof=file memory redis"`
	Key      string         `validate:"required"`
	Dir      string
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gte=0"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ExportConfig struct {
	Sink ExportSink `validate:"required,oneof=local minio"`
	Dir  string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type JobsConfig struct {
	ExportDelay           time.Duration `mapstructure:"export_delay"`
	EmailDelay            time.Duration `mapstructure:"email_delay"`
	ExportTimeout         time.Duration `mapstructure:"export_timeout"`
	NotificationRetention time.Duration `mapstructure:"notification_retention"`
	PruneInterval         time.Duration `mapstructure:"prune_interval"`
}

// NewConfig reads config.yaml (if present) and INVOICER_* environment
// variables on top of the defaults.
func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/invoicer")

	v.SetEnvPrefix("INVOICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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
	d := GetDefaultConfig()
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("storage.backend", string(d.Storage.Backend))
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.max_bytes", d.Storage.MaxBytes)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("export.sink", string(d.Export.Sink))
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("minio.endpoint", d.Minio.Endpoint)
	v.SetDefault("minio.access_key", d.Minio.AccessKey)
	v.SetDefault("minio.secret_key", d.Minio.SecretKey)
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", d.Minio.Bucket)
	v.SetDefault("minio.url_expiry", d.Minio.URLExpiry)
	v.SetDefault("jobs.export_delay", d.Jobs.ExportDelay)
	v.SetDefault("jobs.email_delay", d.Jobs.EmailDelay)
	v.SetDefault("jobs.export_timeout", d.Jobs.ExportTimeout)
	v.SetDefault("jobs.notification_retention", d.Jobs.NotificationRetention)
	v.SetDefault("jobs.prune_interval", d.Jobs.PruneInterval)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns the configuration used for local development
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			Backend:  StorageBackendFile,
			Key:      "savedInvoice",
			Dir:      "./data",
			MaxBytes: 5 << 20, // same order as a browser localStorage quota
		},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Export: ExportConfig{Sink: ExportSinkLocal, Dir: "./exports"},
		Minio: MinioConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "invoices",
			URLExpiry: 24 * time.Hour,
		},
		Jobs: JobsConfig{
			ExportDelay:           500 * time.Millisecond,
			EmailDelay:            2 * time.Second,
			ExportTimeout:         2 * time.Minute,
			NotificationRetention: time.Hour,
			PruneInterval:         10 * time.Minute,
		},
	}
}
