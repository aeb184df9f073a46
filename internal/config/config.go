package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig `mapstructure:"log"`
	Database   DatabaseConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Tracing    TracingConfig `mapstructure:"tracing"`
	Redis      RedisConfig
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Report     ReportConfig     `mapstructure:"report"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string `mapstructure:"service_name"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AssessmentConfig 测评运行参数
type AssessmentConfig struct {
	SubmitGraceSeconds      int `mapstructure:"submit_grace_seconds"`
	ExpirySweepSeconds      int `mapstructure:"expiry_sweep_seconds"`
	QuestionCacheTTLSeconds int `mapstructure:"question_cache_ttl_seconds"`
	StartLockSeconds        int `mapstructure:"start_lock_seconds"`
}

func (c AssessmentConfig) SubmitGrace() time.Duration {
	return time.Duration(c.SubmitGraceSeconds) * time.Second
}

func (c AssessmentConfig) ExpirySweepInterval() time.Duration {
	if c.ExpirySweepSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.ExpirySweepSeconds) * time.Second
}

func (c AssessmentConfig) QuestionCacheTTL() time.Duration {
	return time.Duration(c.QuestionCacheTTLSeconds) * time.Second
}

func (c AssessmentConfig) StartLockTTL() time.Duration {
	if c.StartLockSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.StartLockSeconds) * time.Second
}

// ReportConfig 课程报告综合分权重，可热更新
type ReportConfig struct {
	ModuleWeight float64 `mapstructure:"module_weight"`
	QuizWeight   float64 `mapstructure:"quiz_weight"`
	FinalWeight  float64 `mapstructure:"final_weight"`
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("log.file", "logs/app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 30)

	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local_path", "./uploads")
	viper.SetDefault("tracing.service_name", "edu-portal-backend")

	viper.SetDefault("rate_limit.max_requests", 300)
	viper.SetDefault("rate_limit.window_minutes", 1)

	viper.SetDefault("assessment.submit_grace_seconds", 30)
	viper.SetDefault("assessment.expiry_sweep_seconds", 60)
	viper.SetDefault("assessment.question_cache_ttl_seconds", 300)
	viper.SetDefault("assessment.start_lock_seconds", 10)

	viper.SetDefault("report.module_weight", 0.2)
	viper.SetDefault("report.quiz_weight", 0.3)
	viper.SetDefault("report.final_weight", 0.5)
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("EDU_PORTAL")
	viper.AutomaticEnv()
	setDefaults()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")
	viper.BindEnv("server.port", "SERVER_PORT")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	viper.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Assessment / Report
	viper.BindEnv("assessment.submit_grace_seconds", "ASSESSMENT_SUBMIT_GRACE_SECONDS")
	viper.BindEnv("report.module_weight", "REPORT_MODULE_WEIGHT")
	viper.BindEnv("report.quiz_weight", "REPORT_QUIZ_WEIGHT")
	viper.BindEnv("report.final_weight", "REPORT_FINAL_WEIGHT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}
	if err := cfg.Report.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// Validate rejects negative weights and an all-zero blend.
func (r ReportConfig) Validate() error {
	if r.ModuleWeight < 0 || r.QuizWeight < 0 || r.FinalWeight < 0 {
		return fmt.Errorf("report weights must not be negative")
	}
	if r.ModuleWeight+r.QuizWeight+r.FinalWeight == 0 {
		return fmt.Errorf("report weights must not all be zero")
	}
	return nil
}
