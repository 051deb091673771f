package config

import "github.com/spf13/viper"

// Config holds typed configuration for the planner service.
type Config struct {
	LogLevel     string
	HTTPPort     string
	MetricsAddr  string
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers string
	OTelEndpoint string

	RateLimitPerMinute int
	AutoPlanEnabled    bool
	InstanceID         string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:           v.GetString("log_level"),
		HTTPPort:           v.GetString("http_port"),
		MetricsAddr:        v.GetString("metrics_addr"),
		PostgresDSN:        v.GetString("postgres_dsn"),
		RedisAddr:          v.GetString("redis_addr"),
		KafkaBrokers:       v.GetString("kafka_brokers"),
		OTelEndpoint:       v.GetString("otel_endpoint"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		AutoPlanEnabled:    v.GetBool("autoplan_enabled"),
		InstanceID:         v.GetString("instance_id"),
	}
}
