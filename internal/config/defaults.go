package config

import (
	"time"

	"github.com/spf13/viper"
)

// registerDefaults sets defaults on v so that every key is known to viper
// and can be overridden from the environment.
func registerDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.path_prefix", "")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit.requests_per_second", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)

	// Storage
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.trucks_table", "freight-trucks")
	v.SetDefault("storage.loads_table", "freight-loads")
	v.SetDefault("storage.fuel_table", "freight-fuel-purchases")
	v.SetDefault("storage.database_url", "")
	v.SetDefault("storage.sqlite_path", "freight.db")

	v.SetDefault("aws.region", "us-west-2")

	// Kinesis streams are off unless named
	v.SetDefault("kinesis.load_events_stream", "")
	v.SetDefault("kinesis.fuel_purchases_stream", "")
	v.SetDefault("kinesis.poll_interval", 5*time.Second)

	// Cache
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 10*time.Minute)

	// Distance
	v.SetDefault("distance.base_url", "")
	v.SetDefault("distance.timeout", 10*time.Second)
	v.SetDefault("distance.requests_per_second", 5.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
