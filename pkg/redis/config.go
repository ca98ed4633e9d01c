package redis

import "time"

// Config describes the Redis connection used to fan toggle changes out to
// other instances.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // Format: "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	Channel        string        `env:"REDIS_CHANGES_CHANNEL" envDefault:"toggler:changes"` // Pub/sub channel carrying toggle changes
}
