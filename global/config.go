package global

import (
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds everything the relay reads from the environment. Loaded once
// at startup; nothing re-reads env vars after that.
type Config struct {
	Port      int
	GatewayID string // must differ between relay instances sharing a broker

	FernetKey    string // base64 fernet key; empty means connections are refused
	ServerSecret string // bearer secret for the trusted HTTP bridge

	Broker       string // redis | nats | kafka | none
	RedisURL     string
	NatsURL      string
	KafkaBrokers []string
	KafkaTopic   string

	SendQueueSize int
	FanoutWorkers int
	FanoutQueue   int
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      envInt("PORT", 3000),
		GatewayID: envStr("GATEWAY_ID", "relay-"+uuid.NewString()[:8]),

		FernetKey:    os.Getenv("FERNET_KEY"),
		ServerSecret: os.Getenv("SERVER_SECRET"),

		Broker:       envStr("BROKER", "none"),
		RedisURL:     envStr("REDIS_URL", "redis://localhost:6379"),
		NatsURL:      envStr("NATS_URL", "nats://localhost:4222"),
		KafkaBrokers: envList("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   envStr("KAFKA_TOPIC", "aeolus-fanout"),

		SendQueueSize: envInt("SEND_QUEUE_SIZE", 256),
		FanoutWorkers: envInt("FANOUT_WORKERS", 4),
		FanoutQueue:   envInt("FANOUT_QUEUE", 1024),
	}
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envList(key, def string) []string {
	v := envStr(key, def)
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
