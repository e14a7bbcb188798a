package main

import (
	"fmt"

	"aeolus/api"
	"aeolus/global"
	"aeolus/logger"
	"aeolus/service/broker"
	"aeolus/service/relay"
	"aeolus/service/token"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := global.Load()

	codec := token.NewCodec(cfg.FernetKey, token.DefaultTTL)
	brk := buildBroker(cfg)

	reg := relay.NewRegistry()
	emit := relay.NewEmitter(reg, brk, cfg.GatewayID, cfg.FanoutWorkers, cfg.FanoutQueue)
	if err := emit.Start(); err != nil {
		logger.Fatalf("broker subscribe failed: %v", err)
	}
	defer emit.Close()

	router := relay.NewRouter(reg, emit)
	srv := relay.NewServer(codec, reg, router, cfg.SendQueueSize)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", srv.HandleWS)
	api.NewHandlers(emit).Register(r, cfg.ServerSecret)

	logger.Infof("relay %s listening on :%d", cfg.GatewayID, cfg.Port)
	logger.Infof("fernet auth: %s", configured(cfg.FernetKey != ""))
	logger.Infof("server secret: %s", configured(cfg.ServerSecret != ""))

	if err := r.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Fatalf("http server failed: %v", err)
	}
}

func buildBroker(cfg *global.Config) broker.Broker {
	switch cfg.Broker {
	case "redis":
		b, err := broker.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("redis broker: %v", err)
		}
		logger.Infof("redis fan-out enabled: %s", cfg.RedisURL)
		return b
	case "nats":
		b, err := broker.NewNats(cfg.NatsURL)
		if err != nil {
			logger.Fatalf("nats broker: %v", err)
		}
		logger.Infof("nats fan-out enabled: %s", cfg.NatsURL)
		return b
	case "kafka":
		b, err := broker.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Fatalf("kafka broker: %v", err)
		}
		logger.Infof("kafka fan-out enabled: %v topic=%s", cfg.KafkaBrokers, cfg.KafkaTopic)
		return b
	default:
		logger.Warn("BROKER not set - multi-instance fan-out will not work correctly")
		return broker.Noop{}
	}
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "NOT configured"
}
