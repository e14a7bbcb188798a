package broker

import (
	"context"
	"encoding/json"
	"time"

	"aeolus/logger"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
)

// Kafka fans envelopes out over a single topic, keyed by channel id so one
// channel's events stay on one partition. Every instance consumes every
// partition from the newest offset: fan-out wants all instances to see all
// envelopes, so no consumer group is involved.
type Kafka struct {
	client sarama.Client
	prod   sarama.SyncProducer
	cons   sarama.Consumer
	topic  string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	cfg.Net.DialTimeout = 10 * time.Second

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "kafka client")
	}
	prod, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "kafka producer")
	}
	cons, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = prod.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "kafka consumer")
	}
	return &Kafka{client: client, prod: prod, cons: cons, topic: topic}, nil
}

func (b *Kafka) Publish(_ context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	_, _, err = b.prod.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(channel),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (b *Kafka) Subscribe(h Handler) error {
	parts, err := b.cons.Partitions(b.topic)
	if err != nil {
		return errors.Wrap(err, "list partitions")
	}
	for _, p := range parts {
		pc, err := b.cons.ConsumePartition(b.topic, p, sarama.OffsetNewest)
		if err != nil {
			return errors.Wrapf(err, "consume partition %d", p)
		}
		go func(pc sarama.PartitionConsumer) {
			for msg := range pc.Messages() {
				var env Envelope
				if err := json.Unmarshal(msg.Value, &env); err != nil {
					logger.Warnf("kafka broker: bad envelope at offset %d: %v", msg.Offset, err)
					continue
				}
				h(env)
			}
		}(pc)
		go func(pc sarama.PartitionConsumer) {
			for err := range pc.Errors() {
				logger.Errorf("kafka broker: consume error: %v", err)
			}
		}(pc)
	}
	return nil
}

func (b *Kafka) Close() error {
	_ = b.cons.Close()
	_ = b.prod.Close()
	return b.client.Close()
}
