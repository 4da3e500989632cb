package mq

import (
	"context"
	"fmt"

	"bookswap/internal/config"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Publisher 投递账本事件
type Publisher interface {
	Publish(ctx context.Context, topic, key, value string) error
	Close() error
}

// KafkaPublisher 基于 sarama 同步生产者
type KafkaPublisher struct {
	producer sarama.SyncProducer
}

// NewKafkaPublisher 初始化 Kafka 生产者
func NewKafkaPublisher(cfg *config.KafkaConfig) (*KafkaPublisher, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer), nil
}

// NewKafkaPublisherWithProducer 使用已有的生产者，测试时可传入 sarama mocks
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher Kafka 关闭时使用，只记录日志
type LogPublisher struct {
	log *logrus.Entry
}

func NewLogPublisher(log *logrus.Entry) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key, value string) error {
	p.log.WithFields(logrus.Fields{"topic": topic, "key": key}).Debug(value)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
