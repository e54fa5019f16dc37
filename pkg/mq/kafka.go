package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// 留言墙领域事件类型，供外部协作方（截图服务、通知等）消费
const (
	EventMessagePosted     = "message.posted"
	EventReplyPosted       = "reply.posted"
	EventVisibilityUpdated = "visibility.updated"
)

// Event 发往 Kafka 的领域事件
type Event struct {
	Type       string    `json:"type"`
	MemberID   string    `json:"member_id"`
	MessageID  string    `json:"message_id"`
	SequenceNo int64     `json:"sequence_no,omitempty"`
	Denied     *bool     `json:"denied,omitempty"`
	At         time.Time `json:"at"`
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	// 同一面墙的事件用 memberID 做 key，保证分区内有序
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("启动 Sarama 生产者失败: %w", err)
	}

	return &KafkaProducer{
		producer: producer,
		topic:    topic,
	}, nil
}

// Publish 发布一条领域事件
func (k *KafkaProducer) Publish(event Event) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.MemberID),
		Value: sarama.ByteEncoder(bytes),
	}

	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("发送事件到 kafka 失败: %w", err)
	}
	return nil
}

func (k *KafkaProducer) Close() error {
	return k.producer.Close()
}
