package kafka

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

var errPublisherNotReady = errors.New("kafka outbox publisher is not initialized")

// catalogEnvelope: значение сообщения в топике событий каталога.
type catalogEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OutboxPublisher отправляет сообщения outbox в один топик.
// Ключ сообщения: id агрегата, поэтому события одного клиента или заказа попадают в одну партицию.
type OutboxPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт публикатор; пустой topic означает TopicCatalogEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxPublisher {
	if topic == "" {
		topic = TopicCatalogEvents
	}
	return &OutboxPublisher{producer: producer, topic: topic}
}

func (p *OutboxPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotReady
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	return p.producer.PublishJSON(p.topic, key, catalogEnvelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}, outboxHeaders(msg)...)
}

func outboxHeaders(msg domain.OutboxMessage) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(msg.EventType)},
		{Key: []byte(HeaderAggregateType), Value: []byte(msg.AggregateType)},
		{Key: []byte(HeaderOutboxID), Value: []byte(msg.ID)},
	}
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
