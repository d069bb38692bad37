package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/messaging/kafka"
)

// initKafkaProducer подключается к брокерам из CMS_KAFKA_BROKERS.
// Пустой список означает, что публикация событий выключена: nil, nil.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	list := splitBrokers(brokers)
	if len(list) == 0 {
		logger.Info("kafka brokers are not configured, catalog events stay in outbox")
		return nil, nil
	}

	producer, err := kafka.NewProducer(list, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).WithField("brokers", list).Warn("kafka is unavailable, continuing without event publishing")
		return nil, err
	}
	logger.WithField("brokers", list).Info("kafka producer initialized")
	return producer, nil
}

// splitBrokers разбирает список "host:port" через запятую, пустые элементы отбрасываются.
func splitBrokers(brokers string) []string {
	fields := strings.FieldsFunc(brokers, func(r rune) bool { return r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
