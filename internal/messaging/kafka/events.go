package kafka

const (
	// TopicCatalogEvents: события customer.created, product.created, order.created и order.deleted.
	TopicCatalogEvents = "cms.catalog.events"
	// TopicDeadLetterQueue получает события, которые не удалось опубликовать за все попытки.
	TopicDeadLetterQueue = "cms.dlq"
)

// Заголовки сообщений, собранных из outbox.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)
