package messaging

const (
	// TopicOrderCreated carries models.OrderCreatedEvent keyed by orderNo.
	TopicOrderCreated = "order-created"
	// TopicInventoryResult carries models.InventoryResultEvent keyed by
	// orderNo. On RabbitMQ it is the routing key.
	TopicInventoryResult = "notification.order"

	GroupInventory = "inventory-service-group"
	// GroupNotification consumes from the "notification.queue" queue.
	GroupNotification = "notification"

	ExchangeOrder = "order.exchange"
)
