package orders

const (
	TopicOrderCreated = "storefront.order.created"
	TopicOrderStatus  = "storefront.order.status"
)

// Partition key = order_id so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
