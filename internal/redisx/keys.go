package redisx

import "time"

const (
	// Idempotency for order creation: idem:order:create:{transaction_id} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cached order status blob: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"

	// Cached product document: product:{product_id}
	KeyProduct = "product:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency  = 24 * time.Hour
	TTLStatusCache  = 5 * time.Minute
	TTLProductCache = 2 * time.Minute
	TTLDedup        = 48 * time.Hour
)
