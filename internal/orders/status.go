package orders

type OrderStatus string

const (
	StatusPlaced         OrderStatus = "placed"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusProcessing     OrderStatus = "processing"
	StatusShipped        OrderStatus = "shipped"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
	StatusReturned       OrderStatus = "returned"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

const (
	MethodPayNow        = "paynow"
	MethodPayOnDelivery = "cod"
)

var orderStatuses = map[OrderStatus]bool{
	StatusPlaced: true, StatusConfirmed: true, StatusProcessing: true,
	StatusShipped: true, StatusOutForDelivery: true, StatusDelivered: true,
	StatusCancelled: true, StatusReturned: true,
}

var paymentStatuses = map[PaymentStatus]bool{
	PaymentPending: true, PaymentPaid: true, PaymentFailed: true, PaymentRefunded: true,
}

func ValidOrderStatus(s OrderStatus) bool     { return orderStatuses[s] }
func ValidPaymentStatus(s PaymentStatus) bool { return paymentStatuses[s] }

// Staff may set any status from any other; there is no transition table.
// The looseness is deliberate manual-override room for back-office staff.
