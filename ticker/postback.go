package ticker

// Postback is a server-pushed notification describing an order-state
// change, delivered inside a text frame of type "order". The ticker core
// treats this as a plain record; it performs no validation beyond JSON
// decoding.
type Postback struct {
	OrderID         string  `json:"order_id"`
	ExchangeOrderID string  `json:"exchange_order_id"`
	PlacedBy        string  `json:"placed_by"`
	Status          string  `json:"status"`
	StatusMessage   string  `json:"status_message"`
	TradingSymbol   string  `json:"tradingsymbol"`
	Exchange        string  `json:"exchange"`
	OrderType       string  `json:"order_type"`
	TransactionType string  `json:"transaction_type"`
	Validity        string  `json:"validity"`
	Product         string  `json:"product"`
	AveragePrice    float64 `json:"average_price"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	FilledQuantity  int     `json:"filled_quantity"`
	UnfilledQty     int     `json:"unfilled_quantity"`
	TriggerPrice    float64 `json:"trigger_price"`
	UserID          string  `json:"user_id"`
	OrderTimestamp  string  `json:"order_timestamp"`
	ExchangeTime    string  `json:"exchange_timestamp"`
	Checksum        string  `json:"checksum"`
}
