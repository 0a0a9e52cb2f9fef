package models

// DeliveryEnvelope is the JSON body POSTed to subscriber endpoints. The HMAC
// signature is computed over the exact serialized form of this struct.
type DeliveryEnvelope struct {
	Event       string                 `json:"event"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Timestamp   int64                  `json:"timestamp"`
	Delivery    DeliveryInfo           `json:"delivery"`
	Data        map[string]interface{} `json:"data"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// DeliveryInfo identifies one delivery attempt to one subscriber.
type DeliveryInfo struct {
	ID          string `json:"id"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
