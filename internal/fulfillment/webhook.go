package fulfillment

import (
	"encoding/json"
	"fmt"
	"time"
)

// Webhook event types delivered by the provider.
const (
	EventPackageShipped  = "package_shipped"
	EventOrderUpdated    = "order_updated"
	EventOrderCanceled   = "order_canceled"
	EventOrderFailed     = "order_failed"
	EventOrderPutHold    = "order_put_hold"
	EventOrderRemoveHold = "order_remove_hold"
	EventProductSynced   = "product_synced"
	EventProductUpdated  = "product_updated"
	EventProductDeleted  = "product_deleted"
)

// Event is a decoded provider webhook delivery.
type Event struct {
	Type       string
	Created    time.Time
	OrderID    string
	ExternalID string
	Status     string
	Reason     string
	Shipment   *ShipmentInfo
}

type ShipmentInfo struct {
	Carrier        string
	Service        string
	TrackingNumber string
	TrackingURL    string
	ShippedAt      time.Time
}

// IsProductEvent reports whether the event concerns the product catalog
// rather than an order.
func (e *Event) IsProductEvent() bool {
	switch e.Type {
	case EventProductSynced, EventProductUpdated, EventProductDeleted:
		return true
	}
	return false
}

type webhookPayload struct {
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Reason   string `json:"reason"`
		Shipment *struct {
			Carrier        string          `json:"carrier"`
			Service        string          `json:"service"`
			TrackingNumber json.RawMessage `json:"tracking_number"`
			TrackingURL    string          `json:"tracking_url"`
			ShippedAt      int64           `json:"shipped_at"`
		} `json:"shipment"`
		Order *struct {
			ID         json.Number `json:"id"`
			ExternalID string      `json:"external_id"`
			Status     string      `json:"status"`
		} `json:"order"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body. Unknown event types are returned as-is
// so the caller can acknowledge and ignore them.
func ParseEvent(payload []byte) (*Event, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode fulfillment webhook: %w", err)
	}
	if p.Type == "" {
		return nil, fmt.Errorf("decode fulfillment webhook: missing type")
	}

	ev := &Event{Type: p.Type, Reason: p.Data.Reason}
	if p.Created > 0 {
		ev.Created = time.Unix(p.Created, 0).UTC()
	}
	if o := p.Data.Order; o != nil {
		ev.OrderID = o.ID.String()
		ev.ExternalID = o.ExternalID
		ev.Status = o.Status
	}
	if s := p.Data.Shipment; s != nil {
		ev.Shipment = &ShipmentInfo{
			Carrier:        s.Carrier,
			Service:        s.Service,
			TrackingNumber: rawString(s.TrackingNumber),
			TrackingURL:    s.TrackingURL,
		}
		if s.ShippedAt > 0 {
			ev.Shipment.ShippedAt = time.Unix(s.ShippedAt, 0).UTC()
		}
	}
	return ev, nil
}

// rawString accepts tracking numbers sent either as JSON strings or numbers.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
