package fulfillment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent_PackageShipped(t *testing.T) {
	payload := []byte(`{
		"type": "package_shipped",
		"created": 1700000000,
		"retries": 0,
		"store": 42,
		"data": {
			"shipment": {"carrier": "UPS", "service": "Ground", "tracking_number": "1Z999", "tracking_url": "https://track.example/1Z999", "shipped_at": 1700000100},
			"order": {"id": 9001, "external_id": "ORD-1", "status": "fulfilled"}
		}
	}`)

	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventPackageShipped, ev.Type)
	assert.Equal(t, "9001", ev.OrderID)
	assert.Equal(t, "ORD-1", ev.ExternalID)
	require.NotNil(t, ev.Shipment)
	assert.Equal(t, "1Z999", ev.Shipment.TrackingNumber)
	assert.Equal(t, time.Unix(1700000100, 0).UTC(), ev.Shipment.ShippedAt)
	assert.False(t, ev.IsProductEvent())
}

func TestParseEvent_NumericTrackingNumber(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"package_shipped","data":{"shipment":{"tracking_number":123456},"order":{"id":"9002"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "123456", ev.Shipment.TrackingNumber)
	assert.Equal(t, "9002", ev.OrderID)
}

func TestParseEvent_ProductAndInvalid(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"product_updated","data":{"sync_product":{"id":1}}}`))
	require.NoError(t, err)
	assert.True(t, ev.IsProductEvent())
	assert.Empty(t, ev.OrderID)

	_, err = ParseEvent([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}
