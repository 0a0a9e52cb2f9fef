package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wahaTextBody = `{
	"event": "message",
	"session": "default",
	"payload": {
		"id": "true_551199998888@c.us_ABC123",
		"timestamp": 1717000000,
		"from": "551199998888@c.us",
		"fromMe": false,
		"to": "5511000000000@c.us",
		"type": "chat",
		"body": "Olá",
		"hasMedia": false,
		"_data": {"notifyName": "Maria"}
	}
}`

const wahaAckBody = `{
	"event": "message.ack",
	"session": "default",
	"payload": {
		"id": "true_551199998888@c.us_ABC123",
		"ack": 2,
		"ackName": "DEVICE"
	}
}`

const metaBody = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "entry-1",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"metadata": {"display_phone_number": "5511000000000", "phone_number_id": "1098765"},
				"contacts": [{"profile": {"name": "Maria"}, "wa_id": "5511999998888"}],
				"messages": [{
					"from": "5511999998888",
					"id": "wamid.HBgA==",
					"timestamp": "1717000000",
					"type": "image",
					"image": {"id": "media-77", "mime_type": "image/jpeg", "caption": "foto"}
				}]
			}
		}]
	}]
}`

const metaStatusBody = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"changes": [{
			"field": "messages",
			"value": {
				"metadata": {"phone_number_id": "1098765"},
				"statuses": [{"id": "wamid.OUT==", "status": "read", "timestamp": "1717000001"}]
			}
		}]
	}]
}`

func TestDetect(t *testing.T) {
	assert.Equal(t, KindWAHA, Detect([]byte(wahaTextBody)))
	assert.Equal(t, KindMeta, Detect([]byte(metaBody)))
	assert.Equal(t, KindUnknown, Detect([]byte(`{"foo":"bar"}`)))
	assert.Equal(t, KindUnknown, Detect([]byte(`not json`)))
}

func TestWAHAAdapterParseMessage(t *testing.T) {
	events, err := (&WAHAAdapter{}).Parse([]byte(wahaTextBody))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "message", ev.Type)
	assert.Equal(t, "default", ev.Session)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "true_551199998888@c.us_ABC123", ev.Message.ExternalID)
	assert.Equal(t, "551199998888@c.us", ev.Message.From)
	assert.False(t, ev.Message.FromMe)
	assert.Equal(t, "text", ev.Message.ContentType)
	assert.Equal(t, "Olá", ev.Message.Body)
	assert.Equal(t, "Maria", ev.Message.PushName)
	assert.Nil(t, ev.Message.Media)
}

func TestWAHAAdapterParseAck(t *testing.T) {
	events, err := (&WAHAAdapter{}).Parse([]byte(wahaAckBody))
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NotNil(t, events[0].Ack)
	assert.Equal(t, "ack", events[0].Type)
	assert.Equal(t, "delivered", events[0].Ack.Status)
	assert.Equal(t, "true_551199998888@c.us_ABC123", events[0].Ack.ExternalID)
}

func TestWAHAAdapterIgnoresOtherEvents(t *testing.T) {
	events, err := (&WAHAAdapter{}).Parse([]byte(`{"event":"session.status","session":"default","payload":{}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "other", events[0].Type)
}

func TestMetaAdapterParseMessage(t *testing.T) {
	events, err := (&MetaAdapter{}).Parse([]byte(metaBody))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "message", ev.Type)
	assert.Equal(t, "1098765", ev.Session)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "wamid.HBgA==", ev.Message.ExternalID)
	assert.Equal(t, "5511999998888", ev.Message.From)
	assert.Equal(t, "image", ev.Message.ContentType)
	assert.Equal(t, "Maria", ev.Message.PushName)
	assert.Equal(t, "foto", ev.Message.Body)
	require.NotNil(t, ev.Message.Media)
	assert.Equal(t, "media-77", ev.Message.Media.ProviderID)
	assert.Equal(t, "image/jpeg", ev.Message.Media.MimeType)
}

func TestMetaAdapterParseStatus(t *testing.T) {
	events, err := (&MetaAdapter{}).Parse([]byte(metaStatusBody))
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NotNil(t, events[0].Ack)
	assert.Equal(t, "read", events[0].Ack.Status)
	assert.Equal(t, "wamid.OUT==", events[0].Ack.ExternalID)
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "551199998888@c.us_ABC123", DedupKey("true_551199998888@c.us_ABC123"))
	assert.Equal(t, "551199998888@c.us_ABC123", DedupKey("false_551199998888@c.us_ABC123"))
	assert.Equal(t, "wamid.HBgA==", DedupKey("wamid.HBgA=="))
	// redelivery with and without the prefix collapses to the same key
	assert.Equal(t, DedupKey("true_x@c.us_1"), DedupKey("x@c.us_1"))
}
