package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/ingest"
	"whatsapp-crm/internal/media"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const wahaTextBody = `{
	"event": "message",
	"session": "default",
	"payload": {
		"id": "false_551199998888@c.us_ABC123",
		"timestamp": 1717000000,
		"from": "551199998888@c.us",
		"to": "5511000000000@c.us",
		"fromMe": false,
		"body": "oi, quero um orçamento",
		"hasMedia": false,
		"_data": {"notifyName": "Maria"}
	}
}`

type stubLIDResolver struct{}

func (stubLIDResolver) ResolveLID(context.Context, provider.Instance, string) (string, error) {
	return "", provider.ErrUnauthorized
}

type stubFetcher struct{}

func (stubFetcher) FetchByMessage(context.Context, *models.WhatsAppConfig, string, string) ([]byte, string, error) {
	return nil, "", provider.ErrMediaGone
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	storage := media.NewDiskStorage(t.TempDir(), "/media")
	mediaPipeline := media.NewPipeline(storage, stubFetcher{}, media.NewMemoryCooldown(time.Minute), time.Second)
	pipeline := ingest.NewPipeline(db, stubLIDResolver{}, mediaPipeline)

	cfg := &config.Config{VerifyToken: "verify-me"}
	webhookHandler := NewWebhookHandler(cfg, db, pipeline)
	messageHandler := NewMessageHandler(db, mediaPipeline)

	r := gin.New()
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleWebhook)
	r.POST("/api/messages/:id/repair-media", messageHandler.RepairMedia)
	return r, db
}

func createInstance(t *testing.T, db *gorm.DB) models.WhatsAppConfig {
	t.Helper()
	inst := models.WhatsAppConfig{
		ID:        uuid.New(),
		Provider:  "waha",
		Session:   "default",
		OwnNumber: "5511000000000",
		IsActive:  true,
	}
	require.NoError(t, db.Create(&inst).Error)
	return inst
}

func TestVerifyWebhook(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleWebhookProcessesMessage(t *testing.T) {
	r, db := newTestRouter(t)
	createInstance(t, db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(wahaTextBody))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []ingest.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, ingest.StatusProcessed, resp.Results[0].Status)

	var count int64
	db.Model(&models.Message{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestHandleWebhookRedeliveryIsDuplicate(t *testing.T) {
	r, db := newTestRouter(t)
	createInstance(t, db)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(wahaTextBody))
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(wahaTextBody))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []ingest.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, ingest.StatusDuplicate, resp.Results[0].Status)

	var count int64
	db.Model(&models.Message{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestHandleWebhookUnknownProtocol(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"hello":"world"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_protocol")
}

func TestHandleWebhookUnknownInstance(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(wahaTextBody))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_instance")
}

func TestRepairMediaAlreadyRepaired(t *testing.T) {
	r, db := newTestRouter(t)
	inst := createInstance(t, db)

	lead := models.Lead{ID: uuid.New(), Phone: "1199998888"}
	require.NoError(t, db.Create(&lead).Error)
	conv := models.Conversation{ID: uuid.New(), LeadID: lead.ID, InstanceID: inst.ID}
	require.NoError(t, db.Create(&conv).Error)
	msg := models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		LeadID:         lead.ID,
		Direction:      "in",
		ContentType:    "image",
		MediaURL:       "/media/already.jpeg",
		DedupKey:       "k1",
	}
	require.NoError(t, db.Create(&msg).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages/"+msg.ID.String()+"/repair-media", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already_repaired")
	assert.Contains(t, w.Body.String(), "/media/already.jpeg")
}

func TestRepairMediaExpired(t *testing.T) {
	r, db := newTestRouter(t)
	inst := createInstance(t, db)

	lead := models.Lead{ID: uuid.New(), Phone: "1199998888"}
	require.NoError(t, db.Create(&lead).Error)
	conv := models.Conversation{ID: uuid.New(), LeadID: lead.ID, InstanceID: inst.ID}
	require.NoError(t, db.Create(&conv).Error)
	msg := models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		LeadID:         lead.ID,
		Direction:      "in",
		ContentType:    "image",
		ExternalID:     "ext-1",
		DedupKey:       "k2",
	}
	require.NoError(t, db.Create(&msg).Error)

	// stub fetcher reports the provider no longer has the media
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages/"+msg.ID.String()+"/repair-media", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusGone, w.Code)

	// second attempt inside the cooldown window is throttled
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/messages/"+msg.ID.String()+"/repair-media", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
