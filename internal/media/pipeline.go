package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/provider"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RepairResult is returned by the client-triggerable repair action.
type RepairResult string

const (
	RepairSuccess         RepairResult = "success"
	RepairAlreadyRepaired RepairResult = "already_repaired"
	RepairExpired         RepairResult = "expired"
	RepairTimeout         RepairResult = "timeout"
	RepairError           RepairResult = "error"
)

// Fetcher performs the on-demand provider media fetch (extraction strategy 3).
type Fetcher interface {
	FetchByMessage(ctx context.Context, inst *models.WhatsAppConfig, externalID, mediaRef string) ([]byte, string, error)
}

// ProviderFetcher routes the fetch to whichever provider API the instance
// belongs to.
type ProviderFetcher struct {
	WAHA *provider.WAHAClient
	Meta *provider.MetaClient
}

func (f *ProviderFetcher) FetchByMessage(ctx context.Context, inst *models.WhatsAppConfig, externalID, mediaRef string) ([]byte, string, error) {
	switch inst.Provider {
	case "meta":
		if mediaRef == "" {
			return nil, "", provider.ErrMediaGone
		}
		return f.Meta.FetchMessageMedia(ctx, inst.Token, mediaRef)
	default:
		return f.WAHA.FetchMessageMedia(ctx, provider.Instance{
			ID:      inst.ID,
			BaseURL: inst.BaseURL,
			Token:   inst.Token,
			Session: inst.Session,
		}, externalID)
	}
}

// Pipeline extracts message attachments into durable storage. The three
// strategies run in order, stopping at the first success: inline base64,
// direct provider URL, on-demand provider API fetch.
type Pipeline struct {
	Storage  Storage
	Fetcher  Fetcher
	Cooldown Cooldown

	httpClient *http.Client
}

func NewPipeline(storage Storage, fetcher Fetcher, cooldown Cooldown, timeout time.Duration) *Pipeline {
	return &Pipeline{
		Storage:    storage,
		Fetcher:    fetcher,
		Cooldown:   cooldown,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Extract resolves ref into durable storage and returns the stored URL and
// mime type. A provider.ErrMediaGone error means the provider no longer has
// the media; any other error is retry-recoverable.
func (p *Pipeline) Extract(ctx context.Context, inst *models.WhatsAppConfig, ref *provider.MediaRef, externalID string) (string, string, error) {
	if ref == nil {
		return "", "", errors.New("no media reference")
	}
	key := uuid.New().String()

	if ref.Base64Data != "" {
		data, err := base64.StdEncoding.DecodeString(ref.Base64Data)
		if err == nil {
			url, putErr := p.Storage.Put(ctx, key, ref.MimeType, data)
			if putErr == nil {
				return url, ref.MimeType, nil
			}
			return "", "", putErr
		}
		logrus.WithField("external_id", externalID).Warn("inline media payload is not valid base64")
	}

	if ref.URL != "" {
		data, err := p.fetchURL(ctx, ref.URL)
		if err == nil {
			url, putErr := p.Storage.Put(ctx, key, ref.MimeType, data)
			if putErr == nil {
				return url, ref.MimeType, nil
			}
			return "", "", putErr
		}
		logrus.WithFields(logrus.Fields{
			"external_id": externalID,
			"error":       err,
		}).Warn("direct media URL fetch failed, falling back to provider API")
	}

	data, mimeType, err := p.Fetcher.FetchByMessage(ctx, inst, externalID, ref.ProviderID)
	if err != nil {
		return "", "", err
	}
	if mimeType == "" {
		mimeType = ref.MimeType
	}
	url, err := p.Storage.Put(ctx, key, mimeType, data)
	if err != nil {
		return "", "", err
	}
	return url, mimeType, nil
}

func (p *Pipeline) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, provider.ErrMediaGone
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("media URL returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Repair re-attempts extraction for a stored message that still lacks a
// durable media reference, throttled per message by the cooldown window.
func (p *Pipeline) Repair(ctx context.Context, db *gorm.DB, messageID uuid.UUID) RepairResult {
	var msg models.Message
	if err := db.First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RepairError
		}
		logrus.WithError(err).Error("repair: load message failed")
		return RepairError
	}

	if msg.MediaURL != "" {
		return RepairAlreadyRepaired
	}
	if msg.ContentType == "text" {
		return RepairError
	}

	ok, err := p.Cooldown.TryAcquire(ctx, msg.ID.String())
	if err != nil {
		logrus.WithError(err).Warn("repair: cooldown check failed")
		return RepairError
	}
	if !ok {
		return RepairTimeout
	}

	var conv models.Conversation
	if err := db.First(&conv, "id = ?", msg.ConversationID).Error; err != nil {
		return RepairError
	}
	var inst models.WhatsAppConfig
	if err := db.First(&inst, "id = ?", conv.InstanceID).Error; err != nil {
		return RepairError
	}

	ref := &provider.MediaRef{ProviderID: msg.MediaRef, MimeType: msg.MediaMimeType}
	url, mimeType, err := p.Extract(ctx, &inst, ref, msg.ExternalID)
	switch {
	case err == nil:
	case errors.Is(err, provider.ErrMediaGone):
		return RepairExpired
	case errors.Is(err, context.DeadlineExceeded):
		return RepairTimeout
	default:
		logrus.WithError(err).WithField("message_id", msg.ID).Warn("media repair failed")
		return RepairError
	}

	updates := map[string]interface{}{"media_url": url}
	if mimeType != "" {
		updates["media_mime_type"] = mimeType
	}
	if err := db.Model(&msg).Updates(updates).Error; err != nil {
		logrus.WithError(err).Error("repair: persist media reference failed")
		return RepairError
	}
	return RepairSuccess
}
