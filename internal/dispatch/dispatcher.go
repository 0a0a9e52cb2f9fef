package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"whatsapp-crm/internal/models"
	pkgmodels "whatsapp-crm/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const responseBodyLimit = 1024

// Dispatcher drains the webhook queue, fanning each item out to every active
// subscriber whose allowlist matches the event. Independent queue items run
// concurrently on a bounded worker group; deliveries to the subscribers of
// one item stay sequential so the attempt log keeps its audit ordering.
type Dispatcher struct {
	DB          *gorm.DB
	BatchSize   int
	MaxAttempts int
	BaseDelay   time.Duration
	Workers     int
	Environment string
	Version     string

	httpClient *http.Client
}

func NewDispatcher(db *gorm.DB, batchSize, maxAttempts int, baseDelay time.Duration, workers int, environment, version string) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		DB:          db,
		BatchSize:   batchSize,
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Workers:     workers,
		Environment: environment,
		Version:     version,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Run claims one batch of unprocessed queue items (oldest first) and delivers
// them. It returns the number of items processed.
func (d *Dispatcher) Run(ctx context.Context) (int, error) {
	var items []models.WebhookQueueItem
	err := d.DB.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at ASC").
		Limit(d.BatchSize).
		Find(&items).Error
	if err != nil {
		return 0, fmt.Errorf("claim queue batch: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	var subscribers []models.Webhook
	if err := d.DB.WithContext(ctx).Where("is_active = ?", true).Find(&subscribers).Error; err != nil {
		return 0, fmt.Errorf("load subscribers: %w", err)
	}

	jobs := make(chan models.WebhookQueueItem)
	var wg sync.WaitGroup
	for i := 0; i < d.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				d.processItem(ctx, item, subscribers)
			}
		}()
	}
	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	return len(items), nil
}

// processItem delivers one queue item to each matching subscriber and marks
// it processed exactly once, regardless of per-subscriber outcomes:
// redelivery is subscriber-scoped, not queue-scoped.
func (d *Dispatcher) processItem(ctx context.Context, item models.WebhookQueueItem, subscribers []models.Webhook) {
	data := Enrich(ctx, d.DB, item.Event, item.Payload)

	for i := range subscribers {
		sub := &subscribers[i]
		if !subscribesTo(sub, item.Event) {
			continue
		}
		if err := d.deliver(ctx, &item, sub, data); err != nil {
			logrus.WithFields(logrus.Fields{
				"webhook_id": sub.ID,
				"event":      item.Event,
				"error":      err,
			}).Warn("webhook delivery permanently failed")
		}
	}

	err := d.DB.WithContext(ctx).
		Model(&models.WebhookQueueItem{}).
		Where("id = ?", item.ID).
		Update("processed", true).Error
	if err != nil {
		logrus.WithError(err).WithField("item_id", item.ID).Error("mark queue item processed failed")
	}
}

// deliver POSTs the signed envelope to one subscriber, retrying with
// exponential backoff up to the attempt ceiling. Every attempt appends one
// log row.
func (d *Dispatcher) deliver(ctx context.Context, item *models.WebhookQueueItem, sub *models.Webhook, data map[string]interface{}) error {
	deliveryID := uuid.New()
	delay := d.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= d.MaxAttempts; attempt++ {
		envelope := pkgmodels.DeliveryEnvelope{
			Event:       item.Event,
			Version:     d.Version,
			Environment: d.Environment,
			Timestamp:   time.Now().Unix(),
			Delivery: pkgmodels.DeliveryInfo{
				ID:          deliveryID.String(),
				Attempt:     attempt,
				MaxAttempts: d.MaxAttempts,
			},
			Data: data,
			Context: map[string]interface{}{
				"queue_item_id": item.ID,
			},
		}
		body, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}

		status, respBody, err := d.post(ctx, sub, body, envelope, deliveryID)
		success := err == nil && status >= 200 && status < 300

		d.logAttempt(ctx, item, sub, body, status, respBody, attempt, success, err)

		if success {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("subscriber returned status %d", status)
		}

		if attempt < d.MaxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return lastErr
}

func (d *Dispatcher) post(ctx context.Context, sub *models.Webhook, body []byte, envelope pkgmodels.DeliveryEnvelope, deliveryID uuid.UUID) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", envelope.Event)
	req.Header.Set("X-Webhook-Version", d.Version)
	req.Header.Set("X-Webhook-Environment", d.Environment)
	req.Header.Set("X-Webhook-Delivery-Id", deliveryID.String())
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(envelope.Timestamp, 10))
	if sub.Secret != "" {
		req.Header.Set("X-Webhook-Signature", SignatureHeader(body, sub.Secret))
	}
	for k, v := range customHeaders(sub) {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	return resp.StatusCode, string(respBody), nil
}

func (d *Dispatcher) logAttempt(ctx context.Context, item *models.WebhookQueueItem, sub *models.Webhook, body []byte, status int, respBody string, attempt int, success bool, attemptErr error) {
	now := time.Now()
	entry := models.WebhookLog{
		ID:           uuid.New(),
		WebhookID:    sub.ID,
		QueueItemID:  item.ID,
		Event:        item.Event,
		Payload:      string(body),
		HTTPStatus:   status,
		ResponseBody: respBody,
		Attempt:      attempt,
		Success:      success,
		CompletedAt:  &now,
	}
	if attemptErr != nil {
		entry.ErrorMessage = attemptErr.Error()
	}
	if err := d.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		logrus.WithError(err).Error("append webhook log failed")
	}
}

// subscribesTo checks the subscriber's event allowlist; "*" subscribes to
// everything.
func subscribesTo(sub *models.Webhook, event string) bool {
	if sub.Events == "" {
		return false
	}
	var events []string
	if err := json.Unmarshal([]byte(sub.Events), &events); err != nil {
		logrus.WithField("webhook_id", sub.ID).Warn("subscriber allowlist is not valid JSON")
		return false
	}
	for _, e := range events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

func customHeaders(sub *models.Webhook) map[string]string {
	if sub.Headers == "" {
		return nil
	}
	headers := map[string]string{}
	if err := json.Unmarshal([]byte(sub.Headers), &headers); err != nil {
		logrus.WithField("webhook_id", sub.ID).Warn("subscriber custom headers are not valid JSON")
		return nil
	}
	return headers
}
