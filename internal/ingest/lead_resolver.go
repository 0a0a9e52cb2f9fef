package ingest

import (
	"context"
	"errors"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/phone"
	"whatsapp-crm/internal/provider"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LIDResolver translates an opaque contact reference into a phone-keyed chat
// id via the provider API. Implemented by provider.WAHAClient.
type LIDResolver interface {
	ResolveLID(ctx context.Context, inst provider.Instance, lid string) (string, error)
}

// LeadResolver maps a raw contact reference to a Lead.
type LeadResolver struct {
	DB  *gorm.DB
	LID LIDResolver
}

// Resolve returns the lead for the message sender (or recipient, for
// outbound echoes). A non-empty ignore reason with a nil lead means the
// event is filtered, not erroneous.
func (r *LeadResolver) Resolve(ctx context.Context, ev *provider.MessageEvent, inst *models.WhatsAppConfig) (*models.Lead, string, error) {
	ref := ev.From
	if ev.FromMe {
		ref = ev.To
	}

	// Group and broadcast chats never reach identity resolution.
	switch {
	case phone.IsGroup(ev.From) || phone.IsGroup(ev.To):
		return nil, ReasonGroupChat, nil
	case phone.IsBroadcast(ev.From) || phone.IsBroadcast(ev.To):
		return nil, ReasonBroadcast, nil
	}

	if phone.IsLID(ref) {
		return r.resolveLID(ctx, ev, inst, ref)
	}
	return r.resolvePhone(ctx, ev, inst, ref)
}

func (r *LeadResolver) resolvePhone(ctx context.Context, ev *provider.MessageEvent, inst *models.WhatsAppConfig, ref string) (*models.Lead, string, error) {
	canonical := phone.Normalize(ref)
	if canonical == "" {
		return nil, "", errors.New("missing sender identity")
	}

	// A provider may echo an outbound message back as an inbound event.
	if !ev.FromMe && inst.OwnNumber != "" && canonical == phone.Normalize(inst.OwnNumber) {
		return nil, ReasonSelfMessage, nil
	}

	lead, err := r.findByCandidates(ctx, phone.Candidates(ref))
	if err != nil {
		return nil, "", err
	}
	if lead != nil {
		r.refreshName(ctx, lead, ev.PushName)
		return lead, "", nil
	}

	lead = &models.Lead{
		ID:          uuid.New(),
		Phone:       canonical,
		Name:        ev.PushName,
		Temperature: "cold",
		Source:      "whatsapp",
		Status:      "active",
	}
	if err := r.DB.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, "", err
	}
	return lead, "", nil
}

// resolveLID handles the opaque-reference contact flow: payload introspection
// first, the provider resolution API second, and the raw reference as a
// temporary stable identity last.
func (r *LeadResolver) resolveLID(ctx context.Context, ev *provider.MessageEvent, inst *models.WhatsAppConfig, ref string) (*models.Lead, string, error) {
	lidValue := phone.LIDValue(ref)

	// A real phone elsewhere in the same payload settles it immediately.
	if ev.AltFrom != "" && phone.LooksLikePhone(phone.Digits(ev.AltFrom)) {
		return r.resolvePhone(ctx, ev, inst, ev.AltFrom)
	}

	if r.LID != nil && inst.Provider == "waha" {
		pn, err := r.LID.ResolveLID(ctx, provider.Instance{
			ID:      inst.ID,
			BaseURL: inst.BaseURL,
			Token:   inst.Token,
			Session: inst.Session,
		}, lidValue)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"lid":   lidValue,
				"error": err,
			}).Warn("provider LID resolution failed, falling back to opaque identity")
		} else if pn != "" {
			lead, reason, err := r.resolvePhone(ctx, ev, inst, pn)
			if lead != nil && lead.IsLID {
				// Resolution succeeded for a lead previously keyed by the
				// opaque reference: clear the flag.
				r.DB.WithContext(ctx).Model(lead).Updates(map[string]interface{}{"is_lid": false})
				lead.IsLID = false
			}
			return lead, reason, err
		}
	}

	// Unresolved. The opaque reference itself is a stable identity for
	// inbound traffic, so the same sender matches on subsequent messages.
	var lead models.Lead
	err := r.DB.WithContext(ctx).Where("lid_ref = ?", lidValue).First(&lead).Error
	if err == nil {
		r.refreshName(ctx, &lead, ev.PushName)
		return &lead, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	if ev.FromMe {
		// An outbound send to an unknown opaque recipient cannot be
		// attributed to anyone; discard.
		return nil, ReasonUnresolvedLID, nil
	}

	lead = models.Lead{
		ID:          uuid.New(),
		Name:        ev.PushName,
		IsLID:       true,
		LIDRef:      lidValue,
		Temperature: "cold",
		Source:      "whatsapp",
		Status:      "active",
	}
	if err := r.DB.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, "", err
	}
	return &lead, "", nil
}

// findByCandidates looks a lead up by any of the digit forms a legacy record
// may be stored under (with/without country code, 8/9 digit variants).
func (r *LeadResolver) findByCandidates(ctx context.Context, candidates []string) (*models.Lead, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var lead models.Lead
	err := r.DB.WithContext(ctx).
		Where("phone IN ?", candidates).
		Order("updated_at DESC").
		First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *LeadResolver) refreshName(ctx context.Context, lead *models.Lead, name string) {
	if name == "" || name == lead.Name {
		return
	}
	if err := r.DB.WithContext(ctx).Model(lead).Update("name", name).Error; err != nil {
		logrus.WithError(err).WithField("lead_id", lead.ID).Warn("lead name refresh failed")
		return
	}
	lead.Name = name
}
