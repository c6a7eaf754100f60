// internal/admission/service.go

// Package admission runs the validation, dedup, consent and rendering steps
// exactly once per notification before it enters the queue.
package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notification-pipeline/internal/common/errors"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/common/metrics"
	"notification-pipeline/internal/models"
	"notification-pipeline/internal/queue"
	"notification-pipeline/internal/store"
)

// Request is one inbound notification, standalone or as a bulk batch item.
type Request struct {
	TenantID       string            `json:"tenantId"`
	RecipientID    string            `json:"recipientId,omitempty"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Channel        models.Channel    `json:"channel"`
	Subject        string            `json:"subject,omitempty"`
	Body           string            `json:"body,omitempty"`
	TemplateID     string            `json:"templateId,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
	Priority       models.Priority   `json:"priority,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	ScheduledAt    *time.Time        `json:"scheduledAt,omitempty"`
	MaxRetries     *int              `json:"maxRetries,omitempty"`
}

// Receipt is returned synchronously to the CRUD layer.
type Receipt struct {
	NotificationID string        `json:"notificationId"`
	Status         models.Status `json:"status"`
	Duplicate      bool          `json:"duplicate"`
}

// BatchResult pairs one bulk item's outcome with its index.
type BatchResult struct {
	Index   int      `json:"index"`
	Receipt *Receipt `json:"receipt,omitempty"`
	Err     error    `json:"-"`
}

type Service struct {
	notifications *store.NotificationStore
	recipients    *store.RecipientStore
	logs          *store.DeliveryLogStore
	publisher     queue.Publisher
	cache         *IdempotencyCache
	logger        logger.Logger

	defaultMaxRetries int
	now               func() time.Time
}

func NewService(
	notifications *store.NotificationStore,
	recipients *store.RecipientStore,
	logs *store.DeliveryLogStore,
	publisher queue.Publisher,
	cache *IdempotencyCache,
	log logger.Logger,
	defaultMaxRetries int,
) *Service {
	return &Service{
		notifications:     notifications,
		recipients:        recipients,
		logs:              logs,
		publisher:         publisher,
		cache:             cache,
		logger:            log.WithFields(map[string]interface{}{"component": "admission"}),
		defaultMaxRetries: defaultMaxRetries,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Admit runs the full pipeline for one request and publishes the resulting
// notification. A failed publish leaves the row PENDING for the scheduler's
// stale-pending sweep, never lost.
func (s *Service) Admit(ctx context.Context, req *Request) (*Receipt, error) {
	n, receipt, err := s.prepare(ctx, req)
	if err != nil {
		metrics.NotificationsRejected.WithLabelValues(string(req.Channel), string(errors.Code(err))).Inc()
		return nil, err
	}
	if receipt != nil {
		// Idempotency hit; the original receipt stands.
		return receipt, nil
	}

	metrics.NotificationsAdmitted.WithLabelValues(string(n.Channel)).Inc()

	if n.Status == models.StatusPending && n.ScheduledAt != nil && n.ScheduledAt.After(s.now()) {
		// Future-dated: stays PENDING until the scheduler's due-pending
		// sweep publishes it.
		return &Receipt{NotificationID: n.ID, Status: n.Status}, nil
	}

	s.publishAdmitted(ctx, []*models.Notification{n})
	fresh, err := s.notifications.GetByID(ctx, n.ID)
	if err != nil {
		// The notification exists; report the pre-publish status rather
		// than failing the admission.
		return &Receipt{NotificationID: n.ID, Status: n.Status}, nil
	}
	return &Receipt{NotificationID: fresh.ID, Status: fresh.Status}, nil
}

// AdmitBatch runs the same steps per item, then performs a single batch
// publish and a single batch status update for everything that passed.
func (s *Service) AdmitBatch(ctx context.Context, reqs []*Request) []BatchResult {
	results := make([]BatchResult, len(reqs))
	admitted := make([]*models.Notification, 0, len(reqs))

	for i, req := range reqs {
		n, receipt, err := s.prepare(ctx, req)
		if err != nil {
			metrics.NotificationsRejected.WithLabelValues(string(req.Channel), string(errors.Code(err))).Inc()
			results[i] = BatchResult{Index: i, Err: err}
			continue
		}
		if receipt != nil {
			results[i] = BatchResult{Index: i, Receipt: receipt}
			continue
		}

		metrics.NotificationsAdmitted.WithLabelValues(string(n.Channel)).Inc()
		results[i] = BatchResult{Index: i, Receipt: &Receipt{NotificationID: n.ID, Status: n.Status}}

		if n.ScheduledAt != nil && n.ScheduledAt.After(s.now()) {
			continue
		}
		admitted = append(admitted, n)
	}

	s.publishAdmitted(ctx, admitted)

	for i := range results {
		if results[i].Receipt == nil || results[i].Receipt.Duplicate {
			continue
		}
		for _, n := range admitted {
			if n.ID == results[i].Receipt.NotificationID {
				results[i].Receipt.Status = n.Status
			}
		}
	}
	return results
}

// prepare runs the short-circuiting admission steps up to and including the
// PENDING persist. It returns a non-nil receipt for idempotency hits.
func (s *Service) prepare(ctx context.Context, req *Request) (*models.Notification, *Receipt, error) {
	if stdErr := ValidateRequest(req); stdErr != nil {
		return nil, nil, stdErr
	}

	// Step 1: idempotency. A repeated (tenant, key) pair is a no-op, not an
	// error; the caller gets the original notification back.
	if req.IdempotencyKey != "" {
		if id := s.cache.Lookup(ctx, req.TenantID, req.IdempotencyKey); id != "" {
			if existing, err := s.notifications.GetByID(ctx, id); err == nil {
				return nil, &Receipt{NotificationID: existing.ID, Status: existing.Status, Duplicate: true}, nil
			}
		}
		existing, err := s.notifications.FindByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey)
		if err != nil {
			return nil, nil, errors.NewDatabaseUnavailableError(err)
		}
		if existing != nil {
			s.cache.Store(ctx, req.TenantID, req.IdempotencyKey, existing.ID)
			return nil, &Receipt{NotificationID: existing.ID, Status: existing.Status, Duplicate: true}, nil
		}
	}

	// Step 2: recipient resolution.
	recipient, err := s.resolveRecipient(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	// Step 3: preference and quiet hours.
	if err := s.checkPreference(ctx, recipient, req.Channel); err != nil {
		return nil, nil, err
	}

	// Step 4: template rendering.
	subject, body, err := s.renderContent(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	maxRetries := s.defaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	n := &models.Notification{
		ID:             uuid.New().String(),
		TenantID:       req.TenantID,
		RecipientID:    recipient.ID,
		Channel:        req.Channel,
		Subject:        subject,
		Body:           body,
		TemplateID:     req.TemplateID,
		Priority:       priority,
		IdempotencyKey: req.IdempotencyKey,
		ScheduledAt:    req.ScheduledAt,
		Status:         models.StatusPending,
		RetryCount:     0,
		MaxRetries:     maxRetries,
		CreatedAt:      s.now(),
	}

	// Step 5: persist PENDING.
	if err := s.notifications.Insert(ctx, n); err != nil {
		// A concurrent duplicate submission may have won the unique
		// (tenant, key) race; return its receipt.
		if req.IdempotencyKey != "" {
			if existing, lookupErr := s.notifications.FindByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey); lookupErr == nil && existing != nil {
				s.cache.Store(ctx, req.TenantID, req.IdempotencyKey, existing.ID)
				return nil, &Receipt{NotificationID: existing.ID, Status: existing.Status, Duplicate: true}, nil
			}
		}
		return nil, nil, errors.NewDatabaseUnavailableError(err)
	}

	if req.IdempotencyKey != "" {
		s.cache.Store(ctx, req.TenantID, req.IdempotencyKey, n.ID)
	}
	return n, nil, nil
}

// publishAdmitted performs step 6 for a set of freshly persisted
// notifications: one batch publish, one batch QUEUED update. On publish
// failure the rows stay PENDING and the scheduler sweep recovers them.
func (s *Service) publishAdmitted(ctx context.Context, batch []*models.Notification) {
	if len(batch) == 0 {
		return
	}

	ids := make([]string, 0, len(batch))
	for _, n := range batch {
		ids = append(ids, n.ID)
	}

	if err := s.publisher.PublishBatch(ctx, ids); err != nil {
		s.logger.Error("publish failed, notifications stay pending", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
		return
	}

	queuedAt := s.now()
	if err := s.notifications.MarkQueued(ctx, ids, queuedAt); err != nil {
		s.logger.Error("mark queued failed after publish", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
		return
	}

	for _, n := range batch {
		n.Status = models.StatusQueued
		n.QueuedAt = &queuedAt
		if err := s.logs.Append(ctx, &models.DeliveryLog{
			ID:             uuid.New().String(),
			NotificationID: n.ID,
			Event:          models.EventQueued,
			CreatedAt:      queuedAt,
		}); err != nil {
			s.logger.Warn("queued log append failed", map[string]interface{}{
				"notificationId": n.ID,
				"error":          err,
			})
		}
	}
}

func (s *Service) resolveRecipient(ctx context.Context, req *Request) (*models.Recipient, error) {
	var (
		recipient *models.Recipient
		err       error
	)
	switch {
	case req.RecipientID != "":
		recipient, err = s.recipients.GetByID(ctx, req.TenantID, req.RecipientID)
	case req.Email != "":
		recipient, err = s.recipients.FindByEmail(ctx, req.TenantID, req.Email)
	case req.Phone != "":
		recipient, err = s.recipients.FindByPhone(ctx, req.TenantID, req.Phone)
	}
	if err != nil {
		return nil, errors.NewDatabaseUnavailableError(err)
	}
	if recipient == nil {
		return nil, errors.NewRecipientNotFoundError(fmt.Sprintf(
			"tenantId: %s, recipientId: %q, email: %q, phone: %q",
			req.TenantID, req.RecipientID, req.Email, req.Phone))
	}
	return recipient, nil
}

func (s *Service) checkPreference(ctx context.Context, recipient *models.Recipient, channel models.Channel) error {
	pref, err := s.recipients.GetPreference(ctx, recipient.ID, channel)
	if err != nil {
		return errors.NewDatabaseUnavailableError(err)
	}
	if pref == nil {
		return nil
	}
	if !pref.Enabled {
		return errors.NewChannelOptedOutError(recipient.ID, string(channel))
	}

	loc := RecipientLocation(recipient.Timezone)
	inQuiet, err := InQuietHours(s.now(), loc, pref.QuietHoursStart, pref.QuietHoursEnd)
	if err != nil {
		s.logger.Warn("unparseable quiet hours, allowing send", map[string]interface{}{
			"recipientId": recipient.ID,
			"error":       err,
		})
		return nil
	}
	if inQuiet {
		window := fmt.Sprintf("%s-%s", pref.QuietHoursStart, pref.QuietHoursEnd)
		return errors.NewQuietHoursError(recipient.ID, window)
	}
	return nil
}

func (s *Service) renderContent(ctx context.Context, req *Request) (subject, body string, err error) {
	if req.TemplateID == "" {
		if req.Body == "" {
			return "", "", errors.NewMissingBodyError()
		}
		return req.Subject, req.Body, nil
	}

	tmpl, lookupErr := s.recipients.GetTemplate(ctx, req.TenantID, req.TemplateID)
	if lookupErr != nil {
		return "", "", errors.NewDatabaseUnavailableError(lookupErr)
	}
	if tmpl == nil {
		return "", "", errors.NewTemplateNotFoundError(req.TemplateID)
	}

	subject = Render(tmpl.Subject, req.Variables)
	if req.Subject != "" {
		subject = Render(req.Subject, req.Variables)
	}
	return subject, Render(tmpl.Body, req.Variables), nil
}
