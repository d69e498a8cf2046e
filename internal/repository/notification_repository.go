package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/persistence"
)

// NotificationRepository loads and stores the whole notification log.
type NotificationRepository interface {
	LoadAll(ctx context.Context) ([]domain.Notification, error)
	SaveAll(ctx context.Context, notifications []domain.Notification) error
}

type notificationRecord struct {
	ID           string `json:"id"`
	To           string `json:"to"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	SentAt       string `json:"sentAt"`
	Acknowledged bool   `json:"acknowledged"`
}

type notificationRepository struct {
	store  persistence.CollectionStore
	logger *zap.Logger
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(store persistence.CollectionStore, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{store: store, logger: logger}
}

func (r *notificationRepository) LoadAll(ctx context.Context) ([]domain.Notification, error) {
	payload, err := r.store.Load(ctx, persistence.NotificationsCollection)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	records, ok := decodeDocument[notificationRecord](payload)
	if !ok {
		r.logger.Warn("malformed notification collection; treating as empty",
			zap.String("collection", persistence.NotificationsCollection))
		return []domain.Notification{}, nil
	}
	result := make([]domain.Notification, 0, len(records))
	for _, rec := range records {
		sentAt, err := parseTime("sentAt", rec.SentAt)
		if err != nil {
			return nil, fmt.Errorf("notification %s: %w", rec.ID, err)
		}
		result = append(result, domain.Notification{
			ID:           rec.ID,
			To:           rec.To,
			Subject:      rec.Subject,
			Body:         rec.Body,
			SentAt:       sentAt,
			Acknowledged: rec.Acknowledged,
		})
	}
	return result, nil
}

func (r *notificationRepository) SaveAll(ctx context.Context, notifications []domain.Notification) error {
	records := make([]notificationRecord, 0, len(notifications))
	for _, n := range notifications {
		records = append(records, notificationRecord{
			ID:           n.ID,
			To:           n.To,
			Subject:      n.Subject,
			Body:         n.Body,
			SentAt:       formatTime(n.SentAt),
			Acknowledged: n.Acknowledged,
		})
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, persistence.NotificationsCollection, payload); err != nil {
		return fmt.Errorf("save notifications: %w", err)
	}
	return nil
}
