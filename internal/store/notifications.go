// internal/store/notifications.go
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartlocker-workers/internal/common/database"
	"smartlocker-workers/internal/models"
)

// notificationsIndex is the Elasticsearch index for the notification audit
// trail, used by the dashboard's delivery-history search.
const notificationsIndex = "notifications"

// templateCacheTTL bounds template staleness after an operator edit.
const templateCacheTTL = 5 * time.Minute

// Notifications persists notification audit records in Postgres, mirrors
// them into Elasticsearch for search, and caches active templates in Redis.
// The ES mirror is best-effort: an indexing failure is logged, never
// surfaced.
type Notifications struct {
	db     *sql.DB
	es     *database.ElasticsearchClient
	redis  *database.RedisClient
	logger *zap.Logger
}

func NewNotifications(
	db *sql.DB,
	es *database.ElasticsearchClient,
	redis *database.RedisClient,
	logger *zap.Logger,
) *Notifications {
	return &Notifications{db: db, es: es, redis: redis, logger: logger}
}

func (s *Notifications) Create(ctx context.Context, n *models.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode notification metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, recipient_id, template_type, channel, subject, message,
			 recipient_phone, recipient_email, status, priority, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
		n.ID, n.RecipientID, n.TemplateType, n.Channel, n.Subject, n.Message,
		n.RecipientPhone, n.RecipientEmail, n.Status, n.Priority, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	s.index(ctx, n)
	return nil
}

func (s *Notifications) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $2, sent_at = $3
		WHERE id = $1`,
		id, models.NotificationStatusSent, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

func (s *Notifications) MarkFailed(ctx context.Context, id, errorDetail string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $2, error_detail = $3
		WHERE id = $1`,
		id, models.NotificationStatusFailed, errorDetail,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// ActiveTemplate returns the active template for the type and channel,
// preferring the Redis cache. Returns nil when no active template exists.
func (s *Notifications) ActiveTemplate(ctx context.Context, templateType, channel string) (*models.NotificationTemplate, error) {
	cacheKey := fmt.Sprintf("notification:template:%s:%s", templateType, channel)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey); err == nil && cached != "" {
			var tpl models.NotificationTemplate
			if err := json.Unmarshal([]byte(cached), &tpl); err == nil {
				return &tpl, nil
			}
		}
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, channel, subject, body, language, is_active
		FROM notification_templates
		WHERE type = $1 AND channel = $2 AND is_active
		LIMIT 1`,
		templateType, channel,
	)

	var tpl models.NotificationTemplate
	var subject sql.NullString
	err := row.Scan(&tpl.ID, &tpl.Type, &tpl.Channel, &subject, &tpl.Body, &tpl.Language, &tpl.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query template: %w", err)
	}
	tpl.Subject = subject.String

	if s.redis != nil {
		if encoded, err := json.Marshal(&tpl); err == nil {
			if err := s.redis.Set(ctx, cacheKey, string(encoded), templateCacheTTL); err != nil {
				s.logger.Warn("failed to cache template", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
	return &tpl, nil
}

func (s *Notifications) index(ctx context.Context, n *models.Notification) {
	if s.es == nil {
		return
	}

	doc, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn("failed to encode notification for indexing", zap.Error(err))
		return
	}

	res, err := s.es.Client.Index(
		notificationsIndex,
		bytes.NewReader(doc),
		s.es.Client.Index.WithDocumentID(n.ID),
		s.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		s.logger.Warn("failed to index notification",
			zap.String("notificationId", n.ID), zap.Error(err))
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("notification indexing rejected",
			zap.String("notificationId", n.ID), zap.String("status", res.Status()))
	}
}
