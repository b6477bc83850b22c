// internal/common/whatsapp/registry.go
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smartlocker-workers/internal/common/config"
	"smartlocker-workers/internal/common/database"
	"smartlocker-workers/internal/common/metrics"
	"smartlocker-workers/internal/models"
)

// leaderKey is the Redis key holding the instance lease for the canonical
// session. Only the lease holder drives the browser; other instances route
// their sends through job retries until the lease moves.
const leaderKey = "whatsapp:session:leader"

// leaseTTL bounds how long a crashed instance can block a takeover.
const leaseTTL = 90 * time.Second

// renewScript extends the lease only while this instance still owns it. The
// ownership check and the expiry update run as one server-side step, so a
// renew can never resurrect a lease another instance has taken over.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

// releaseScript deletes the lease only while this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// SessionRegistry owns the lifecycle of the canonical channel session: one
// active session per business number, claimed across instances with a Redis
// lease and persisted in the session store.
type SessionRegistry struct {
	store      models.SessionStore
	redis      *database.RedisClient
	cfg        config.WhatsAppConfig
	logger     *zap.Logger
	instanceID string
}

func NewSessionRegistry(
	store models.SessionStore,
	redis *database.RedisClient,
	cfg config.WhatsAppConfig,
	logger *zap.Logger,
) *SessionRegistry {
	return &SessionRegistry{
		store:      store,
		redis:      redis,
		cfg:        cfg,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// InstanceID identifies this process in the lease.
func (r *SessionRegistry) InstanceID() string {
	return r.instanceID
}

// ClaimLeadership tries to take the canonical-session lease. Returns true
// when this instance holds the lease afterwards.
func (r *SessionRegistry) ClaimLeadership(ctx context.Context) (bool, error) {
	ok, err := r.redis.Client.SetNX(ctx, leaderKey, r.instanceID, leaseTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim session lease: %w", err)
	}
	if ok {
		return true, nil
	}

	holder, err := r.redis.Get(ctx, leaderKey)
	if errors.Is(err, redis.Nil) {
		// The holder's lease expired between the SetNX and the read. One
		// more attempt; if that also loses, someone else claimed it.
		ok, err = r.redis.Client.SetNX(ctx, leaderKey, r.instanceID, leaseTTL).Result()
		if err != nil {
			return false, fmt.Errorf("failed to claim session lease: %w", err)
		}
		return ok, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session lease: %w", err)
	}
	return holder == r.instanceID, nil
}

// RenewLeadership extends the lease while this instance still holds it.
func (r *SessionRegistry) RenewLeadership(ctx context.Context) error {
	res, err := renewScript.Run(ctx, r.redis.Client, []string{leaderKey},
		r.instanceID, leaseTTL.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to renew session lease: %w", err)
	}
	if res == 0 {
		return fmt.Errorf("session lease held by another instance")
	}
	return nil
}

// ReleaseLeadership drops the lease if this instance holds it.
func (r *SessionRegistry) ReleaseLeadership(ctx context.Context) {
	if err := releaseScript.Run(ctx, r.redis.Client, []string{leaderKey},
		r.instanceID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("failed to release session lease", zap.Error(err))
	}
}

// EnsureSession returns the canonical active session for the business
// number, establishing a fresh one through the client when none exists.
func (r *SessionRegistry) EnsureSession(ctx context.Context, client Client) (*models.ChannelSession, error) {
	session, err := r.store.CanonicalActive(ctx, r.cfg.BusinessNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up canonical session: %w", err)
	}
	if session != nil && session.IsActive() {
		return session, nil
	}

	held, err := r.ClaimLeadership(ctx)
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, fmt.Errorf("no active session and lease held elsewhere")
	}

	session = &models.ChannelSession{
		ID:          uuid.NewString(),
		SessionID:   fmt.Sprintf("wa_session_%s_%d", cleanPhone(r.cfg.BusinessNumber), time.Now().Unix()),
		PhoneNumber: r.cfg.BusinessNumber,
		Status:      models.SessionStatusInactive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session record: %w", err)
	}

	if err := client.Establish(ctx, session); err != nil {
		if updateErr := r.store.UpdateStatus(ctx, session.ID, models.SessionStatusError, session.ErrorDetail); updateErr != nil {
			r.logger.Warn("failed to record session error", zap.Error(updateErr))
		}
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	if err := r.store.UpdateStatus(ctx, session.ID, models.SessionStatusActive, ""); err != nil {
		return nil, fmt.Errorf("failed to activate session record: %w", err)
	}

	metrics.ChannelSessionsActive.Set(1)
	r.logger.Info("canonical session established",
		zap.String("sessionId", session.SessionID),
		zap.String("instanceId", r.instanceID))
	return session, nil
}

// Touch records channel activity for the session.
func (r *SessionRegistry) Touch(ctx context.Context, session *models.ChannelSession) {
	now := time.Now().UTC()
	session.LastActivity = &now
	if err := r.store.TouchActivity(ctx, session.ID, now); err != nil {
		r.logger.Warn("failed to record session activity",
			zap.String("sessionId", session.SessionID), zap.Error(err))
	}
}

// ExpireStale marks sessions idle past the configured threshold as expired.
// Returns how many sessions were expired.
func (r *SessionRegistry) ExpireStale(ctx context.Context) (int64, error) {
	threshold := time.Duration(r.cfg.InactivityHours) * time.Hour
	expired, err := r.store.ExpireInactive(ctx, threshold)
	if err == nil && expired > 0 {
		metrics.ChannelSessionsActive.Set(0)
	}
	return expired, err
}
