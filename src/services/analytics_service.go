package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/posthog/posthog-go"
	"github.com/rs/zerolog/log"
)

// Security event names sent to PostHog
const (
	EventLoginSucceeded    = "admin_login_succeeded"
	EventLoginFailed       = "admin_login_failed"
	EventLoginBlocked      = "admin_login_blocked"
	EventAccountSuspended  = "admin_account_suspended"
	EventAccountReactivate = "admin_account_reactivated"
	EventRoleChanged       = "admin_role_changed"
	EventStatusChanged     = "admin_status_changed"
	EventAdminDeleted      = "admin_user_deleted"
	EventAdminInvited      = "admin_user_invited"
	EventPermissionDenied  = "admin_permission_denied"
)

// HashEmail returns a hex-encoded SHA-256 hash of the email for use as PostHog distinct ID
func HashEmail(email string) string {
	h := sha256.Sum256([]byte(email))
	return fmt.Sprintf("%x", h)
}

// AnalyticsService ships security audit events to PostHog.
// A nil or disabled service drops events.
type AnalyticsService struct {
	client  posthog.Client
	enabled bool
}

type posthogLogger struct{}

func (l posthogLogger) Success(m posthog.APIMessage) {
	log.Debug().Str("type", fmt.Sprintf("%T", m)).Msg("PostHog event delivered")
}

func (l posthogLogger) Failure(m posthog.APIMessage, err error) {
	log.Error().Err(err).Str("type", fmt.Sprintf("%T", m)).Msg("PostHog delivery failed")
}

// AnalyticsConfig holds analytics configuration
type AnalyticsConfig struct {
	PostHogAPIKey string
	PostHogHost   string
	Enabled       bool
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(cfg AnalyticsConfig) (*AnalyticsService, error) {
	if !cfg.Enabled || cfg.PostHogAPIKey == "" {
		return &AnalyticsService{enabled: false}, nil
	}

	client, err := posthog.NewWithConfig(
		cfg.PostHogAPIKey,
		posthog.Config{
			Endpoint:  cfg.PostHogHost,
			Interval:  30 * time.Second,
			BatchSize: 100,
			Callback:  posthogLogger{},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}

	return &AnalyticsService{
		client:  client,
		enabled: true,
	}, nil
}

// Close flushes pending events and closes client
func (s *AnalyticsService) Close() error {
	if s == nil || !s.enabled {
		return nil
	}
	return s.client.Close()
}

// getEnvironment returns current environment (production, staging, development)
func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "production"
	}
	return env
}

// TrackSecurityEvent records an event keyed by the hashed email of the account involved
func (s *AnalyticsService) TrackSecurityEvent(ctx context.Context, email, event string, properties map[string]interface{}) {
	if s == nil || !s.enabled {
		return
	}

	if properties == nil {
		properties = make(map[string]interface{})
	}
	properties["timestamp"] = time.Now().Unix()
	properties["environment"] = getEnvironment()

	distinctID := "admin_" + HashEmail(email)
	if err := s.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: properties,
	}); err != nil {
		log.Error().Err(err).Str("event", event).Msg("PostHog enqueue failed")
	}
}
