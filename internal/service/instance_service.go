package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
)

const (
	nodeInfoVersion  = "2.0"
	softwareName     = "bookwyrm"
	instanceCacheTTL = time.Minute
)

type mediaURLer interface {
	URL(name string) string
}

type instanceCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// InstanceConfig holds the static facts published about the instance.
type InstanceConfig struct {
	Domain          string
	LanguageCode    string
	SoftwareVersion string
	ThumbnailName   string
}

// InstanceService publishes instance metadata that reflects the registration policy.
type InstanceService struct {
	repo    policyGetter
	cache   instanceCache
	media   mediaURLer
	metrics *MetricsService
	logger  *zap.Logger
	config  InstanceConfig
}

// NewInstanceService constructs an InstanceService. cache and media may be nil.
func NewInstanceService(repo policyGetter, cache instanceCache, media mediaURLer, metrics *MetricsService, logger *zap.Logger, cfg InstanceConfig) *InstanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ThumbnailName == "" {
		cfg.ThumbnailName = "logos/logo.png"
	}
	return &InstanceService{repo: repo, cache: cache, media: media, metrics: metrics, logger: logger, config: cfg}
}

// NodeInfo returns the nodeinfo 2.0 document.
func (s *InstanceService) NodeInfo(ctx context.Context) (*dto.NodeInfo, error) {
	var cached dto.NodeInfo
	if s.fromCache(ctx, cacheKeyNodeInfo, &cached) {
		return &cached, nil
	}

	policy, err := loadPolicy(ctx, s.repo, s.metrics)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration policy")
	}

	info := &dto.NodeInfo{
		Version:           nodeInfoVersion,
		Software:          dto.NodeInfoSoftware{Name: softwareName, Version: s.config.SoftwareVersion},
		Protocols:         []string{"activitypub"},
		OpenRegistrations: policy.AllowRegistration,
		Metadata:          dto.NodeInfoMetadata{NodeName: s.config.Domain},
	}
	if !policy.AllowRegistration {
		info.Metadata.RegistrationText = policy.RegistrationClosedText
	}

	s.toCache(ctx, cacheKeyNodeInfo, info)
	return info, nil
}

// Instance returns the Mastodon-compatible instance description.
func (s *InstanceService) Instance(ctx context.Context) (*dto.InstanceInfo, error) {
	var cached dto.InstanceInfo
	if s.fromCache(ctx, cacheKeyInstanceInfo, &cached) {
		return &cached, nil
	}

	policy, err := loadPolicy(ctx, s.repo, s.metrics)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration policy")
	}

	info := &dto.InstanceInfo{
		URI:              s.config.Domain,
		Title:            s.config.Domain,
		Languages:        []string{s.config.LanguageCode},
		Registrations:    policy.AllowRegistration,
		ApprovalRequired: !policy.AllowRegistration && policy.AllowInviteRequests,
		EmailConfirm:     policy.RequireConfirmEmail,
	}
	if s.media != nil {
		info.Thumbnail = s.media.URL(s.config.ThumbnailName)
	}

	s.toCache(ctx, cacheKeyInstanceInfo, info)
	return info, nil
}

func (s *InstanceService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *InstanceService) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, instanceCacheTTL); err != nil {
		s.logger.Debug("instance metadata not cached", zap.String("key", key), zap.Error(err))
	}
}
