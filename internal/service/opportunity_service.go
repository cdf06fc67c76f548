package service

import (
	"context"
	"fmt"

	"bundle-service/config"
	"bundle-service/internal/opportunity"
	"bundle-service/internal/redisclient"
	"bundle-service/internal/util"

	"go.uber.org/zap"
)

// OpportunityService runs the opportunity scorer over the current
// ledger snapshot
type OpportunityService struct {
	bundles *BundleService
	redis   *redisclient.Client
	cfg     config.AnalysisConfig
	logger  *zap.Logger
}

// NewOpportunityService creates a new opportunity service
func NewOpportunityService(bundles *BundleService, redis *redisclient.Client, cfg config.AnalysisConfig) *OpportunityService {
	return &OpportunityService{
		bundles: bundles,
		redis:   redis,
		cfg:     cfg,
		logger:  util.GetLogger(),
	}
}

// ScoreOpportunities runs the four detectors plus segmentation over the
// current snapshot. Reports are cached; a ledger refresh invalidates
// the cache.
func (s *OpportunityService) ScoreOpportunities(ctx context.Context, method string) (*opportunity.Report, error) {
	ctx, span := util.StartSpan(ctx, "OpportunityService.ScoreOpportunities")
	defer span.End()

	if method == "" {
		method = opportunity.MethodKMeans
	}
	if method != opportunity.MethodKMeans && method != opportunity.MethodDBSCAN {
		return nil, fmt.Errorf("unknown clustering method %q", method)
	}

	var cached opportunity.Report
	if hit, err := s.redis.GetOpportunities(ctx, method, &cached); err != nil {
		s.logger.Warn("Opportunity cache read failed", zap.Error(err))
	} else if hit {
		util.CacheHitsTotal.WithLabelValues("opportunities").Inc()
		return &cached, nil
	}
	util.CacheMissesTotal.WithLabelValues("opportunities").Inc()

	lines, err := s.bundles.OrderLines()
	if err != nil {
		return nil, err
	}

	report := opportunity.Score(lines, opportunity.Config{
		Clustering: opportunity.ClusterConfig{
			Method: method,
			KMin:   s.cfg.ClusterKMin,
			KMax:   s.cfg.ClusterKMax,
		},
	})

	for _, b := range report.Bundles {
		util.OpportunityBundlesTotal.WithLabelValues(b.Type).Inc()
	}
	for _, name := range report.Degraded {
		util.DetectorFailuresTotal.WithLabelValues(name).Inc()
	}
	if len(report.Degraded) > 0 {
		s.logger.Warn("Opportunity scoring degraded",
			zap.Strings("detectors", report.Degraded))
	}

	if err := s.redis.SetOpportunities(ctx, method, report); err != nil {
		s.logger.Warn("Opportunity cache write failed", zap.Error(err))
	}
	return report, nil
}
