package service

import (
	"testing"

	"bundle-service/config"
	"bundle-service/internal/bundler"

	"github.com/stretchr/testify/assert"
)

func TestDiscountRangeFallsBackToDefaults(t *testing.T) {
	svc := NewBundleService(nil, nil, nil, config.AnalysisConfig{})
	assert.Equal(t, bundler.DefaultDiscountRange, svc.discountRange())

	svc = NewBundleService(nil, nil, nil, config.AnalysisConfig{DiscountLow: 40, DiscountHigh: 20})
	assert.Equal(t, bundler.DefaultDiscountRange, svc.discountRange())

	svc = NewBundleService(nil, nil, nil, config.AnalysisConfig{DiscountLow: 10, DiscountHigh: 15})
	assert.Equal(t, bundler.DiscountRange{Low: 10, High: 15}, svc.discountRange())
}

func TestAnalyzeRequestCacheKey(t *testing.T) {
	a := &AnalyzeRequest{ProductToClear: "A", RelatedSKUs: []string{"B", "C"}, TargetDiscount: 30, TopN: 10}
	b := &AnalyzeRequest{ProductToClear: "A", RelatedSKUs: []string{"B", "C"}, TargetDiscount: 30, TopN: 10}
	assert.Equal(t, a.cacheKey(), b.cacheKey())

	c := &AnalyzeRequest{ProductToClear: "A", RelatedSKUs: []string{"B", "C"}, TargetDiscount: 25, TopN: 10}
	assert.NotEqual(t, a.cacheKey(), c.cacheKey())
}

func TestOrderLinesBeforeRefresh(t *testing.T) {
	svc := NewBundleService(nil, nil, nil, config.AnalysisConfig{})
	_, err := svc.OrderLines()
	assert.Error(t, err)
}
