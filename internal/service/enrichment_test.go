package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bundle-service/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopEnricher(t *testing.T) {
	enricher := NewEnricher(config.EnrichmentConfig{})
	_, ok := enricher.(NoopEnricher)
	assert.True(t, ok)

	e, err := enricher.Enrich(context.Background(), []string{"A"}, []string{"Alpha"})
	require.NoError(t, err)
	assert.Empty(t, e.Name)
}

func TestChatEnricherParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant",
			"content":"{\"name\":\"Summer Kit\",\"rationale\":\"Sells together\",\"season\":\"summer\"}"}}]}`))
	}))
	defer srv.Close()

	enricher := NewEnricher(config.EnrichmentConfig{Endpoint: srv.URL, APIKey: "test-key", Model: "m"})
	e, err := enricher.Enrich(context.Background(), []string{"A", "B"}, []string{"Towel", "Sandals"})
	require.NoError(t, err)
	assert.Equal(t, "Summer Kit", e.Name)
	assert.Equal(t, "summer", e.Season)
}

func TestChatEnricherStripsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"choices\":[{\"message\":{\"role\":\"assistant\"," +
			"\"content\":\"```json\\n{\\\"name\\\":\\\"Pack\\\",\\\"rationale\\\":\\\"x\\\"}\\n```\"}}]}"))
	}))
	defer srv.Close()

	enricher := NewEnricher(config.EnrichmentConfig{Endpoint: srv.URL, Model: "m"})
	e, err := enricher.Enrich(context.Background(), []string{"A"}, []string{"Thing"})
	require.NoError(t, err)
	assert.Equal(t, "Pack", e.Name)
}

func TestChatEnricherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	enricher := NewEnricher(config.EnrichmentConfig{Endpoint: srv.URL, Model: "m"})
	_, err := enricher.Enrich(context.Background(), []string{"A"}, []string{"Thing"})
	assert.Error(t, err)
}
