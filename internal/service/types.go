package service

import (
	"errors"

	"github.com/avolkov/wabridge/internal/api"
)

// ErrInvalidSignature covers every webhook authenticity failure.
// Signature mismatch and unknown signer deliberately collapse into one
// generic error so callers cannot enumerate which part failed.
var ErrInvalidSignature = errors.New("webhook verification failed")

// ErrMediaNotFound is returned when a media reference cannot be
// resolved to a URL.
var ErrMediaNotFound = errors.New("media not found")

// ErrValidation wraps caller-input failures so handlers can map them
// to 400 instead of 500.
var ErrValidation = errors.New("validation failed")

type HealthStatus struct {
	Status               api.HealthStatus    `json:"status"`
	DatabaseStatus       api.ComponentStatus `json:"database_status"`
	RedisStatus          api.ComponentStatus `json:"redis_status"`
	SchedulerStatus      api.ComponentStatus `json:"scheduler_status"`
	CircuitBreakerState  string              `json:"circuit_breaker_state"`
	CircuitBreakerCounts string              `json:"circuit_breaker_counts"`
}
