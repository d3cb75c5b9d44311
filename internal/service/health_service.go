package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/provider"
	"github.com/avolkov/wabridge/internal/repository"
	"github.com/avolkov/wabridge/internal/scheduler"
)

type healthService struct {
	repo        repository.Repository
	redisClient *redis.Client
	provider    provider.Client
	schedulers  []*scheduler.Scheduler
}

func NewHealthService(
	repo repository.Repository,
	redisClient *redis.Client,
	providerClient provider.Client,
	schedulers ...*scheduler.Scheduler,
) HealthService {
	return &healthService{
		repo:        repo,
		redisClient: redisClient,
		provider:    providerClient,
		schedulers:  schedulers,
	}
}

func (s *healthService) GetHealth() *HealthStatus {
	status := &HealthStatus{
		Status: api.Healthy,
	}

	status.SchedulerStatus = api.ComponentRunning
	for _, sched := range s.schedulers {
		if !sched.IsRunning() {
			status.SchedulerStatus = api.ComponentStopped
			break
		}
	}

	status.DatabaseStatus = s.checkDatabaseHealth()
	status.RedisStatus = s.checkRedisHealth()

	state, requests, failures := s.provider.BreakerState()
	status.CircuitBreakerState = state
	if requests > 0 {
		failureRate := float64(failures) / float64(requests) * 100
		status.CircuitBreakerCounts = fmt.Sprintf("Requests: %d, Failures: %d (%.1f%%)", requests, failures, failureRate)
	} else {
		status.CircuitBreakerCounts = "No requests yet"
	}

	if status.DatabaseStatus != api.ComponentConnected || status.RedisStatus != api.ComponentConnected {
		status.Status = api.Unhealthy
	}

	// An open breaker means sends are failing but ingestion still
	// works, so it only degrades.
	if status.Status == api.Healthy && state == "open" {
		status.Status = api.Degraded
	}

	return status
}

func (s *healthService) checkDatabaseHealth() api.ComponentStatus {
	if err := s.repo.Ping(); err != nil {
		return api.ComponentDisconnected
	}
	return api.ComponentConnected
}

func (s *healthService) checkRedisHealth() api.ComponentStatus {
	if s.redisClient == nil {
		return api.ComponentDisconnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return api.ComponentDisconnected
	}
	return api.ComponentConnected
}
