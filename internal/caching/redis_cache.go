package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gekosync/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gekosync:"

// CacheService keeps hot read paths (last sync outcome, health stats) off the
// database. Every method degrades silently: a cache miss or a Redis outage
// must never fail a request.
type CacheService interface {
	SetLastSync(ctx context.Context, record *models.SyncHealthRecord, ttl time.Duration) error
	GetLastSync(ctx context.Context) (*models.SyncHealthRecord, error)
	SetHealthStats(ctx context.Context, key string, stats *models.SyncHealthStats, ttl time.Duration) error
	GetHealthStats(ctx context.Context, key string) (*models.SyncHealthStats, error)
	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port as well as a bare host:port.
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", err, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func (r *redisCacheService) SetLastSync(ctx context.Context, record *models.SyncHealthRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal last sync: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+"last-sync", data, ttl).Err()
}

func (r *redisCacheService) GetLastSync(ctx context.Context) (*models.SyncHealthRecord, error) {
	data, err := r.client.Get(ctx, keyPrefix+"last-sync").Bytes()
	if err != nil {
		return nil, err
	}
	record := &models.SyncHealthRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *redisCacheService) SetHealthStats(ctx context.Context, key string, stats *models.SyncHealthStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal health stats: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+"health-stats:"+key, data, ttl).Err()
}

func (r *redisCacheService) GetHealthStats(ctx context.Context, key string) (*models.SyncHealthStats, error) {
	data, err := r.client.Get(ctx, keyPrefix+"health-stats:"+key).Bytes()
	if err != nil {
		return nil, err
	}
	stats := &models.SyncHealthStats{}
	if err := json.Unmarshal(data, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
