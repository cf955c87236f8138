package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"freight-service/internal/profitability"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "freight:calc:"

// CalculationCache memoizes profitability results by input tuple
type CalculationCache interface {
	Get(ctx context.Context, key string) (profitability.Result, bool, error)
	Set(ctx context.Context, key string, result profitability.Result) error
}

// Key builds a cache key from every calculator input. Absent fuel is marked
// explicitly so it never collides with a zero-valued fuel pair.
func Key(cost profitability.CostInputs, load profitability.LoadInputs, fuel *profitability.FuelInputs) string {
	fuelPart := "nofuel"
	if fuel != nil {
		fuelPart = fmt.Sprintf("%g:%g", fuel.MilesPerGallon, fuel.FuelPricePerGallon)
	}
	return fmt.Sprintf("%s%g:%g:%g:%g:%g:%s",
		keyPrefix,
		cost.FixedCostsWeekly,
		cost.VariableCostsWeekly,
		cost.BaselineWeeklyMiles,
		load.Pay,
		load.Miles,
		fuelPart,
	)
}

// RedisCache stores results as JSON with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr. A zero ttl keeps entries until evicted.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

// Ping checks the connection
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Get(ctx context.Context, key string) (profitability.Result, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return profitability.Result{}, false, nil
	}
	if err != nil {
		return profitability.Result{}, false, fmt.Errorf("failed to read cached calculation: %w", err)
	}

	var result profitability.Result
	if err := json.Unmarshal(val, &result); err != nil {
		return profitability.Result{}, false, fmt.Errorf("failed to decode cached calculation: %w", err)
	}
	return result, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, result profitability.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode calculation: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache calculation: %w", err)
	}
	return nil
}
