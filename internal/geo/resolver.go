package geo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

const redisKeyPrefix = "geo:"

// Provider внешний геокодер
type Provider interface {
	Lookup(ctx context.Context, query string) (Point, error)
}

// ErrNotFound геокодер не нашёл ни одного результата
var ErrNotFound = errors.New("локация не найдена")

// Options настройки Resolver
type Options struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Resolver переводит локацию в координаты. Ошибки никогда не поднимаются наверх:
// нерезолвнутая локация означает отсутствие географического фильтра
type Resolver struct {
	provider Provider
	redis    *redis.Client
	timeout  time.Duration
	ttl      time.Duration

	mu    sync.RWMutex
	local map[string]Point
	group singleflight.Group
}

// NewResolver создает резолвер; rdb может быть nil, тогда используется только кэш в памяти
func NewResolver(provider Provider, rdb *redis.Client, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * 24 * time.Hour
	}
	return &Resolver{
		provider: provider,
		redis:    rdb,
		timeout:  opts.Timeout,
		ttl:      opts.CacheTTL,
		local:    make(map[string]Point),
	}
}

// Resolve возвращает координаты локации и false, если их получить не удалось
func (r *Resolver) Resolve(ctx context.Context, location string) (Point, bool) {
	if p, ok := ParseCoordinates(location); ok {
		return p, true
	}

	key := Normalize(location)
	if key == "" {
		return Point{}, false
	}

	r.mu.RLock()
	p, ok := r.local[key]
	r.mu.RUnlock()
	if ok {
		return p, true
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.lookup(ctx, key)
	})
	if err != nil {
		logger.Debugf("Не удалось определить координаты %q: %v", key, err)
		return Point{}, false
	}
	return v.(Point), true
}

func (r *Resolver) lookup(ctx context.Context, key string) (Point, error) {
	if p, ok := r.fromRedis(ctx, key); ok {
		r.remember(key, p)
		return p, nil
	}
	if r.provider == nil {
		return Point{}, ErrNotFound
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := r.provider.Lookup(lookupCtx, key)
	if err != nil {
		return Point{}, err
	}
	if !p.Valid() {
		return Point{}, ErrNotFound
	}

	r.remember(key, p)
	r.toRedis(ctx, key, p)
	return p, nil
}

func (r *Resolver) remember(key string, p Point) {
	r.mu.Lock()
	r.local[key] = p
	r.mu.Unlock()
}

func (r *Resolver) fromRedis(ctx context.Context, key string) (Point, bool) {
	if r.redis == nil {
		return Point{}, false
	}
	data, err := r.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("Ошибка чтения гео-кэша: %v", err)
		}
		return Point{}, false
	}
	var p Point
	if err := json.Unmarshal(data, &p); err != nil || !p.Valid() {
		return Point{}, false
	}
	return p, true
}

func (r *Resolver) toRedis(ctx context.Context, key string, p Point) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		logger.Warnf("Ошибка записи гео-кэша: %v", err)
	}
}
