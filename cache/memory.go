package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-registry/expiry"
	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

type MemoryState int32

const (
	MemoryStateStopped MemoryState = iota
	MemoryStateStarting
	MemoryStateRunning
	MemoryStateStopping
)

const (
	MaxTTL     = 24 * time.Hour
	DefaultTTL = 1 * time.Minute
)

type MemoryConfig struct {
	MaxEntries      int    `json:"max_entries"`
	CleanupInterval string `json:"cleanup_interval"`
}

type MemoryCache struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          *MemoryConfig
	logger          types.Logger
	clock           expiry.Clock
	data            map[string]*types.CacheEntry
	hits            uint64
	misses          uint64
	evictions       uint64
	mu              sync.RWMutex
	state           atomic.Value
	stopCleanup     chan struct{}
	cleanupDone     chan struct{}
	entryPool       sync.Pool
	shutdownTimeout time.Duration
}

func NewMemoryCache(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.ResponseCache, error) {
	return newMemoryCache(ctx, logger, config, expiry.SystemClock{})
}

func newMemoryCache(ctx context.Context, logger types.Logger, config *types.CacheConfig, clock expiry.Clock) (*MemoryCache, error) {
	var memConfig = &MemoryConfig{
		MaxEntries:      10000,
		CleanupInterval: "5m",
	}

	if config.Config != nil {
		err := utils.UnmarshalConfig(config.Config, memConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal memory cache config")
		}
	}

	cacheCtx, cancel := context.WithCancel(ctx)

	cache := &MemoryCache{
		ctx:             cacheCtx,
		cancel:          cancel,
		logger:          logger,
		clock:           clock,
		config:          memConfig,
		data:            make(map[string]*types.CacheEntry),
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
		shutdownTimeout: 10 * time.Second,
		entryPool: sync.Pool{
			New: func() interface{} {
				return &types.CacheEntry{}
			},
		},
	}

	cache.state.Store(MemoryStateStopped)

	return cache, nil
}

func (m *MemoryCache) Get(key string) (interface{}, bool) {
	now := m.clock.Now()

	m.mu.RLock()
	entry, exists := m.data[key]
	if !exists {
		m.mu.RUnlock()
		atomic.AddUint64(&m.misses, 1)
		return nil, false
	}

	if entry.Expired(now) {
		m.mu.RUnlock()
		m.mu.Lock()
		if entry, exists := m.data[key]; exists && entry.Expired(now) {
			delete(m.data, key)
			m.returnEntryToPool(entry)
		}
		m.mu.Unlock()

		atomic.AddUint64(&m.misses, 1)
		return nil, false
	}

	value := entry.Value
	m.mu.RUnlock()

	atomic.AddUint64(&m.hits, 1)

	return value, true
}

func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		m.logger.Error("Attempted to set cache entry with empty key")
		return types.ErrCacheKeyEmpty
	}

	// ttl <= 0 disables caching for this call.
	if ttl <= 0 {
		return nil
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	now := m.clock.Now()
	entry := m.entryPool.Get().(*types.CacheEntry)
	entry.Key = key
	entry.Value = value
	entry.TTL = ttl
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxEntries > 0 {
		if _, exists := m.data[key]; !exists && len(m.data) >= m.config.MaxEntries {
			m.evictOneUnsafe()
		}
	}

	if oldEntry, exists := m.data[key]; exists {
		m.returnEntryToPool(oldEntry)
	}

	m.data[key] = entry
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, exists := m.data[key]; exists {
		delete(m.data, key)
		m.returnEntryToPool(entry)
	}

	return nil
}

func (m *MemoryCache) InvalidatePrefix(prefix string) error {
	if prefix == "" {
		return types.ErrCacheKeyEmpty
	}

	m.mu.Lock()

	var removed int
	for key, entry := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			m.returnEntryToPool(entry)
			removed++
		}
	}

	m.mu.Unlock()

	if removed > 0 {
		m.logger.Debug("Cache invalidated",
			zap.String("prefix", prefix),
			zap.Int("removed_entries", removed))
	}

	return nil
}

func (m *MemoryCache) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()

	var removed int
	for key, entry := range m.data {
		if entry.Expired(now) {
			delete(m.data, key)
			m.returnEntryToPool(entry)
			removed++
		}
	}

	m.mu.Unlock()

	if removed > 0 {
		m.logger.Debug("Sweep completed", zap.Int("expired_entries", removed))
	}

	return removed
}

func (m *MemoryCache) Start() error {
	if !m.transitionState(MemoryStateStopped, MemoryStateStarting) {
		m.logger.Warn("Memory cache is already running")
		return types.ErrServerAlreadyRunning
	}

	defer func() {
		if m.getState() == MemoryStateStarting {
			m.setState(MemoryStateRunning)
		}
	}()

	if m.config.CleanupInterval != "" {
		go m.startCleanupRoutine()
	}

	m.logger.Info("Memory cache started")
	return nil
}

func (m *MemoryCache) Stop() error {
	if !m.transitionState(MemoryStateRunning, MemoryStateStopping) {
		m.logger.Warn("Memory cache is not running")
		return types.ErrServerNotRunning
	}

	defer func() {
		m.setState(MemoryStateStopped)
	}()

	m.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case m.stopCleanup <- struct{}{}:
		case <-time.After(time.Second):
		}

		select {
		case <-m.cleanupDone:
			m.logger.Debug("Cleanup routine stopped")
		case <-time.After(5 * time.Second):
			m.logger.Warn("Cleanup routine stop timeout")
		}

		return nil
	})

	g.Go(func() error {
		m.mu.Lock()

		entriesCount := len(m.data)
		for _, entry := range m.data {
			m.returnEntryToPool(entry)
		}
		m.data = make(map[string]*types.CacheEntry)

		m.mu.Unlock()

		m.logger.Info("Memory cache cleared", zap.Int("cleared_entries", entriesCount))
		return nil
	})

	if err := g.Wait(); err != nil {
		select {
		case <-gCtx.Done():
			m.logger.Warn("Memory cache stop timeout, some components may not have stopped gracefully")
		default:
			m.logger.Error("Error during memory cache shutdown", zap.Error(err))
		}
	} else {
		m.logger.Info("Memory cache stopped gracefully")
	}

	return nil
}

func (m *MemoryCache) IsRunning() bool {
	return m.getState() == MemoryStateRunning
}

func (m *MemoryCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&m.hits), atomic.LoadUint64(&m.misses), atomic.LoadUint64(&m.evictions)
}

func (m *MemoryCache) getState() MemoryState {
	return m.state.Load().(MemoryState)
}

func (m *MemoryCache) setState(newState MemoryState) bool {
	currentState := m.getState()
	return m.state.CompareAndSwap(currentState, newState)
}

func (m *MemoryCache) transitionState(from, to MemoryState) bool {
	return m.state.CompareAndSwap(from, to)
}

func (m *MemoryCache) returnEntryToPool(entry *types.CacheEntry) {
	if entry == nil {
		return
	}

	entry.Key = ""
	entry.Value = nil
	entry.TTL = 0
	entry.CreatedAt = time.Time{}
	entry.ExpiresAt = time.Time{}

	m.entryPool.Put(entry)
}

func (m *MemoryCache) startCleanupRoutine() {
	defer close(m.cleanupDone)

	cleanupInterval, err := time.ParseDuration(m.config.CleanupInterval)
	if err != nil {
		m.logger.Error("Invalid cleanup interval, using default 5m",
			zap.String("interval", m.config.CleanupInterval),
			zap.Error(err))
		cleanupInterval = 5 * time.Minute
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Debug("Cleanup routine stopped by context")
			return
		case <-m.stopCleanup:
			m.logger.Debug("Cleanup routine stopped by signal")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *MemoryCache) evictOneUnsafe() {
	if len(m.data) == 0 {
		return
	}

	var oldestKey string
	var oldestTime time.Time

	for key, entry := range m.data {
		if oldestKey == "" || entry.CreatedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CreatedAt
		}
	}

	if oldestKey != "" {
		if entry := m.data[oldestKey]; entry != nil {
			m.returnEntryToPool(entry)
		}
		delete(m.data, oldestKey)
		atomic.AddUint64(&m.evictions, 1)
	}
}
