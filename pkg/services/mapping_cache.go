package services

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ekaya-inc/ekaya-unify/pkg/metrics"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

type mappingCacheKey struct {
	schemaMappingID string
	objectType      models.ObjectType
	provider        models.ProviderID
	accountID       uuid.UUID
	overrides       string
}

func (k mappingCacheKey) String() string {
	return strings.Join([]string{k.schemaMappingID, string(k.objectType), string(k.provider), k.accountID.String(), k.overrides}, "|")
}

// overrideFingerprint canonically encodes the override rows that apply to
// (provider, objectType). Two configs with the same applicable rows resolve
// identically, whatever their account id or row order.
func overrideFingerprint(cfg *models.AccountFieldMappingConfig, provider models.ProviderID, objectType models.ObjectType) string {
	if cfg == nil {
		return ""
	}
	var rows []string
	for _, m := range cfg.Mappings {
		if m == nil || m.SourceProvider != provider || m.ObjectType != objectType {
			continue
		}
		kind := "c"
		if m.IsStandardField {
			kind = "s"
		}
		src, _ := m.SourceField()
		rows = append(rows, kind+"\x1f"+m.TargetFieldName+"\x1f"+src)
	}
	slices.Sort(rows)
	return strings.Join(rows, "\x1e")
}

type mappingSnapshot map[mappingCacheKey]*ResolvedMapping

// CachedResolver is a read-through cache in front of a MappingResolver.
// Readers load an immutable snapshot; writers replace it copy-on-write, so a
// reader sees either the old or the new snapshot and never a partial update.
// Entries are keyed by account and by the override rows that apply to the
// request; InvalidateAccount evicts every entry of an account.
type CachedResolver struct {
	next    MappingResolver
	metrics *metrics.Metrics
	logger  *zap.Logger

	snapshot   atomic.Pointer[mappingSnapshot]
	generation atomic.Uint64 // bumped on every invalidation
	writeMu    sync.Mutex
	group      singleflight.Group
}

// NewCachedResolver wraps next. m may be nil.
func NewCachedResolver(next MappingResolver, m *metrics.Metrics, logger *zap.Logger) *CachedResolver {
	c := &CachedResolver{
		next:    next,
		metrics: m,
		logger:  logger.Named("mapping-cache"),
	}
	empty := mappingSnapshot{}
	c.snapshot.Store(&empty)
	return c
}

var _ MappingResolver = (*CachedResolver)(nil)

// Resolve returns the cached mapping or resolves and stores it.
// Concurrent misses for the same key share one resolution. Errors are not cached.
func (c *CachedResolver) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedMapping, error) {
	key := mappingCacheKey{
		schemaMappingID: req.SchemaMappingID,
		objectType:      req.ObjectType,
		provider:        req.Provider,
	}
	if req.AccountConfig != nil {
		key.accountID = req.AccountConfig.AccountID
		key.overrides = overrideFingerprint(req.AccountConfig, req.Provider, req.ObjectType)
	}

	if m, ok := (*c.snapshot.Load())[key]; ok {
		c.metrics.CacheLookup(true)
		return m, nil
	}
	c.metrics.CacheLookup(false)

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		gen := c.generation.Load()
		m, err := c.next.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		c.store(key, m, gen)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ResolvedMapping), nil
}

// store publishes a new snapshot containing m unless an invalidation ran
// while m was being resolved.
func (c *CachedResolver) store(key mappingCacheKey, m *ResolvedMapping, gen uint64) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.generation.Load() != gen {
		return
	}
	next := maps.Clone(*c.snapshot.Load())
	next[key] = m
	c.snapshot.Store(&next)
}

// InvalidateAccount drops every entry resolved for the account.
func (c *CachedResolver) InvalidateAccount(accountID uuid.UUID) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.generation.Add(1)
	current := *c.snapshot.Load()
	next := make(mappingSnapshot, len(current))
	for k, v := range current {
		if k.accountID != accountID {
			next[k] = v
		}
	}
	c.snapshot.Store(&next)
	c.metrics.CacheInvalidated("account")
	c.logger.Debug("Invalidated account mappings",
		zap.String("account_id", accountID.String()),
		zap.Int("evicted", len(current)-len(next)))
}

// InvalidateAll drops every entry.
func (c *CachedResolver) InvalidateAll() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.generation.Add(1)
	empty := mappingSnapshot{}
	c.snapshot.Store(&empty)
	c.metrics.CacheInvalidated("all")
	c.logger.Debug("Invalidated all mappings")
}

// Len returns the number of cached mappings.
func (c *CachedResolver) Len() int {
	return len(*c.snapshot.Load())
}
