package analytics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instruments bundles the OpenTelemetry instruments mirrored by the
// collector. A nil *instruments disables export; all methods are nil-safe.
type instruments struct {
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	puts        metric.Int64Counter
	deletes     metric.Int64Counter
	evictions   metric.Int64Counter
	expirations metric.Int64Counter
	bytesPut    metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewCollectorWithMeter creates a collector that mirrors its counters to
// OpenTelemetry instruments built from the given meter.
func NewCollectorWithMeter(meter metric.Meter) (*Collector, error) {
	inst, err := newInstruments(meter)
	if err != nil {
		return nil, err
	}
	c := NewCollector()
	c.inst = inst
	return c, nil
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	puts, err := meter.Int64Counter(
		"cache.puts",
		metric.WithDescription("Total number of stored entries"),
		metric.WithUnit("{put}"),
	)
	if err != nil {
		return nil, err
	}

	deletes, err := meter.Int64Counter(
		"cache.deletes",
		metric.WithDescription("Total number of deleted entries"),
		metric.WithUnit("{delete}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Total number of capacity evictions"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, err
	}

	expirations, err := meter.Int64Counter(
		"cache.expirations",
		metric.WithDescription("Total number of expired entries removed"),
		metric.WithUnit("{expiration}"),
	)
	if err != nil {
		return nil, err
	}

	bytesPut, err := meter.Int64Counter(
		"cache.stored_bytes",
		metric.WithDescription("Total post-transform bytes written to storage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"cache.op.duration_ms",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{
		hits:        hits,
		misses:      misses,
		puts:        puts,
		deletes:     deletes,
		evictions:   evictions,
		expirations: expirations,
		bytesPut:    bytesPut,
		latency:     latency,
	}, nil
}

func (i *instruments) addHit(ctx context.Context) {
	if i == nil {
		return
	}
	i.hits.Add(ctx, 1)
}

func (i *instruments) addMiss(ctx context.Context) {
	if i == nil {
		return
	}
	i.misses.Add(ctx, 1)
}

func (i *instruments) addPut(ctx context.Context, size int64) {
	if i == nil {
		return
	}
	i.puts.Add(ctx, 1)
	i.bytesPut.Add(ctx, size)
}

func (i *instruments) addDelete(ctx context.Context) {
	if i == nil {
		return
	}
	i.deletes.Add(ctx, 1)
}

func (i *instruments) addEviction(ctx context.Context) {
	if i == nil {
		return
	}
	i.evictions.Add(ctx, 1)
}

func (i *instruments) addExpiration(ctx context.Context) {
	if i == nil {
		return
	}
	i.expirations.Add(ctx, 1)
}

func (i *instruments) recordLatency(ctx context.Context, op string, d time.Duration) {
	if i == nil {
		return
	}
	i.latency.Record(ctx, float64(d.Microseconds())/1000.0,
		metric.WithAttributes(attribute.String("cache.op", op)))
}
