package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// NATSKVTier is the shared fast-store tier: a JetStream Key-Value
// bucket reachable by every process of the deployment, surviving
// process restarts. NATS KV expiry is configured per bucket, so the
// per-call TTL is applied at bucket creation and ignored afterwards.
type NATSKVTier struct {
	conn *nats.Conn
	kv   nats.KeyValue
}

type NATSKVOptions struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func NewNATSKVTier(url, bucket string, ttl time.Duration, options NATSKVOptions) (*NATSKVTier, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("retrieval-engine"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: bucket,
			TTL:    ttl,
		})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}

	return &NATSKVTier{conn: conn, kv: kv}, nil
}

func (t *NATSKVTier) Name() string { return "nats_kv" }

func (t *NATSKVTier) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	kvEntry, err := t.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCacheUnavailable, "nats kv get", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(kvEntry.Value(), &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

func (t *NATSKVTier) Set(_ context.Context, key string, entry domain.CacheEntry, _ time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if _, err := t.kv.Put(key, data); err != nil {
		return domain.WrapError(domain.ErrCacheUnavailable, "nats kv put", err)
	}
	return nil
}

func (t *NATSKVTier) Close() {
	if t.conn != nil {
		t.conn.Close()
	}
}
