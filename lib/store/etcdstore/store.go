package etcdstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
)

var log = logger.GetLogger("store")

// Store is a store.IStore talking to a single etcd v3 endpoint.
type Store struct {
	endpoint string
	client   *clientv3.Client
	kv       clientv3.KV
	lease    clientv3.Lease
	timeout  time.Duration
}

// Open connects to endpoint and checks that it answers a status request.
func Open(ctx context.Context, endpoint string, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{endpoint},
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, store.Errorf(store.RetCUnavailable, "connect to %s: %v", endpoint, err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if _, err := client.Status(statusCtx, endpoint); err != nil {
		if cerr := client.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close etcd client: %w", cerr))
		}
		return nil, store.Errorf(store.RetCUnavailable, "status of %s: %v", endpoint, err)
	}

	log.Infof("connected to etcd endpoint %s", endpoint)
	s := newStore(endpoint, client.KV, client.Lease, cfg.RequestTimeout)
	s.client = client
	return s, nil
}

// Factory returns a store.Factory opening etcd stores with cfg.
func Factory(cfg Config) store.Factory {
	return func(ctx context.Context, endpoint string) (store.IStore, error) {
		return Open(ctx, endpoint, cfg)
	}
}

func newStore(endpoint string, kv clientv3.KV, lease clientv3.Lease, timeout time.Duration) *Store {
	return &Store{
		endpoint: endpoint,
		kv:       kv,
		lease:    lease,
		timeout:  timeout,
	}
}

// Endpoint returns the address of the store.
func (s *Store) Endpoint() string { return s.endpoint }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", false, s.mapError("get", err)
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		return store.Errorf(store.RetCInvalidOperation, "negative ttl %s", ttl)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var opts []clientv3.OpOption
	if ttl > 0 {
		// etcd leases have a granularity of one second
		lease, err := s.lease.Grant(ctx, int64(math.Ceil(ttl.Seconds())))
		if err != nil {
			return s.mapError("grant lease", err)
		}
		opts = append(opts, clientv3.WithLease(lease.ID))
	}

	if _, err := s.kv.Put(ctx, key, value, opts...); err != nil {
		return s.mapError("put", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.kv.Delete(ctx, key); err != nil {
		return s.mapError("delete", err)
	}
	return nil
}

func (s *Store) ListChildren(ctx context.Context, prefix string) ([]store.Node, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	base := store.ChildPrefix(prefix)
	resp, err := s.kv.Get(ctx, base,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, s.mapError("list", err)
	}

	entries := make([]store.Node, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		entries = append(entries, store.Node{Key: string(kv.Key), Value: string(kv.Value)})
	}
	return store.Children(prefix, entries), nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ store.IStore = (*Store)(nil)

// --------------------------------------------------------------------------
// Error Mapping
// --------------------------------------------------------------------------

// mapError converts an etcd client error into a store.Error. Requests etcd rejected
// would be rejected by every member and map to permanent codes.
func (s *Store) mapError(op string, err error) error {
	code := store.RetCUnavailable
	switch {
	case errors.Is(err, rpctypes.ErrEmptyKey),
		errors.Is(err, rpctypes.ErrKeyNotFound),
		errors.Is(err, rpctypes.ErrValueProvided),
		errors.Is(err, rpctypes.ErrLeaseProvided),
		errors.Is(err, rpctypes.ErrTooManyOps),
		errors.Is(err, rpctypes.ErrDuplicateKey),
		errors.Is(err, rpctypes.ErrRequestTooLarge),
		errors.Is(err, rpctypes.ErrPermissionDenied),
		errors.Is(err, rpctypes.ErrAuthFailed),
		errors.Is(err, rpctypes.ErrLeaseTTLTooLarge):
		code = store.RetCInvalidOperation
	case errors.Is(err, rpctypes.ErrNotCapable):
		code = store.RetCUnsupportedOperation
	}
	return &etcdError{err: store.Errorf(code, "%s on %s: %v", op, s.endpoint, err), cause: err}
}

// etcdError is a store.Error that keeps the etcd error reachable through errors.Is
type etcdError struct {
	err   *store.Error
	cause error
}

func (e *etcdError) Error() string { return e.err.Error() }

func (e *etcdError) Unwrap() []error { return []error{e.err, e.cause} }
