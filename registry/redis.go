package registry

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/kbukum/relaygate/errors"
	"github.com/kbukum/relaygate/resilience"
)

const (
	fieldName      = "name"
	fieldAddress   = "address"
	fieldStatus    = "status"
	fieldHeartbeat = "heartbeat_ms"
)

// RedisStore keeps each instance in its own hash plus a set index of keys.
// Read-modify-write operations WATCH the instance key and retry when another
// writer commits first.
type RedisStore struct {
	rdb     goredis.UniversalClient
	prefix  string
	opts    Options
	retry   resilience.RetryConfig
	onClose func() error
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store over rdb with keys under prefix. The store
// does not own rdb.
func NewRedisStore(rdb goredis.UniversalClient, prefix string, opts Options) *RedisStore {
	opts.applyDefaults()
	if prefix == "" {
		prefix = "relaygate"
	}
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		opts:   opts,
		retry: resilience.RetryConfig{
			MaxAttempts:    20,
			InitialBackoff: 2 * time.Millisecond,
			MaxBackoff:     100 * time.Millisecond,
			BackoffFactor:  2,
			Jitter:         0.5,
			RetryIf: func(err error) bool {
				return errors.Is(err, goredis.TxFailedErr)
			},
		},
	}
}

func (s *RedisStore) indexKey() string { return s.prefix + ":instances" }

func (s *RedisStore) instanceKey(k Key) string { return s.prefix + ":instance:" + k.String() }

func storeError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.DatabaseError(err)
}

// watch runs fn under WATCH key, retrying on optimistic-lock conflicts.
func (s *RedisStore) watch(ctx context.Context, key string, fn func(tx *goredis.Tx) error) error {
	err := resilience.RetryFunc(ctx, s.retry, func() error {
		return s.rdb.Watch(ctx, fn, key)
	})
	return storeError(err)
}

func (s *RedisStore) Register(ctx context.Context, name, address string) error {
	address = NormalizeAddress(address)
	if err := validateKey(name, address); err != nil {
		return err
	}
	k := Key{Name: name, Address: address}
	key := s.instanceKey(k)
	now := s.opts.Now().UnixMilli()
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldName, name,
			fieldAddress, address,
			fieldStatus, string(StatusUnknown),
			fieldHeartbeat, now,
		)
		pipe.SAdd(ctx, s.indexKey(), k.String())
		return nil
	})
	return storeError(err)
}

// refresh updates fields of an existing instance; absent keys are left absent.
func (s *RedisStore) refresh(ctx context.Context, name, address string, status Status) error {
	key := s.instanceKey(Key{Name: name, Address: NormalizeAddress(address)})
	return s.watch(ctx, key, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			values := []interface{}{fieldHeartbeat, s.opts.Now().UnixMilli()}
			if status != "" {
				values = append(values, fieldStatus, string(status))
			}
			pipe.HSet(ctx, key, values...)
			return nil
		})
		return err
	})
}

func (s *RedisStore) UpdateStatus(ctx context.Context, name, address string, status Status) error {
	return s.refresh(ctx, name, address, status)
}

func (s *RedisStore) Heartbeat(ctx context.Context, name, address string) error {
	return s.refresh(ctx, name, address, "")
}

func (s *RedisStore) Deregister(ctx context.Context, name, address string) error {
	k := Key{Name: name, Address: NormalizeAddress(address)}
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.instanceKey(k))
		pipe.SRem(ctx, s.indexKey(), k.String())
		return nil
	})
	return storeError(err)
}

func (s *RedisStore) List(ctx context.Context) ([]ServiceInstance, error) {
	members, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, storeError(err)
	}
	if len(members) == 0 {
		return []ServiceInstance{}, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(members))
	_, err = s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, m := range members {
			cmds[i] = pipe.HGetAll(ctx, s.prefix+":instance:"+m)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	out := make([]ServiceInstance, 0, len(members))
	for _, cmd := range cmds {
		inst, ok := decodeInstance(cmd.Val())
		if ok {
			out = append(out, inst)
		}
	}
	return out, nil
}

func decodeInstance(h map[string]string) (ServiceInstance, bool) {
	if h[fieldName] == "" {
		return ServiceInstance{}, false
	}
	ms, _ := strconv.ParseInt(h[fieldHeartbeat], 10, 64)
	return ServiceInstance{
		Name:          h[fieldName],
		Address:       h[fieldAddress],
		Status:        Status(h[fieldStatus]),
		LastHeartbeat: time.UnixMilli(ms).UTC(),
	}, true
}

func (s *RedisStore) Resolve(ctx context.Context, name string) (string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	return resolveFrom(all, name, s.opts.Now(), s.opts.StaleAfter, s.opts.Selector)
}

// Cleanup re-checks each stale candidate under WATCH so that a heartbeat
// landing between the scan and the delete keeps the instance alive.
func (s *RedisStore) Cleanup(ctx context.Context) (int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, inst := range all {
		if !s.stale(inst.LastHeartbeat) {
			continue
		}
		k := inst.Key()
		key := s.instanceKey(k)
		deleted := false
		err := s.watch(ctx, key, func(tx *goredis.Tx) error {
			deleted = false
			raw, err := tx.HGet(ctx, key, fieldHeartbeat).Result()
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			ms, _ := strconv.ParseInt(raw, 10, 64)
			if !s.stale(time.UnixMilli(ms)) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, s.indexKey(), k.String())
				return nil
			})
			if err == nil {
				deleted = true
			}
			return err
		})
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}
	return removed, nil
}

func (s *RedisStore) stale(heartbeat time.Time) bool {
	return s.opts.Now().Sub(heartbeat) > s.opts.StaleAfter
}

// Close runs the close hook installed by Open, if any.
func (s *RedisStore) Close() error {
	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}
