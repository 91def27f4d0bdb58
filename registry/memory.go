package registry

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[Key]ServiceInstance
	opts      Options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	opts.applyDefaults()
	return &MemoryStore{
		instances: make(map[Key]ServiceInstance),
		opts:      opts,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Register(_ context.Context, name, address string) error {
	address = NormalizeAddress(address)
	if err := validateKey(name, address); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := Key{Name: name, Address: address}
	s.instances[k] = ServiceInstance{
		Name:          name,
		Address:       address,
		Status:        StatusUnknown,
		LastHeartbeat: s.opts.Now(),
	}
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, name, address string, status Status) error {
	k := Key{Name: name, Address: NormalizeAddress(address)}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[k]
	if !ok {
		return nil
	}
	inst.Status = status
	inst.LastHeartbeat = s.opts.Now()
	s.instances[k] = inst
	return nil
}

func (s *MemoryStore) Heartbeat(_ context.Context, name, address string) error {
	k := Key{Name: name, Address: NormalizeAddress(address)}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[k]
	if !ok {
		return nil
	}
	inst.LastHeartbeat = s.opts.Now()
	s.instances[k] = inst
	return nil
}

func (s *MemoryStore) Deregister(_ context.Context, name, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, Key{Name: name, Address: NormalizeAddress(address)})
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]ServiceInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ServiceInstance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst)
	}
	return out, nil
}

func (s *MemoryStore) Resolve(ctx context.Context, name string) (string, error) {
	all, _ := s.List(ctx)
	return resolveFrom(all, name, s.opts.Now(), s.opts.StaleAfter, s.opts.Selector)
}

func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	removed := 0
	for k, inst := range s.instances {
		if now.Sub(inst.LastHeartbeat) > s.opts.StaleAfter {
			delete(s.instances, k)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }
