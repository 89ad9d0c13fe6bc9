package keyvalue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store used in tests and single-node setups.
// All namespaces share one root so sublevels of the same parent see a
// consistent view under concurrent access.
type Memory struct {
	root      *memoryRoot
	namespace string
}

type memoryRoot struct {
	mu         sync.RWMutex
	namespaces map[string]*memoryNamespace
}

type memoryNamespace struct {
	values map[string]json.RawMessage
	order  []string
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		root: &memoryRoot{namespaces: make(map[string]*memoryNamespace)},
	}
}

func (m *Memory) ns() *memoryNamespace {
	n, ok := m.root.namespaces[m.namespace]
	if !ok {
		n = &memoryNamespace{values: make(map[string]json.RawMessage)}
		m.root.namespaces[m.namespace] = n
	}
	return n
}

func (m *Memory) Get(ctx context.Context, key string, v any) error {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()

	n, ok := m.root.namespaces[m.namespace]
	if !ok {
		return ErrNotFound
	}
	raw, ok := n.values[key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func (m *Memory) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}

	m.root.mu.Lock()
	defer m.root.mu.Unlock()

	n := m.ns()
	if _, ok := n.values[key]; !ok {
		n.order = append(n.order, key)
	}
	n.values[key] = raw
	return nil
}

func (m *Memory) Insert(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}

	m.root.mu.Lock()
	defer m.root.mu.Unlock()

	n := m.ns()
	if _, ok := n.values[key]; ok {
		return ErrExists
	}
	n.order = append(n.order, key)
	n.values[key] = raw
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.root.mu.Lock()
	defer m.root.mu.Unlock()

	n, ok := m.root.namespaces[m.namespace]
	if !ok {
		return ErrNotFound
	}
	if _, ok := n.values[key]; !ok {
		return ErrNotFound
	}
	delete(n.values, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) List(ctx context.Context) ([]json.RawMessage, error) {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()

	n, ok := m.root.namespaces[m.namespace]
	if !ok {
		return nil, nil
	}
	values := make([]json.RawMessage, 0, len(n.order))
	for _, key := range n.order {
		values = append(values, n.values[key])
	}
	return values, nil
}

func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.root.mu.RLock()
	defer m.root.mu.RUnlock()

	n, ok := m.root.namespaces[m.namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, len(n.order))
	copy(keys, n.order)
	return keys, nil
}

func (m *Memory) Sublevel(name string) Store {
	return &Memory{root: m.root, namespace: m.namespace + Separator + name}
}
