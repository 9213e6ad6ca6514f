// Package supervisory holds the HMI-facing variable store: typed nodes grouped
// under a named object, each guarded independently.
package supervisory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Dam node names registered under the ObjectName object.
const (
	ObjectName = "modbus"
	NodePump   = "pump"
	NodeGate   = "gate"
	NodeLevel  = "water_level"
)

var (
	ErrUnknownNode  = errors.New("unknown node")
	ErrNotWritable  = errors.New("node not writable")
	ErrTypeMismatch = errors.New("node type mismatch")
)

// Kind is the value type of a node.
type Kind string

const (
	KindBool   Kind = "bool"
	KindUInt16 Kind = "uint16"
)

// Node is a point-in-time copy of one variable.
type Node struct {
	Name     string `json:"name"`
	Object   string `json:"object"`
	Kind     Kind   `json:"kind"`
	Writable bool   `json:"writable"`
	Bool     bool   `json:"bool,omitempty"`
	UInt16   uint16 `json:"uint16,omitempty"`
}

// Value returns the node value as an any for display.
func (n Node) Value() any {
	if n.Kind == KindBool {
		return n.Bool
	}
	return n.UInt16
}

type node struct {
	mu sync.RWMutex
	Node
}

// Store is a variable store with per-node atomicity. The set of nodes is
// fixed once registration is complete.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nodes: make(map[string]*node)}
}

// NewDamStore registers pump, gate and water_level under the modbus object
// with the given initial values. The nodes start read-only for clients.
func NewDamStore(pump, gate bool, level uint16) *Store {
	s := NewStore()
	s.Register(Node{Name: NodePump, Object: ObjectName, Kind: KindBool, Bool: pump})
	s.Register(Node{Name: NodeGate, Object: ObjectName, Kind: KindBool, Bool: gate})
	s.Register(Node{Name: NodeLevel, Object: ObjectName, Kind: KindUInt16, UInt16: level})
	return s
}

// Register adds or replaces a node.
func (s *Store) Register(n Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.Name] = &node{Node: n}
}

// SetWritable changes the client-writable flag of a node.
func (s *Store) SetWritable(name string, writable bool) error {
	n, err := s.lookup(name)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.Writable = writable
	n.mu.Unlock()
	return nil
}

func (s *Store) lookup(name string) (*node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownNode)
	}
	return n, nil
}

// Get returns a copy of a node.
func (s *Store) Get(name string) (Node, error) {
	n, err := s.lookup(name)
	if err != nil {
		return Node{}, err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.Node, nil
}

// Nodes returns copies of every node sorted by name.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	all := make([]*node, 0, len(s.nodes))
	for _, n := range s.nodes {
		all = append(all, n)
	}
	s.mu.RUnlock()

	out := make([]Node, 0, len(all))
	for _, n := range all {
		n.mu.RLock()
		out = append(out, n.Node)
		n.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReadBool reads a boolean node.
func (s *Store) ReadBool(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, err := s.Get(name)
	if err != nil {
		return false, err
	}
	if n.Kind != KindBool {
		return false, fmt.Errorf("%s is %s: %w", name, n.Kind, ErrTypeMismatch)
	}
	return n.Bool, nil
}

// ReadUInt16 reads an unsigned 16-bit node.
func (s *Store) ReadUInt16(ctx context.Context, name string) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	if n.Kind != KindUInt16 {
		return 0, fmt.Errorf("%s is %s: %w", name, n.Kind, ErrTypeMismatch)
	}
	return n.UInt16, nil
}

// WriteBool sets a boolean node as the server. Writable flags only restrict
// clients.
func (s *Store) WriteBool(ctx context.Context, name string, v bool) error {
	return s.write(ctx, name, KindBool, false, func(n *Node) { n.Bool = v })
}

// WriteUInt16 sets an unsigned 16-bit node as the server.
func (s *Store) WriteUInt16(ctx context.Context, name string, v uint16) error {
	return s.write(ctx, name, KindUInt16, false, func(n *Node) { n.UInt16 = v })
}

// ClientWriteBool sets a boolean node on behalf of an HMI client.
func (s *Store) ClientWriteBool(ctx context.Context, name string, v bool) error {
	return s.write(ctx, name, KindBool, true, func(n *Node) { n.Bool = v })
}

// ClientWriteUInt16 sets an unsigned 16-bit node on behalf of an HMI client.
func (s *Store) ClientWriteUInt16(ctx context.Context, name string, v uint16) error {
	return s.write(ctx, name, KindUInt16, true, func(n *Node) { n.UInt16 = v })
}

func (s *Store) write(ctx context.Context, name string, kind Kind, client bool, set func(*Node)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := s.lookup(name)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Kind != kind {
		return fmt.Errorf("%s is %s, not %s: %w", name, n.Kind, kind, ErrTypeMismatch)
	}
	if client && !n.Writable {
		return fmt.Errorf("%s: %w", name, ErrNotWritable)
	}
	set(&n.Node)
	return nil
}
