// Package clipboard holds copied instance subtrees in msgpack form so they
// can be pasted into the same or another session.
package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"contenteditor/internal/ecml"
	"contenteditor/pkg/plugin"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ErrEmpty is returned when pasting from an empty clipboard.
var ErrEmpty = errors.New("clipboard is empty")

// Clipboard stores one encoded subtree.
type Clipboard struct {
	mu     sync.Mutex
	data   []byte
	logger *zap.Logger
}

// New creates an empty clipboard.
func New(logger *zap.Logger) *Clipboard {
	return &Clipboard{logger: logger.Named("clipboard")}
}

// Copy encodes the subtree rooted at id.
func (c *Clipboard) Copy(s *plugin.Session, id string) error {
	node, err := s.Snapshot(id)
	if err != nil {
		return err
	}
	return c.Store(node)
}

// Store encodes node onto the clipboard.
func (c *Clipboard) Store(node ecml.Node) error {
	data, err := msgpack.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to encode clipboard: %w", err)
	}

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()

	c.logger.Debug("Copied", zap.String("type", node.Type), zap.Int("nodes", node.Count()))
	return nil
}

// Bytes returns the encoded clipboard, or nil.
func (c *Clipboard) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

// SetBytes replaces the clipboard with data from another editor. data must
// decode as a node.
func (c *Clipboard) SetBytes(data []byte) error {
	if _, err := decode(data); err != nil {
		return err
	}
	c.mu.Lock()
	c.data = append([]byte(nil), data...)
	c.mu.Unlock()
	return nil
}

// Empty reports whether anything was copied.
func (c *Clipboard) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data) == 0
}

// Node decodes the clipboard with every id removed, so pasting creates
// fresh instances.
func (c *Clipboard) Node() (ecml.Node, error) {
	c.mu.Lock()
	data := c.data
	c.mu.Unlock()

	if len(data) == 0 {
		return ecml.Node{}, ErrEmpty
	}
	node, err := decode(data)
	if err != nil {
		return ecml.Node{}, err
	}
	stripIDs(&node)
	return node, nil
}

// Paste instantiates the clipboard on the current stage of s and returns
// the new root instance.
func (c *Clipboard) Paste(s *plugin.Session) (*plugin.Instance, error) {
	node, err := c.Node()
	if err != nil {
		return nil, err
	}

	inst, err := s.Create(node.Type, node.Fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to paste %s: %w", node.Type, err)
	}
	if err := s.Load(node.Children, inst.ID()); err != nil {
		c.logger.Warn("Pasted with errors", zap.String("id", inst.ID()), zap.Error(err))
	}
	return inst, nil
}

func decode(data []byte) (ecml.Node, error) {
	var node ecml.Node
	if err := msgpack.Unmarshal(data, &node); err != nil {
		return ecml.Node{}, fmt.Errorf("failed to decode clipboard: %w", err)
	}
	if node.Type == "" {
		return ecml.Node{}, fmt.Errorf("failed to decode clipboard: node has no type")
	}
	return node, nil
}

func stripIDs(node *ecml.Node) {
	delete(node.Fragment, ecml.KeyID)
	for i := range node.Children {
		stripIDs(&node.Children[i])
	}
}
