// Package btree walks the B-trees HDF5 uses to index group members and
// dataset chunks.
//
// Version 1 nodes ("TREE") alternate keys and child pointers; type 0 nodes
// index group symbol table nodes and type 1 nodes index raw data chunks.
// Version 2 trees ("BTHD") hold fixed-size records and back dense link and
// attribute storage.
package btree

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// ErrInvalidNode is returned for a node with the wrong signature or type.
var ErrInvalidNode = errors.New("invalid B-tree node")

const (
	nodeGroup = 0
	nodeChunk = 1
)

// maxDepth bounds recursion through corrupt trees.
const maxDepth = 64

// walkV1 visits every leaf-level child of a version 1 tree in key order.
// fn receives the key to the left of the child and the child address.
func walkV1(r *binary.Reader, addr uint64, nodeType uint8, keySize int, depth int,
	fn func(key []byte, child uint64) error) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: tree deeper than %d", ErrInvalidNode, maxDepth)
	}
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("B-tree node at %d: %w", addr, err)
	}
	if string(head[:4]) != "TREE" || head[4] != nodeType {
		return fmt.Errorf("%w at %d", ErrInvalidNode, addr)
	}
	level := head[5]
	entries := int(head[6]) | int(head[7])<<8
	nr.Skip(2 * int64(nr.OffsetSize()))

	for i := 0; i < entries; i++ {
		key, err := nr.ReadBytes(keySize)
		if err != nil {
			return err
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		if level > 0 {
			err = walkV1(r, child, nodeType, keySize, depth+1, fn)
		} else {
			err = fn(key, child)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
