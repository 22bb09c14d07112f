package hdf5

import (
	"errors"
	"path"
)

// ErrSkipGroup returned from a WalkFunc on a group skips its children.
var ErrSkipGroup = errors.New("skip this group")

// WalkFunc is called for each object during traversal. obj is a *Group or
// a *Dataset; err is set when the object could not be opened, in which case
// obj is nil. Returning a non-nil error other than ErrSkipGroup stops the walk.
type WalkFunc func(path string, obj any, err error) error

// Walk visits g and everything below it, depth first, children in name
// order. A group reachable along several paths is entered once.
func Walk(g *Group, fn WalkFunc) error {
	err := walkGroup(g, fn, map[uint64]bool{})
	if errors.Is(err, ErrSkipGroup) {
		return nil
	}
	return err
}

func walkGroup(g *Group, fn WalkFunc, seen map[uint64]bool) error {
	if seen[g.header.Address] {
		return nil
	}
	seen[g.header.Address] = true
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	members, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}
	for _, name := range members {
		childPath := path.Join(g.Path(), name)
		obj, err := g.Object(name)
		if err != nil {
			if err := fn(childPath, nil, err); err != nil {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			if err := walkGroup(o, fn, seen); err != nil && !errors.Is(err, ErrSkipGroup) {
				return err
			}
		case *Dataset:
			if err := fn(childPath, o, nil); err != nil && !errors.Is(err, ErrSkipGroup) {
				return err
			}
		}
	}
	return nil
}
