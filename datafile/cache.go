package datafile

import (
	"errors"
	"fmt"
)

// Cache holds the open dump files of a run so repeated reads skip the
// discovery and the header parsing. It is built once and not modified;
// readers that receive a Cache never close its handles.
type Cache struct {
	Files    []string
	Parallel bool
	Suffix   string
	Handles  []File

	index map[string]int
}

// CreateCache discovers the dump files under path and opens all of them.
func CreateCache(path, prefix string) (*Cache, error) {
	files, parallel, suffix, err := FindFiles(path, prefix)
	if err != nil {
		return nil, err
	}
	handles := make([]File, 0, len(files))
	for _, name := range files {
		f, err := Open(name)
		if err != nil {
			for _, h := range handles {
				h.Close()
			}
			return nil, fmt.Errorf("caching %s: %w", name, err)
		}
		handles = append(handles, f)
	}
	return NewCache(files, parallel, suffix, handles), nil
}

// NewCache wraps handles that are already open, one per file.
func NewCache(files []string, parallel bool, suffix string, handles []File) *Cache {
	c := &Cache{
		Files:    files,
		Parallel: parallel,
		Suffix:   suffix,
		Handles:  handles,
		index:    make(map[string]int, len(files)),
	}
	for i, name := range files {
		c.index[name] = i
	}
	return c
}

// Lookup returns the cached handle of a file by its path.
func (c *Cache) Lookup(path string) (File, bool) {
	i, ok := c.index[path]
	if !ok || i >= len(c.Handles) {
		return nil, false
	}
	return c.Handles[i], true
}

// Close closes every cached handle.
func (c *Cache) Close() error {
	var errs []error
	for _, f := range c.Handles {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
