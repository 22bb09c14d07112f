package datafile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Suffix families. A run writes all of its files with one suffix.
var (
	netcdfSuffixes = []string{".nc", ".ncdf", ".cdl"}
	hdf5Suffixes   = []string{".h5", ".hdf5", ".hdf"}
)

// FindFiles discovers the dump files of a run under path. A run is either
// one merged file named prefix+suffix (parallel) or one file per process
// named prefix.N+suffix, returned in process order.
func FindFiles(path, prefix string) (files []string, parallel bool, suffix string, err error) {
	prefix = strings.TrimSuffix(prefix, ".")

	var merged, split, mergedSuf, splitSuf []string
	for _, family := range [][]string{netcdfSuffixes, hdf5Suffixes} {
		for _, suf := range family {
			m, err := filepath.Glob(filepath.Join(path, prefix+suf))
			if err != nil {
				return nil, false, "", err
			}
			if len(m) > 0 {
				merged = append(merged, m...)
				mergedSuf = append(mergedSuf, suf)
			}
			s, err := filepath.Glob(filepath.Join(path, prefix+".*"+suf))
			if err != nil {
				return nil, false, "", err
			}
			if len(s) > 0 {
				split = append(split, s...)
				splitSuf = append(splitSuf, suf)
			}
		}
	}

	switch {
	case len(mergedSuf) > 1:
		return nil, false, "", fmt.Errorf("%w: parallel dump files with suffixes %s in %s", ErrLayoutConflict, strings.Join(mergedSuf, ", "), path)
	case len(splitSuf) > 1:
		return nil, false, "", fmt.Errorf("%w: dump files with suffixes %s in %s", ErrLayoutConflict, strings.Join(splitSuf, ", "), path)
	case len(merged) > 0 && len(split) > 0:
		return nil, false, "", fmt.Errorf("%w: both parallel and per-process dump files in %s", ErrLayoutConflict, path)
	case len(merged) > 0:
		return merged, true, mergedSuf[0], nil
	case len(split) == 0:
		return nil, false, "", fmt.Errorf("%w: no data files found in %s", ErrLayoutConflict, path)
	}

	files = make([]string, len(split))
	for i := range files {
		files[i] = filepath.Join(path, fmt.Sprintf("%s.%d%s", prefix, i, splitSuf[0]))
	}
	return files, false, splitSuf[0], nil
}
