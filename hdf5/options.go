package hdf5

// OpenOption configures how a file is opened.
type OpenOption func(*openOptions)

type openOptions struct {
	maxLinkDepth int
}

func defaultOpenOptions() *openOptions {
	return &openOptions{maxLinkDepth: MaxLinkDepth}
}

// WithMaxLinkDepth limits the soft links followed during one path lookup.
// Values below one are ignored.
func WithMaxLinkDepth(n int) OpenOption {
	return func(o *openOptions) {
		if n > 0 {
			o.maxLinkDepth = n
		}
	}
}
