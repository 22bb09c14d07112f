package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// Pipeline decodes chunks by running the filters of a pipeline message in
// reverse order.
type Pipeline struct {
	filters []Filter
}

// NewPipeline builds a pipeline. A nil message yields an empty pipeline.
func NewPipeline(fp *message.FilterPipeline, elemSize int) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info, elemSize)
		if err != nil {
			return nil, err
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

// Decode undoes the pipeline. Bit i of mask set means filter i was skipped
// when the chunk was written.
func (p *Pipeline) Decode(data []byte, mask uint32) ([]byte, error) {
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("filter %d: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Len is the number of filters.
func (p *Pipeline) Len() int { return len(p.filters) }
