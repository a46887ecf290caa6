package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// Middleware processes an item and returns the (possibly modified) item.
// Return nil to drop the item from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an item. Return nil to drop the item.
	Process(item *types.FeedItem) (*types.FeedItem, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	onDrop      func(stage string, item *types.FeedItem)
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// OnDrop registers a callback invoked with the stage name whenever a
// middleware drops an item.
func (p *Pipeline) OnDrop(fn func(stage string, item *types.FeedItem)) {
	p.onDrop = fn
}

// Process runs the item through all middleware in order.
func (p *Pipeline) Process(item *types.FeedItem) (*types.FeedItem, error) {
	current := item

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Item:  current,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Info("item dropped", "stage", mw.Name(), "url", item.GUID)
			if p.onDrop != nil {
				p.onDrop(mw.Name(), item)
			}
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
