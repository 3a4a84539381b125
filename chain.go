package messageformat

import (
	"context"

	"github.com/pitabwire/util"

	"github.com/pitabwire/messageformat/catalog"
	"github.com/pitabwire/messageformat/workerpool"
)

// Chain builds one node per locale, all reading from directory through
// loader. locales[0] becomes the returned head, linked to locales[1] and so
// on; the last locale ends the chain.
func Chain(loader *catalog.Loader, directory string, locales []string, opts ...Option) (*MessageFormat, error) {
	if len(locales) == 0 {
		return nil, ErrNoLocales
	}

	var link *MessageFormat
	for i := len(locales) - 1; i >= 0; i-- {
		nodeOpts := append([]Option{}, opts...)
		if link != nil {
			nodeOpts = append(nodeOpts, WithLink(link))
		}
		link = New(loader, directory, locales[i], nodeOpts...)
	}

	return link, nil
}

// Nodes lists m followed by every node reachable through its links.
func (m *MessageFormat) Nodes() []*MessageFormat {
	var nodes []*MessageFormat
	for n := m; n != nil; n = n.link {
		nodes = append(nodes, n)
	}
	return nodes
}

// Preload loads the catalogs of nodes and of every node they link to,
// concurrency at a time. Nodes shared between chains are loaded once. All
// load failures are joined into the returned error.
func Preload(ctx context.Context, concurrency int, nodes ...*MessageFormat) error {
	seen := map[*MessageFormat]struct{}{}
	var tasks []func(context.Context) error
	for _, head := range nodes {
		for _, n := range head.Nodes() {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			tasks = append(tasks, func(ctx context.Context) error {
				_, err := n.ensureLoaded(ctx)
				return err
			})
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	var poolOpts []workerpool.Option
	if concurrency > 0 {
		poolOpts = append(poolOpts, workerpool.WithSinglePoolCapacity(concurrency))
	}
	pool, err := workerpool.New(ctx, poolOpts...)
	if err != nil {
		return err
	}
	defer pool.Shutdown()

	err = workerpool.Run(ctx, pool, tasks...)
	if err != nil {
		util.Log(ctx).WithError(err).Warn("catalog preload incomplete")
	}
	return err
}
