package boschhttp

import "context"

type crawler struct {
	env *Env
	// skip sub paths that fail instead of aborting
	tolerant bool
}

// crawl collects the nodes below path. Leaves and nodes at depth zero are
// returned, branches are followed with depth-1. Depth zero always stops, a
// negative depth is unlimited.
func (c *crawler) crawl(ctx context.Context, path string, depth int, res []Node) ([]Node, error) {
	var node Node
	if err := c.env.Conn.Get(ctx, path, &node); err != nil {
		return res, err
	}

	if !node.IsBranch() || depth == 0 {
		if node.ID != "" {
			res = append(res, node)
		}
		return res, nil
	}

	for _, ref := range node.References {
		var err error
		if res, err = c.crawl(ctx, ref.ID, depth-1, res); err != nil {
			if !c.tolerant {
				return res, err
			}
			c.env.debug("scan %s: %v", ref.ID, err)
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}

	return res, nil
}

// Crawl returns the nodes below path down to depth
func Crawl(ctx context.Context, env *Env, path string, depth int) ([]Node, error) {
	c := &crawler{env: env}
	return c.crawl(ctx, path, depth, nil)
}
