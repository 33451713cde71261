package partitions

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run evaluates fn for every point of layout, one goroutine per partition.
// Points within a partition run in order. The first error cancels the
// context seen by the remaining points and is returned.
func Run(ctx context.Context, layout *PartitionLayout, fn func(ctx context.Context, point int) error) error {
	if err := layout.ValidateLayout(); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range layout.Partitions {
		p := p
		g.Go(func() error {
			for _, k := range p.Points {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(ctx, k); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
