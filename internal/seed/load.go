package seed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/apetrenko/linkgraph/internal/domain"
	"github.com/apetrenko/linkgraph/internal/service"
)

// Load pushes a generated dataset through the service. Persons go first so
// their minted ids can be bound into the transfer patches; transfers then go
// through the bulk loader.
func Load(ctx context.Context, svc *service.LinkService, ds Dataset, workers int) error {
	if workers <= 0 {
		workers = 4
	}

	ids := make([]string, len(ds.Persons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range ds.Persons {
		i := i
		g.Go(func() error {
			result, err := svc.UpsertPerson(gctx, ds.Persons[i])
			if err != nil {
				return fmt.Errorf("seed person %d: %w", i, err)
			}
			ids[i] = result.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	patches := make([]domain.TransferPatch, len(ds.Transfers))
	for i, spec := range ds.Transfers {
		patch := spec.Patch
		patch.PayerID = &ids[spec.PayerIdx]
		patch.PayeeID = &ids[spec.PayeeIdx]
		patches[i] = patch
	}

	return service.NewBulkLoader(svc, workers).LoadTransfers(ctx, patches)
}
