package app

import (
	"context"
	"encoding/json"
	"os"

	"github.com/JosueCoro/mobicorp/internal/service"
)

// Sweep runs one range sweep and prints the summary as JSON.
func (a *App) Sweep(ctx context.Context, opts SweepOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store, nil)

	result, err := svc.Sweep(ctx, service.SweepParams{
		CategoryID: opts.CategoryID,
		MinPrice:   opts.MinPrice,
		MaxPrice:   opts.MaxPrice,
		Delay:      opts.Delay,
	})
	if err != nil {
		return err
	}

	return writeJSON(result)
}

// FullSweep runs a sweep across the entire configured price range.
func (a *App) FullSweep(ctx context.Context, categoryID int, opts SweepOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store, nil)

	result, err := svc.FullSweep(ctx, categoryID, opts.Delay)
	if err != nil {
		return err
	}

	return writeJSON(result)
}

// Suggest prints the market comparison payload for one product.
func (a *App) Suggest(ctx context.Context, productID int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store, nil)

	suggestion, err := svc.Suggest(ctx, productID)
	if err != nil {
		return err
	}

	return writeJSON(suggestion)
}

func writeJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
