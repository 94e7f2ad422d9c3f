package api

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	dashboardPath = "/v2x/dashboard"
	vehiclesPath  = "/v2x/vehicles"
)

// GetStats fetches the dashboard statistics.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var resp struct {
		Stats Stats `json:"stats"`
	}
	if err := c.Get(ctx, dashboardPath, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// GetVehicles fetches the connected vehicle list.
func (c *Client) GetVehicles(ctx context.Context) ([]Vehicle, error) {
	var resp struct {
		Vehicles []Vehicle `json:"vehicles"`
	}
	if err := c.Get(ctx, vehiclesPath, &resp); err != nil {
		return nil, err
	}
	return resp.Vehicles, nil
}

// FetchDashboard fetches statistics and vehicles concurrently. It fails if
// either request fails.
func (c *Client) FetchDashboard(ctx context.Context) (*Dashboard, error) {
	var (
		stats    *Stats
		vehicles []Vehicle
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.GetStats(ctx)
		if err != nil {
			return err
		}
		stats = s
		return nil
	})
	g.Go(func() error {
		v, err := c.GetVehicles(ctx)
		if err != nil {
			return err
		}
		vehicles = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Dashboard{Stats: *stats, Vehicles: vehicles}, nil
}
