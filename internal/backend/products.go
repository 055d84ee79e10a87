package backend

import (
	"context"

	"studio/internal/domain"
)

// ActiveProducts lists the studio products currently offered.
func (c *Client) ActiveProducts(ctx context.Context) ([]domain.StudioProduct, error) {
	var products []domain.StudioProduct
	if err := c.getJSON(ctx, "/studio-products/active", &products); err != nil {
		return nil, err
	}
	return products, nil
}
