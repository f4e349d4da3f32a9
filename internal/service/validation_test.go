package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenCatalog fails every lookup with an infrastructure error.
type brokenCatalog struct{ ProductCatalog }

var errCatalogDown = errors.New("catalog: connection reset")

func (brokenCatalog) GetProduct(ctx context.Context, id int64) (*domain.ProductSnapshot, error) {
	return nil, errCatalogDown
}

type brokenLedger struct{}

func (brokenLedger) ReservedQuantity(ctx context.Context, productID int64, excludeCartKey string) (int64, error) {
	return 0, errors.New("ledger: timeout")
}

func TestValidationPipeline_ValidateAdd(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		params   AddItemParams
		wantKind domain.Kind
		wantQty  int64
	}{
		{
			name:    "simple product",
			params:  AddItemParams{ProductID: productMug, Quantity: 2},
			wantQty: 2,
		},
		{
			name:    "by sku",
			params:  AddItemParams{SKU: "MUG-1", Quantity: 1},
			wantQty: 1,
		},
		{
			name:     "no identifier",
			params:   AddItemParams{Quantity: 1},
			wantKind: domain.KindProductNotFound,
		},
		{
			name:     "unknown product",
			params:   AddItemParams{ProductID: 999, Quantity: 1},
			wantKind: domain.KindProductNotFound,
		},
		{
			name:     "unknown sku",
			params:   AddItemParams{SKU: "NOPE", Quantity: 1},
			wantKind: domain.KindProductNotFound,
		},
		{
			name:     "trashed product",
			params:   AddItemParams{ProductID: productTrashed, Quantity: 1},
			wantKind: domain.KindProductNotEligible,
		},
		{
			name:     "not purchasable",
			params:   AddItemParams{ProductID: productDraftOnly, Quantity: 1},
			wantKind: domain.KindNotPurchasable,
		},
		{
			name:     "out of stock",
			params:   AddItemParams{ProductID: productSoldOut, Quantity: 1},
			wantKind: domain.KindInsufficientStock,
		},
		{
			name:     "zero quantity",
			params:   AddItemParams{ProductID: productMug, Quantity: 0},
			wantKind: domain.KindQuantityInvalid,
		},
		{
			name:     "below minimum",
			params:   AddItemParams{ProductID: productPoster, Quantity: 1},
			wantKind: domain.KindQuantityInvalid,
		},
		{
			name:     "above maximum",
			params:   AddItemParams{ProductID: productPoster, Quantity: 7},
			wantKind: domain.KindQuantityInvalid,
		},
		{
			name:     "more than stock",
			params:   AddItemParams{ProductID: productMug, Quantity: 6},
			wantKind: domain.KindInsufficientStock,
		},
		{
			name:     "variable product without selection",
			params:   AddItemParams{ProductID: productShirt, Quantity: 1},
			wantKind: domain.KindVariationAttributesMissing,
		},
		{
			name:    "sold individually is coerced to one",
			params:  AddItemParams{ProductID: productGiftCard, Quantity: 4},
			wantQty: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewValidationPipeline(seedCatalog(), memory.NewLedger())
			cart := domain.NewCart("c", testNow)

			item, err := p.ValidateAdd(ctx, cart, tt.params)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, domain.ErrorKind(err), "got %v", err)
				assert.Nil(t, item)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, item.Quantity)
			assert.Len(t, item.Key, 32)
		})
	}
}

func TestValidationPipeline_QuantityBoundInPayload(t *testing.T) {
	p := NewValidationPipeline(seedCatalog(), memory.NewLedger())

	_, err := p.ValidateAdd(context.Background(), domain.NewCart("c", testNow), AddItemParams{ProductID: productPoster, Quantity: 1})

	data := domain.ErrorData(err)
	assert.Equal(t, "min", data["bound"])
	assert.Equal(t, int64(2), data["limit"])
}

func TestValidationPipeline_VariationAsProduct(t *testing.T) {
	p := NewValidationPipeline(seedCatalog(), memory.NewLedger())

	item, err := p.ValidateAdd(context.Background(), domain.NewCart("c", testNow),
		AddItemParams{ProductID: variationRedM, Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, productShirt, item.ProductID)
	assert.Equal(t, variationRedM, item.VariationID)
	assert.Equal(t, domain.Variation{{Name: "color", Value: "red"}, {Name: "size", Value: "M"}}, item.Variation)

	// Same line as selecting the attributes on the parent.
	viaParent, err := p.ValidateAdd(context.Background(), domain.NewCart("c", testNow), AddItemParams{
		ProductID: productShirt, Quantity: 1,
		Variation: domain.Variation{{Name: "color", Value: "red"}, {Name: "size", Value: "M"}},
	})
	require.NoError(t, err)
	assert.Equal(t, viaParent.Key, item.Key)
}

func TestValidationPipeline_StagesRunInOrder(t *testing.T) {
	// A trashed, unpurchasable, sold out product fails eligibility first.
	catalog := seedCatalog()
	catalog.Put(domain.ProductSnapshot{
		ID: 500, Type: domain.ProductTypeSimple, Name: "Everything wrong",
		Status: domain.ProductStatusTrash, Purchasable: false,
		StockStatus: domain.StockStatusOutOfStock,
	})
	p := NewValidationPipeline(catalog, memory.NewLedger())

	_, err := p.ValidateAdd(context.Background(), domain.NewCart("c", testNow), AddItemParams{ProductID: 500, Quantity: 1})
	assert.True(t, domain.IsKind(err, domain.KindProductNotEligible), "got %v", err)
}

func TestValidationPipeline_SharedStock(t *testing.T) {
	// Variations drawing on the parent's stock share one pool.
	catalog := seedCatalog()
	catalog.Put(domain.ProductSnapshot{
		ID: 80, Type: domain.ProductTypeVariable, Name: "Beans",
		Status: domain.ProductStatusPublish, Purchasable: true,
		ManageStock: true, StockQuantity: 3, StockStatus: domain.StockStatusInStock,
		VariationAttributes: []domain.AttributeDefinition{{Name: "grind", Options: []string{"whole", "fine"}}},
	})
	for i, grind := range []string{"whole", "fine"} {
		catalog.PutVariation(domain.ProductSnapshot{
			ID: int64(81 + i), ParentID: 80, Name: "Beans " + grind,
			Status: domain.ProductStatusPublish, Purchasable: true, PriceCents: 1800,
			ManageStock: true, StockProductID: 80, StockQuantity: 3, StockStatus: domain.StockStatusInStock,
		}, domain.Variation{{Name: "grind", Value: grind}})
	}
	p := NewValidationPipeline(catalog, memory.NewLedger())
	ctx := context.Background()
	cart := domain.NewCart("c", testNow)

	whole, err := p.ValidateAdd(ctx, cart, AddItemParams{ProductID: 80, Quantity: 2,
		Variation: domain.Variation{{Name: "grind", Value: "whole"}}})
	require.NoError(t, err)
	cart.AddItem(*whole)

	_, err = p.ValidateAdd(ctx, cart, AddItemParams{ProductID: 80, Quantity: 2,
		Variation: domain.Variation{{Name: "grind", Value: "fine"}}})
	require.True(t, domain.IsKind(err, domain.KindInsufficientStock), "got %v", err)
	assert.Equal(t, int64(2), domain.ErrorData(err)["in_cart"])
}

func TestValidationPipeline_UpdateKeepsIdentity(t *testing.T) {
	catalog := seedCatalog()
	p := NewValidationPipeline(catalog, memory.NewLedger())
	ctx := context.Background()
	cart := domain.NewCart("c", testNow)

	added, err := p.ValidateAdd(ctx, cart, AddItemParams{ProductID: productShirt, Quantity: 1,
		Variation: domain.Variation{{Name: "color", Value: "blue"}, {Name: "size", Value: "S"}}})
	require.NoError(t, err)
	line := cart.AddItem(*added)

	repriced, err := catalog.GetProduct(ctx, variationBlueAny)
	require.NoError(t, err)
	repriced.PriceCents = 2000
	catalog.PutVariation(*repriced, domain.Variation{{Name: "color", Value: "blue"}, {Name: "size", Value: ""}})

	updated, err := p.ValidateUpdate(ctx, cart, line, 3)
	require.NoError(t, err)
	assert.Equal(t, line.Key, updated.Key)
	assert.Equal(t, line.Variation, updated.Variation)
	assert.Equal(t, int64(3), updated.Quantity)
	assert.Equal(t, int64(2000), updated.Product.PriceCents)
}

func TestValidationPipeline_BackendFailures(t *testing.T) {
	ctx := context.Background()
	cart := domain.NewCart("c", testNow)

	p := NewValidationPipeline(brokenCatalog{ProductCatalog: seedCatalog()}, memory.NewLedger())
	_, err := p.ValidateAdd(ctx, cart, AddItemParams{ProductID: productMug, Quantity: 1})
	assert.True(t, domain.IsKind(err, domain.KindCartBackendUnavailable), "got %v", err)
	assert.ErrorIs(t, err, errCatalogDown)

	p = NewValidationPipeline(seedCatalog(), brokenLedger{})
	_, err = p.ValidateAdd(ctx, cart, AddItemParams{ProductID: productMug, Quantity: 1})
	assert.True(t, domain.IsKind(err, domain.KindCartBackendUnavailable), "got %v", err)

	// Unmanaged stock never consults the ledger.
	_, err = p.ValidateAdd(ctx, cart, AddItemParams{ProductID: productPoster, Quantity: 2})
	assert.NoError(t, err)
}

func TestValidationPipeline_ExpiredReservationsIgnored(t *testing.T) {
	ledger := memory.NewLedger()
	ledger.Reserve(productMug, "other", 5, time.Now().Add(-time.Minute))
	p := NewValidationPipeline(seedCatalog(), ledger)

	_, err := p.ValidateAdd(context.Background(), domain.NewCart("c", testNow), AddItemParams{ProductID: productMug, Quantity: 5})
	assert.NoError(t, err)
}
