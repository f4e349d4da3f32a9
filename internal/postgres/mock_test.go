package postgres

import (
	"context"
	"database/sql"

	"github.com/dukerupert/freyja-cart/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// mockQuerier implements repository.Querier for testing. Unset lookups
// return sql.ErrNoRows; unset writes succeed.
type mockQuerier struct {
	// Catalog mocks
	GetProductFunc                   func(ctx context.Context, id int64) (repository.Product, error)
	GetProductBySKUFunc              func(ctx context.Context, sku pgtype.Text) (repository.Product, error)
	ListProductAttributesFunc        func(ctx context.Context, productID int64) ([]repository.ProductAttribute, error)
	ListVariationAttributesFunc      func(ctx context.Context, variationID int64) ([]repository.VariationAttribute, error)
	ListVariationsWithAttributesFunc func(ctx context.Context, parentID pgtype.Int8) ([]repository.ListVariationsWithAttributesRow, error)

	// Session mocks
	GetCartFunc            func(ctx context.Context, arg repository.GetCartParams) (repository.Cart, error)
	InsertCartFunc         func(ctx context.Context, arg repository.InsertCartParams) (int64, error)
	UpdateCartFunc         func(ctx context.Context, arg repository.UpdateCartParams) (int64, error)
	DeleteCartFunc         func(ctx context.Context, key string) error
	DeleteExpiredCartsFunc func(ctx context.Context, now pgtype.Timestamptz) (int64, error)

	// Reservation mocks
	SumReservedQuantityFunc       func(ctx context.Context, arg repository.SumReservedQuantityParams) (int64, error)
	UpsertReservationFunc         func(ctx context.Context, arg repository.UpsertReservationParams) error
	DeleteReservationFunc         func(ctx context.Context, arg repository.DeleteReservationParams) error
	DeleteExpiredReservationsFunc func(ctx context.Context, now pgtype.Timestamptz) (int64, error)

	// Coupon mocks
	GetCouponFunc    func(ctx context.Context, code string) (repository.Coupon, error)
	UpsertCouponFunc func(ctx context.Context, arg repository.UpsertCouponParams) error
}

var _ repository.Querier = (*mockQuerier)(nil)

func (m *mockQuerier) GetProduct(ctx context.Context, id int64) (repository.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}
	return repository.Product{}, sql.ErrNoRows
}

func (m *mockQuerier) GetProductBySKU(ctx context.Context, sku pgtype.Text) (repository.Product, error) {
	if m.GetProductBySKUFunc != nil {
		return m.GetProductBySKUFunc(ctx, sku)
	}
	return repository.Product{}, sql.ErrNoRows
}

func (m *mockQuerier) ListProductAttributes(ctx context.Context, productID int64) ([]repository.ProductAttribute, error) {
	if m.ListProductAttributesFunc != nil {
		return m.ListProductAttributesFunc(ctx, productID)
	}
	return nil, nil
}

func (m *mockQuerier) ListVariationAttributes(ctx context.Context, variationID int64) ([]repository.VariationAttribute, error) {
	if m.ListVariationAttributesFunc != nil {
		return m.ListVariationAttributesFunc(ctx, variationID)
	}
	return nil, nil
}

func (m *mockQuerier) ListVariationsWithAttributes(ctx context.Context, parentID pgtype.Int8) ([]repository.ListVariationsWithAttributesRow, error) {
	if m.ListVariationsWithAttributesFunc != nil {
		return m.ListVariationsWithAttributesFunc(ctx, parentID)
	}
	return nil, nil
}

func (m *mockQuerier) GetCart(ctx context.Context, arg repository.GetCartParams) (repository.Cart, error) {
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx, arg)
	}
	return repository.Cart{}, sql.ErrNoRows
}

func (m *mockQuerier) InsertCart(ctx context.Context, arg repository.InsertCartParams) (int64, error) {
	if m.InsertCartFunc != nil {
		return m.InsertCartFunc(ctx, arg)
	}
	return 1, nil
}

func (m *mockQuerier) UpdateCart(ctx context.Context, arg repository.UpdateCartParams) (int64, error) {
	if m.UpdateCartFunc != nil {
		return m.UpdateCartFunc(ctx, arg)
	}
	return 1, nil
}

func (m *mockQuerier) DeleteCart(ctx context.Context, key string) error {
	if m.DeleteCartFunc != nil {
		return m.DeleteCartFunc(ctx, key)
	}
	return nil
}

func (m *mockQuerier) DeleteExpiredCarts(ctx context.Context, now pgtype.Timestamptz) (int64, error) {
	if m.DeleteExpiredCartsFunc != nil {
		return m.DeleteExpiredCartsFunc(ctx, now)
	}
	return 0, nil
}

func (m *mockQuerier) SumReservedQuantity(ctx context.Context, arg repository.SumReservedQuantityParams) (int64, error) {
	if m.SumReservedQuantityFunc != nil {
		return m.SumReservedQuantityFunc(ctx, arg)
	}
	return 0, nil
}

func (m *mockQuerier) UpsertReservation(ctx context.Context, arg repository.UpsertReservationParams) error {
	if m.UpsertReservationFunc != nil {
		return m.UpsertReservationFunc(ctx, arg)
	}
	return nil
}

func (m *mockQuerier) DeleteReservation(ctx context.Context, arg repository.DeleteReservationParams) error {
	if m.DeleteReservationFunc != nil {
		return m.DeleteReservationFunc(ctx, arg)
	}
	return nil
}

func (m *mockQuerier) DeleteExpiredReservations(ctx context.Context, now pgtype.Timestamptz) (int64, error) {
	if m.DeleteExpiredReservationsFunc != nil {
		return m.DeleteExpiredReservationsFunc(ctx, now)
	}
	return 0, nil
}

func (m *mockQuerier) GetCoupon(ctx context.Context, code string) (repository.Coupon, error) {
	if m.GetCouponFunc != nil {
		return m.GetCouponFunc(ctx, code)
	}
	return repository.Coupon{}, sql.ErrNoRows
}

func (m *mockQuerier) UpsertCoupon(ctx context.Context, arg repository.UpsertCouponParams) error {
	if m.UpsertCouponFunc != nil {
		return m.UpsertCouponFunc(ctx, arg)
	}
	return nil
}
