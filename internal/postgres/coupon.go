package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/dukerupert/freyja-cart/internal/repository"
	"github.com/dukerupert/freyja-cart/internal/service"
)

// CouponRepository implements service.CouponRepository using PostgreSQL.
// Codes are stored lowercased.
type CouponRepository struct {
	repo repository.Querier
}

// Compile-time check that CouponRepository implements service.CouponRepository.
var _ service.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(repo repository.Querier) *CouponRepository {
	return &CouponRepository{repo: repo}
}

// GetCoupon returns the coupon with the given code, ignoring case.
func (r *CouponRepository) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	const op = "coupon.get"

	row, err := r.repo.GetCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "coupon", code)
		}
		return nil, domain.Internal(err, op, "failed to get coupon")
	}

	return &domain.Coupon{
		Code:             row.Code,
		Type:             domain.CouponType(row.Type),
		AmountCents:      row.AmountCents,
		Percent:          decimalFromNumeric(row.Percent),
		MinSubtotalCents: row.MinSubtotalCents,
		MaxDiscountCents: row.MaxDiscountCents,
		ExpiresAt:        timePtr(row.ExpiresAt),
		Active:           row.Active,
	}, nil
}

// PutCoupon creates or replaces a coupon definition.
func (r *CouponRepository) PutCoupon(ctx context.Context, c domain.Coupon) error {
	const op = "coupon.put"

	code := strings.ToLower(strings.TrimSpace(c.Code))
	if code == "" {
		return domain.Invalid(op, "coupon code is required")
	}
	switch c.Type {
	case domain.CouponTypeFixedCart, domain.CouponTypePercent:
	default:
		return domain.Invalid(op, "unknown coupon type")
	}

	err := r.repo.UpsertCoupon(ctx, repository.UpsertCouponParams{
		Code:             code,
		Type:             string(c.Type),
		AmountCents:      c.AmountCents,
		Percent:          numericFromDecimal(c.Percent),
		MinSubtotalCents: c.MinSubtotalCents,
		MaxDiscountCents: c.MaxDiscountCents,
		ExpiresAt:        pgTimestamptzFromPtr(c.ExpiresAt),
		Active:           c.Active,
	})
	if err != nil {
		return domain.Internal(err, op, "failed to save coupon")
	}
	return nil
}
