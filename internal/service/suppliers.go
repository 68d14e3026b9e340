package service

import (
	"context"
	"log"
	"strings"
	"time"

	"herbmanager/backend/internal/domain"
)

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierRequest) (domain.Supplier, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return domain.Supplier{}, err
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:  name,
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return domain.Supplier{}, err
	}
	return *created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, req domain.SupplierRequest) (domain.Supplier, error) {
	if err := requireID("id", req.ID); err != nil {
		return domain.Supplier{}, err
	}
	name, err := requireName(req.Name)
	if err != nil {
		return domain.Supplier{}, err
	}

	updated, err := s.repo.UpdateSupplier(ctx, domain.Supplier{
		ID:    req.ID,
		Name:  name,
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return domain.Supplier{}, err
	}
	s.stats.Invalidate(ctx)
	return *updated, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	return s.repo.DeleteSupplier(ctx, id)
}

// AccrueDebt records an amount owed to a supplier as an invoice without
// items. The date defaults to today.
func (s *Service) AccrueDebt(ctx context.Context, req domain.SupplierRequest) (domain.Invoice, error) {
	if err := requireID("supplierId", req.SupplierID); err != nil {
		return domain.Invoice{}, err
	}
	amount, err := requirePositive("debtAmount", req.DebtAmount)
	if err != nil {
		return domain.Invoice{}, err
	}
	date := domain.DateOf(time.Now())
	if req.DebtDate != nil && !req.DebtDate.IsZero() {
		date = *req.DebtDate
	}

	inv, err := s.repo.AccrueSupplierDebt(ctx, req.SupplierID, amount, date)
	if err != nil {
		return domain.Invoice{}, err
	}
	s.stats.Invalidate(ctx)
	return *inv, nil
}

// RecordPayment settles the supplier's open invoices oldest first. Any part
// of the payment beyond the open debt is reported back and not kept.
func (s *Service) RecordPayment(ctx context.Context, req domain.SupplierRequest) (domain.PaymentResult, error) {
	if err := requireID("supplierId", req.SupplierID); err != nil {
		return domain.PaymentResult{}, err
	}
	amount, err := requirePositive("paymentAmount", req.PaymentAmount)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	result, err := s.repo.AllocateSupplierPayment(ctx, req.SupplierID, amount)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	if result.Unapplied.IsPositive() {
		log.Printf("[service] WARN: payment exceeds open debt supplier=%d unapplied=%s", req.SupplierID, result.Unapplied)
	}
	s.stats.Invalidate(ctx)
	return *result, nil
}
