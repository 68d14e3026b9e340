package service

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"herbmanager/backend/internal/domain"
	"herbmanager/backend/internal/ledger"
	"herbmanager/backend/internal/store"
)

func (s *Service) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.InvoiceSummary, error) {
	if filter.Year != 0 && !validYear(filter.Year) {
		return nil, store.Invalid("year", msgInvalidYear)
	}
	if filter.BeforeYear != 0 && !validYear(filter.BeforeYear) {
		return nil, store.Invalid("beforeYear", msgInvalidYear)
	}
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	if err := requireID("id", id); err != nil {
		return domain.Invoice{}, err
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceRequest) (domain.InvoiceCreated, error) {
	if err := validateHeader(req); err != nil {
		return domain.InvoiceCreated{}, err
	}
	if len(req.Items) == 0 {
		return domain.InvoiceCreated{}, store.Invalid("items", msgItemsRequired)
	}
	for i, item := range req.Items {
		if item.ProductID < 1 {
			return domain.InvoiceCreated{}, store.Invalid(itemField(i, "productId"), msgInvalidProduct)
		}
		if err := validateLine(i, item); err != nil {
			return domain.InvoiceCreated{}, err
		}
	}

	created, err := s.repo.CreateInvoice(ctx, req)
	if err != nil {
		return domain.InvoiceCreated{}, err
	}
	s.stats.Invalidate(ctx)
	return *created, nil
}

// ReplaceInvoice rewrites the header and reconciles the item set: known ids
// are updated, lines with a product are added and every other stored line is
// removed. Totals are derived from the surviving lines.
func (s *Service) ReplaceInvoice(ctx context.Context, id int64, req domain.InvoiceRequest) (domain.Invoice, error) {
	if err := requireID("id", id); err != nil {
		return domain.Invoice{}, err
	}
	if err := validateHeader(req); err != nil {
		return domain.Invoice{}, err
	}
	for i, item := range req.Items {
		if err := validateLine(i, item); err != nil {
			return domain.Invoice{}, err
		}
	}

	inv, err := s.repo.ReplaceInvoice(ctx, id, req)
	if err != nil {
		return domain.Invoice{}, itemError(err)
	}
	s.stats.Invalidate(ctx)
	return *inv, nil
}

func (s *Service) UpdateInvoicePaidAmount(ctx context.Context, id int64, req domain.PaidAmountRequest) (domain.Invoice, error) {
	if err := requireID("id", id); err != nil {
		return domain.Invoice{}, err
	}
	if req.PaidAmount == nil || req.PaidAmount.IsNegative() {
		return domain.Invoice{}, store.Invalid("paidAmount", msgNegativePaid)
	}
	if !ledger.WithinScale(*req.PaidAmount, ledger.MoneyPlaces) {
		return domain.Invoice{}, store.Invalid("paidAmount", msgMoneyScale)
	}

	inv, err := s.repo.UpdateInvoicePaidAmount(ctx, id, *req.PaidAmount)
	if err != nil {
		return domain.Invoice{}, err
	}
	s.stats.Invalidate(ctx)
	return *inv, nil
}

// DeleteInvoice removes the invoice and its items. A missing id is not an
// error.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.repo.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.stats.Invalidate(ctx)
	return nil
}

func validateHeader(req domain.InvoiceRequest) error {
	if req.SupplierID < 1 {
		return store.Invalid("supplierId", msgSupplierRequired)
	}
	if req.InvoiceDate == nil || req.InvoiceDate.IsZero() {
		return store.Invalid("invoiceDate", msgDateRequired)
	}
	if req.PaidAmount.IsNegative() {
		return store.Invalid("paidAmount", msgNegativePaid)
	}
	if !ledger.WithinScale(req.PaidAmount, ledger.MoneyPlaces) {
		return store.Invalid("paidAmount", msgMoneyScale)
	}
	return nil
}

func validateLine(i int, item domain.InvoiceItemInput) error {
	if !item.Quantity.IsPositive() {
		return store.Invalid(itemField(i, "quantity"), msgInvalidQuantity)
	}
	if !ledger.WithinScale(item.Quantity, ledger.QuantityPlaces) {
		return store.Invalid(itemField(i, "quantity"), msgQuantityScale)
	}
	for _, price := range []struct {
		field string
		value decimal.Decimal
	}{
		{"purchasePrice", item.PurchasePrice},
		{"sellingPrice", item.SellingPrice},
	} {
		if price.value.LessThan(decimal.Zero) {
			return store.Invalid(itemField(i, price.field), msgNegativePrice)
		}
		if !ledger.WithinScale(price.value, ledger.MoneyPlaces) {
			return store.Invalid(itemField(i, price.field), msgMoneyScale)
		}
	}
	return nil
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}
