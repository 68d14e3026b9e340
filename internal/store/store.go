package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"herbmanager/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInUse        = errors.New("record is still referenced")
)

// ValidationError carries a user-facing message for a rejected field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func Invalid(field string, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// PersistenceError wraps a failure of the underlying store. The surrounding
// transaction has been rolled back when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
	AccrueSupplierDebt(ctx context.Context, supplierID int64, amount decimal.Decimal, date domain.Date) (*domain.Invoice, error)
	AllocateSupplierPayment(ctx context.Context, supplierID int64, amount decimal.Decimal) (*domain.PaymentResult, error)

	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.InvoiceSummary, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	CreateInvoice(ctx context.Context, req domain.InvoiceRequest) (*domain.InvoiceCreated, error)
	ReplaceInvoice(ctx context.Context, id int64, req domain.InvoiceRequest) (*domain.Invoice, error)
	UpdateInvoicePaidAmount(ctx context.Context, id int64, paid decimal.Decimal) (*domain.Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error

	GetStatistics(ctx context.Context, query domain.StatisticsQuery) (*domain.Statistics, error)
}
