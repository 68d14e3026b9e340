package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Supplier struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Debt      decimal.Decimal `json:"debt"`
	CreatedAt time.Time       `json:"createdAt"`
}

type SupplierRequest struct {
	ID            int64            `json:"id,omitempty"`
	Name          string           `json:"name,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	SupplierID    int64            `json:"supplierId,omitempty"`
	DebtAmount    *decimal.Decimal `json:"debtAmount,omitempty"`
	DebtDate      *Date            `json:"debtDate,omitempty"`
	PaymentAmount *decimal.Decimal `json:"paymentAmount,omitempty"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type CategoryRequest struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type Product struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CategoryID *int64    `json:"categoryId"`
	Unit       string    `json:"unit,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ProductRequest struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	CategoryID *int64 `json:"categoryId"`
	Unit       string `json:"unit,omitempty"`
}

type InvoiceItem struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoiceId"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	TotalCost     decimal.Decimal `json:"totalCost"`
}

type Invoice struct {
	ID          int64           `json:"id"`
	SupplierID  int64           `json:"supplierId"`
	InvoiceDate Date            `json:"invoiceDate"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Remaining   decimal.Decimal `json:"remaining"`
	Items       []InvoiceItem   `json:"items"`
}

// InvoiceSummary is the list-view row: header, supplier name and item count.
type InvoiceSummary struct {
	ID           int64           `json:"id"`
	SupplierID   int64           `json:"supplierId"`
	SupplierName string          `json:"supplierName"`
	InvoiceDate  Date            `json:"invoiceDate"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	Remaining    decimal.Decimal `json:"remaining"`
	ItemsCount   int             `json:"itemsCount"`
}

type InvoiceFilter struct {
	Year       int
	BeforeYear int
}

// InvoiceItemInput is one incoming line. ID is set for lines that already
// exist on the invoice; ProductID is required for new lines.
type InvoiceItemInput struct {
	ID            int64           `json:"id,omitempty"`
	ProductID     int64           `json:"productId,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
}

type InvoiceRequest struct {
	SupplierID  int64              `json:"supplierId"`
	InvoiceDate *Date              `json:"invoiceDate"`
	PaidAmount  decimal.Decimal    `json:"paidAmount"`
	Items       []InvoiceItemInput `json:"items"`
}

type InvoiceCreated struct {
	InvoiceID   int64           `json:"invoiceId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Remaining   decimal.Decimal `json:"remaining"`
}

type PaidAmountRequest struct {
	PaidAmount *decimal.Decimal `json:"paidAmount"`
}

// PaymentAllocation is the share of one supplier payment applied to one invoice.
type PaymentAllocation struct {
	InvoiceID int64           `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

type PaymentResult struct {
	SupplierID  int64               `json:"supplierId"`
	Amount      decimal.Decimal     `json:"amount"`
	Allocations []PaymentAllocation `json:"allocations"`
	Unapplied   decimal.Decimal     `json:"unapplied"`
}

type MonthlyProductStat struct {
	Month            int             `json:"month"`
	TotalQuantity    decimal.Decimal `json:"totalQuantity"`
	AvgPurchasePrice decimal.Decimal `json:"avgPurchasePrice"`
	AvgSellingPrice  decimal.Decimal `json:"avgSellingPrice"`
}

type TopProduct struct {
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type SupplierDebt struct {
	SupplierID    int64           `json:"supplierId"`
	SupplierName  string          `json:"supplierName"`
	TotalInvoices decimal.Decimal `json:"totalInvoices"`
	Paid          decimal.Decimal `json:"paid"`
	Remaining     decimal.Decimal `json:"remaining"`
}

type ProductOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type StatisticsQuery struct {
	Year      int
	ProductID *int64
}

type Statistics struct {
	Year          int                  `json:"year"`
	ProductStats  []MonthlyProductStat `json:"productStats"`
	TopProducts   []TopProduct         `json:"topProducts"`
	SuppliersDebt []SupplierDebt       `json:"suppliersDebt"`
	ProductsList  []ProductOption      `json:"productsList"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}
