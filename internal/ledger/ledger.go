// Package ledger holds the store-independent arithmetic behind invoices and
// supplier balances: line totals, item reconciliation for full invoice
// updates, and oldest-first payment allocation.
package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"herbmanager/backend/internal/domain"
)

var (
	ErrUnresolvedItem = errors.New("each item must reference an existing id or a productId")
	ErrDuplicateItem  = errors.New("item id appears more than once")
)

// ItemError reports which incoming line broke the reconciliation contract.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("items[%d]: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Diff is the reconciliation plan for replacing an invoice's item set.
// Update and Insert keep the incoming order.
type Diff struct {
	Update []domain.InvoiceItemInput
	Insert []domain.InvoiceItemInput
	Delete []int64
}

// ComputeDiff classifies the incoming items against the ids currently stored
// for the invoice. Lines whose id is known are updated in place, lines with a
// product and no known id are inserted, and stored ids that are not kept are
// deleted.
func ComputeDiff(existingIDs []int64, incoming []domain.InvoiceItemInput) (Diff, error) {
	existing := make(map[int64]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = struct{}{}
	}

	var diff Diff
	kept := make(map[int64]struct{}, len(incoming))
	for i, item := range incoming {
		if _, ok := existing[item.ID]; ok && item.ID != 0 {
			if _, dup := kept[item.ID]; dup {
				return Diff{}, &ItemError{Index: i, Err: ErrDuplicateItem}
			}
			kept[item.ID] = struct{}{}
			diff.Update = append(diff.Update, item)
			continue
		}
		if item.ProductID > 0 {
			item.ID = 0
			diff.Insert = append(diff.Insert, item)
			continue
		}
		return Diff{}, &ItemError{Index: i, Err: ErrUnresolvedItem}
	}

	for _, id := range existingIDs {
		if _, ok := kept[id]; !ok {
			diff.Delete = append(diff.Delete, id)
		}
	}
	slices.Sort(diff.Delete)
	diff.Delete = slices.Compact(diff.Delete)
	return diff, nil
}

// Surviving returns the lines that remain on the invoice once the diff is applied.
func (d Diff) Surviving() []domain.InvoiceItemInput {
	out := make([]domain.InvoiceItemInput, 0, len(d.Update)+len(d.Insert))
	out = append(out, d.Update...)
	out = append(out, d.Insert...)
	return out
}

// Stored scales of money and quantity columns.
const (
	MoneyPlaces    int32 = 2
	QuantityPlaces int32 = 3
)

// LineTotal is the cost of one line, rounded to cents the way it is stored.
// The selling price does not take part.
func LineTotal(quantity, purchasePrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(purchasePrice).Round(MoneyPlaces)
}

// WithinScale reports whether d has no digits beyond places decimals.
func WithinScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

// Totals sums line costs and derives the remaining balance.
func Totals(items []domain.InvoiceItemInput, paid decimal.Decimal) (total, remaining decimal.Decimal) {
	total = decimal.Zero
	for _, item := range items {
		total = total.Add(LineTotal(item.Quantity, item.PurchasePrice))
	}
	return total, total.Sub(paid)
}

// OpenBalance is an invoice with an unpaid remainder, as read from the store.
type OpenBalance struct {
	InvoiceID int64
	Total     decimal.Decimal
	Paid      decimal.Decimal
}

func (b OpenBalance) Remaining() decimal.Decimal {
	return b.Total.Sub(b.Paid)
}

// AllocatePayment walks the open balances in the given order (oldest first)
// and applies min(budget, remaining) to each until the budget is spent. The
// leftover budget is returned so the caller can report it; it is never
// turned into credit.
func AllocatePayment(open []OpenBalance, amount decimal.Decimal) ([]domain.PaymentAllocation, decimal.Decimal) {
	budget := amount
	allocations := make([]domain.PaymentAllocation, 0, len(open))
	for _, inv := range open {
		if !budget.IsPositive() {
			break
		}
		remaining := inv.Remaining()
		if !remaining.IsPositive() {
			continue
		}
		applied := decimal.Min(budget, remaining)
		budget = budget.Sub(applied)
		allocations = append(allocations, domain.PaymentAllocation{
			InvoiceID: inv.InvoiceID,
			Amount:    applied,
			Remaining: remaining.Sub(applied),
		})
	}
	if budget.IsNegative() {
		budget = decimal.Zero
	}
	return allocations, budget
}
