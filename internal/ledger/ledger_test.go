package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbmanager/backend/internal/domain"
)

func dec(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(raw)
	require.NoError(t, err)
	return d
}

func TestComputeDiffKeepsUpdatesInsertsAndDeletesTheRest(t *testing.T) {
	incoming := []domain.InvoiceItemInput{
		{ID: 1, Quantity: decimal.NewFromInt(5), PurchasePrice: decimal.NewFromInt(3)},
		{ProductID: 9, Quantity: decimal.NewFromInt(2), PurchasePrice: decimal.NewFromInt(10)},
	}

	diff, err := ComputeDiff([]int64{1, 2, 3}, incoming)
	require.NoError(t, err)

	require.Len(t, diff.Update, 1)
	assert.Equal(t, int64(1), diff.Update[0].ID)
	require.Len(t, diff.Insert, 1)
	assert.Equal(t, int64(9), diff.Insert[0].ProductID)
	assert.Equal(t, []int64{2, 3}, diff.Delete)

	total, _ := Totals(diff.Surviving(), decimal.Zero)
	assert.True(t, total.Equal(decimal.NewFromInt(35)), "total %s", total)
}

func TestComputeDiffRejectsItemWithoutIDOrProduct(t *testing.T) {
	incoming := []domain.InvoiceItemInput{
		{ID: 1, Quantity: decimal.NewFromInt(1)},
		{Quantity: decimal.NewFromInt(1)},
	}

	_, err := ComputeDiff([]int64{1}, incoming)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedItem)

	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 1, itemErr.Index)
}

func TestComputeDiffUnknownIDWithoutProductIsRejected(t *testing.T) {
	_, err := ComputeDiff([]int64{1}, []domain.InvoiceItemInput{{ID: 77}})
	assert.ErrorIs(t, err, ErrUnresolvedItem)
}

func TestComputeDiffUnknownIDWithProductIsInserted(t *testing.T) {
	diff, err := ComputeDiff([]int64{1}, []domain.InvoiceItemInput{{ID: 77, ProductID: 4}})
	require.NoError(t, err)
	require.Len(t, diff.Insert, 1)
	assert.Zero(t, diff.Insert[0].ID)
	assert.Equal(t, []int64{1}, diff.Delete)
}

func TestComputeDiffRejectsDuplicateExistingID(t *testing.T) {
	_, err := ComputeDiff([]int64{1, 2}, []domain.InvoiceItemInput{{ID: 1}, {ID: 1}})
	assert.ErrorIs(t, err, ErrDuplicateItem)
}

func TestComputeDiffEmptyIncomingDeletesEverything(t *testing.T) {
	diff, err := ComputeDiff([]int64{3, 1, 2}, nil)
	require.NoError(t, err)
	assert.Empty(t, diff.Update)
	assert.Empty(t, diff.Insert)
	assert.Equal(t, []int64{1, 2, 3}, diff.Delete)
}

func TestTotals(t *testing.T) {
	items := []domain.InvoiceItemInput{
		{Quantity: dec(t, "2.5"), PurchasePrice: dec(t, "4"), SellingPrice: dec(t, "100")},
		{Quantity: dec(t, "3"), PurchasePrice: dec(t, "1.25")},
	}

	total, remaining := Totals(items, dec(t, "6"))
	assert.Equal(t, "13.75", total.String())
	assert.Equal(t, "7.75", remaining.String())
}

func TestTotalsSumStoredLineCosts(t *testing.T) {
	line := domain.InvoiceItemInput{Quantity: dec(t, "0.125"), PurchasePrice: dec(t, "3.33")}
	items := []domain.InvoiceItemInput{line, line, line}

	lineTotal := LineTotal(line.Quantity, line.PurchasePrice)
	assert.Equal(t, "0.42", lineTotal.String())

	total, remaining := Totals(items, decimal.Zero)
	assert.True(t, total.Equal(lineTotal.Mul(decimal.NewFromInt(3))), "total %s", total)
	assert.Equal(t, "1.26", total.String())
	assert.Equal(t, "1.26", remaining.String())
	assert.True(t, WithinScale(total, MoneyPlaces))
}

func TestWithinScale(t *testing.T) {
	assert.True(t, WithinScale(dec(t, "3.30"), MoneyPlaces))
	assert.True(t, WithinScale(dec(t, "12"), MoneyPlaces))
	assert.False(t, WithinScale(dec(t, "3.333"), MoneyPlaces))
	assert.True(t, WithinScale(dec(t, "0.125"), QuantityPlaces))
	assert.False(t, WithinScale(dec(t, "0.1255"), QuantityPlaces))
}

func TestAllocatePayment(t *testing.T) {
	tests := []struct {
		name      string
		open      []OpenBalance
		amount    string
		want      map[int64]string
		leftover  string
		remaining map[int64]string
	}{
		{
			name: "oldest first with partial settlement",
			open: []OpenBalance{
				{InvoiceID: 1, Total: decimal.NewFromInt(50), Paid: decimal.Zero},
				{InvoiceID: 2, Total: decimal.NewFromInt(40), Paid: decimal.NewFromInt(10)},
			},
			amount:    "60",
			want:      map[int64]string{1: "50", 2: "10"},
			leftover:  "0",
			remaining: map[int64]string{1: "0", 2: "20"},
		},
		{
			name: "leftover beyond open debt is returned",
			open: []OpenBalance{
				{InvoiceID: 1, Total: decimal.NewFromInt(50), Paid: decimal.NewFromInt(20)},
			},
			amount:    "100",
			want:      map[int64]string{1: "30"},
			leftover:  "70",
			remaining: map[int64]string{1: "0"},
		},
		{
			name: "budget exhausted before later invoices",
			open: []OpenBalance{
				{InvoiceID: 1, Total: decimal.NewFromInt(50), Paid: decimal.Zero},
				{InvoiceID: 2, Total: decimal.NewFromInt(30), Paid: decimal.Zero},
			},
			amount:    "20",
			want:      map[int64]string{1: "20"},
			leftover:  "0",
			remaining: map[int64]string{1: "30"},
		},
		{
			name:     "no open invoices",
			amount:   "15",
			want:     map[int64]string{},
			leftover: "15",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			allocations, leftover := AllocatePayment(tc.open, dec(t, tc.amount))

			got := make(map[int64]string, len(allocations))
			remaining := make(map[int64]string, len(allocations))
			for _, a := range allocations {
				got[a.InvoiceID] = a.Amount.String()
				remaining[a.InvoiceID] = a.Remaining.String()
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.leftover, leftover.String())
			if tc.remaining != nil {
				assert.Equal(t, tc.remaining, remaining)
			}
		})
	}
}

func TestAllocatePaymentSkipsSettledInvoices(t *testing.T) {
	open := []OpenBalance{
		{InvoiceID: 1, Total: decimal.NewFromInt(10), Paid: decimal.NewFromInt(10)},
		{InvoiceID: 2, Total: decimal.NewFromInt(10), Paid: decimal.Zero},
	}
	allocations, leftover := AllocatePayment(open, decimal.NewFromInt(5))
	require.Len(t, allocations, 1)
	assert.Equal(t, int64(2), allocations[0].InvoiceID)
	assert.True(t, leftover.IsZero())
}
