package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"herbmanager/backend/internal/domain"
	"herbmanager/backend/internal/ledger"
	"herbmanager/backend/internal/store"
)

type invoiceRow struct {
	id         int64
	supplierID int64
	date       domain.Date
	paid       decimal.Decimal
	total      decimal.Decimal
	remaining  decimal.Decimal
	itemIDs    []int64
}

// Store keeps every table in maps guarded by one lock. Multi-row writes
// validate everything before the first mutation so a failed call leaves the
// state untouched, which is what a rolled back transaction would do.
type Store struct {
	mu         sync.RWMutex
	seq        map[string]int64
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	suppliers  map[int64]domain.Supplier
	invoices   map[int64]*invoiceRow
	items      map[int64]domain.InvoiceItem
}

func New() *Store {
	return &Store{
		seq:        make(map[string]int64),
		categories: make(map[int64]domain.Category),
		products:   make(map[int64]domain.Product),
		suppliers:  make(map[int64]domain.Supplier),
		invoices:   make(map[int64]*invoiceRow),
		items:      make(map[int64]domain.InvoiceItem),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	herbs := s.insertCategory("أعشاب طبية", now)
	spices := s.insertCategory("توابل", now)

	for _, p := range []struct {
		name     string
		category int64
		unit     string
	}{
		{"بابونج", herbs, "kg"},
		{"نعناع مجفف", herbs, "kg"},
		{"زعتر", herbs, "kg"},
		{"كمون", spices, "kg"},
		{"قرفة", spices, "kg"},
		{"كركم", spices, "kg"},
	} {
		categoryID := p.category
		id := s.next("products")
		s.products[id] = domain.Product{ID: id, Name: p.name, CategoryID: &categoryID, Unit: p.unit, CreatedAt: now}
	}

	for _, sup := range []struct {
		name  string
		phone string
	}{
		{"مؤسسة الواحة للأعشاب", "0550000001"},
		{"شركة التوابل الذهبية", "0550000002"},
	} {
		id := s.next("suppliers")
		s.suppliers[id] = domain.Supplier{ID: id, Name: sup.name, Phone: sup.phone, CreatedAt: now}
	}

	return s
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) insertCategory(name string, at time.Time) int64 {
	id := s.next("categories")
	s.categories[id] = domain.Category{ID: id, Name: name, CreatedAt: at}
	return id
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}
	id := s.insertCategory(name, time.Now().UTC())
	created := s.categories[id]
	return &created, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, name string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	category.Name = strings.TrimSpace(name)
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	s.categories[id] = category
	return &category, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.categories, id)
	for pid, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			s.products[pid] = p
		}
	}
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneProduct(p)
	return &found, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.CategoryID != nil {
		if _, ok := s.categories[*product.CategoryID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	product.ID = s.next("products")
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.CategoryID != nil {
		if _, ok := s.categories[*product.CategoryID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.ProductID == id {
			return store.ErrInUse
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	debt := make(map[int64]decimal.Decimal, len(s.suppliers))
	for _, inv := range s.invoices {
		debt[inv.supplierID] = debt[inv.supplierID].Add(inv.remaining)
	}

	suppliers := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		sup.Debt = debt[sup.ID]
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return suppliers, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier.Name = strings.TrimSpace(supplier.Name)
	supplier.Phone = strings.TrimSpace(supplier.Phone)
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	supplier.ID = s.next("suppliers")
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	supplier.Debt = decimal.Zero
	s.suppliers[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.suppliers[supplier.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	existing.Name = strings.TrimSpace(supplier.Name)
	existing.Phone = strings.TrimSpace(supplier.Phone)
	if existing.Name == "" {
		return nil, store.ErrInvalidInput
	}
	s.suppliers[existing.ID] = existing
	updated := existing
	return &updated, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.invoices {
		if inv.supplierID == id {
			return store.ErrInUse
		}
	}
	delete(s.suppliers, id)
	return nil
}

func (s *Store) AccrueSupplierDebt(_ context.Context, supplierID int64, amount decimal.Decimal, date domain.Date) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[supplierID]; !ok {
		return nil, store.ErrNotFound
	}
	if !amount.IsPositive() {
		return nil, store.ErrInvalidInput
	}
	row := &invoiceRow{
		id:         s.next("invoices"),
		supplierID: supplierID,
		date:       date,
		paid:       decimal.Zero,
		total:      amount,
		remaining:  amount,
	}
	s.invoices[row.id] = row
	return s.invoiceLocked(row), nil
}

func (s *Store) AllocateSupplierPayment(_ context.Context, supplierID int64, amount decimal.Decimal) (*domain.PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[supplierID]; !ok {
		return nil, store.ErrNotFound
	}
	if !amount.IsPositive() {
		return nil, store.ErrInvalidInput
	}

	open := make([]*invoiceRow, 0, 8)
	for _, inv := range s.invoices {
		if inv.supplierID == supplierID && inv.total.GreaterThan(inv.paid) {
			open = append(open, inv)
		}
	}
	slices.SortFunc(open, func(a, b *invoiceRow) int {
		return cmp.Or(a.date.Compare(b.date.Time), cmp.Compare(a.id, b.id))
	})

	balances := make([]ledger.OpenBalance, 0, len(open))
	for _, inv := range open {
		balances = append(balances, ledger.OpenBalance{InvoiceID: inv.id, Total: inv.total, Paid: inv.paid})
	}
	allocations, leftover := ledger.AllocatePayment(balances, amount)
	for _, a := range allocations {
		inv := s.invoices[a.InvoiceID]
		inv.paid = inv.paid.Add(a.Amount)
		inv.remaining = inv.total.Sub(inv.paid)
	}

	return &domain.PaymentResult{
		SupplierID:  supplierID,
		Amount:      amount,
		Allocations: allocations,
		Unapplied:   leftover,
	}, nil
}

func (s *Store) ListInvoices(_ context.Context, filter domain.InvoiceFilter) ([]domain.InvoiceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InvoiceSummary, 0, len(s.invoices))
	for _, inv := range s.invoices {
		year := inv.date.Year()
		if filter.Year > 0 && year != filter.Year {
			continue
		}
		if filter.BeforeYear > 0 && year >= filter.BeforeYear {
			continue
		}
		result = append(result, domain.InvoiceSummary{
			ID:           inv.id,
			SupplierID:   inv.supplierID,
			SupplierName: s.suppliers[inv.supplierID].Name,
			InvoiceDate:  inv.date,
			TotalAmount:  inv.total,
			PaidAmount:   inv.paid,
			Remaining:    inv.remaining,
			ItemsCount:   len(inv.itemIDs),
		})
	}
	slices.SortFunc(result, func(a, b domain.InvoiceSummary) int {
		return cmp.Or(b.InvoiceDate.Compare(a.InvoiceDate.Time), cmp.Compare(b.ID, a.ID))
	})
	return result, nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.invoiceLocked(row), nil
}

func (s *Store) CreateInvoice(_ context.Context, req domain.InvoiceRequest) (*domain.InvoiceCreated, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[req.SupplierID]; !ok {
		return nil, store.ErrNotFound
	}
	if req.InvoiceDate == nil || len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, item := range req.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	row := &invoiceRow{
		id:         s.next("invoices"),
		supplierID: req.SupplierID,
		date:       *req.InvoiceDate,
		paid:       req.PaidAmount,
	}
	for _, item := range req.Items {
		row.itemIDs = append(row.itemIDs, s.insertItemLocked(row.id, item))
	}
	row.total, row.remaining = ledger.Totals(req.Items, req.PaidAmount)
	s.invoices[row.id] = row

	return &domain.InvoiceCreated{InvoiceID: row.id, TotalAmount: row.total, Remaining: row.remaining}, nil
}

func (s *Store) ReplaceInvoice(_ context.Context, id int64, req domain.InvoiceRequest) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.suppliers[req.SupplierID]; !ok {
		return nil, store.ErrNotFound
	}
	if req.InvoiceDate == nil {
		return nil, store.ErrInvalidInput
	}

	diff, err := ledger.ComputeDiff(slices.Clone(row.itemIDs), req.Items)
	if err != nil {
		return nil, err
	}
	for _, item := range diff.Insert {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	row.supplierID = req.SupplierID
	row.date = *req.InvoiceDate
	row.paid = req.PaidAmount

	for _, item := range diff.Update {
		stored := s.items[item.ID]
		stored.Quantity = item.Quantity
		stored.PurchasePrice = item.PurchasePrice
		stored.SellingPrice = item.SellingPrice
		stored.TotalCost = ledger.LineTotal(item.Quantity, item.PurchasePrice)
		s.items[item.ID] = stored
	}
	for _, itemID := range diff.Delete {
		delete(s.items, itemID)
	}
	row.itemIDs = slices.DeleteFunc(row.itemIDs, func(itemID int64) bool {
		_, exists := s.items[itemID]
		return !exists
	})
	for _, item := range diff.Insert {
		row.itemIDs = append(row.itemIDs, s.insertItemLocked(row.id, item))
	}
	row.total, row.remaining = ledger.Totals(diff.Surviving(), row.paid)

	return s.invoiceLocked(row), nil
}

func (s *Store) UpdateInvoicePaidAmount(_ context.Context, id int64, paid decimal.Decimal) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	row.paid = paid
	row.remaining = row.total.Sub(paid)
	return s.invoiceLocked(row), nil
}

func (s *Store) DeleteInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.invoices[id]
	if !ok {
		return nil
	}
	for _, itemID := range row.itemIDs {
		delete(s.items, itemID)
	}
	delete(s.invoices, id)
	return nil
}

func (s *Store) GetStatistics(_ context.Context, query domain.StatisticsQuery) (*domain.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type monthAgg struct {
		qty      decimal.Decimal
		purchase decimal.Decimal
		selling  decimal.Decimal
		lines    int64
	}
	months := make(map[int]*monthAgg)
	top := make(map[int64]*domain.TopProduct)
	debts := make(map[int64]*domain.SupplierDebt)

	for _, inv := range s.invoices {
		if inv.date.Year() != query.Year {
			continue
		}

		debt, ok := debts[inv.supplierID]
		if !ok {
			debt = &domain.SupplierDebt{SupplierID: inv.supplierID, SupplierName: s.suppliers[inv.supplierID].Name}
			debts[inv.supplierID] = debt
		}
		debt.TotalInvoices = debt.TotalInvoices.Add(inv.total)
		debt.Paid = debt.Paid.Add(inv.paid)
		debt.Remaining = debt.Remaining.Add(inv.remaining)

		for _, itemID := range inv.itemIDs {
			item := s.items[itemID]

			tp, ok := top[item.ProductID]
			if !ok {
				tp = &domain.TopProduct{ProductID: item.ProductID, ProductName: s.products[item.ProductID].Name}
				top[item.ProductID] = tp
			}
			tp.TotalQuantity = tp.TotalQuantity.Add(item.Quantity)
			tp.TotalAmount = tp.TotalAmount.Add(item.TotalCost)

			if query.ProductID != nil && item.ProductID != *query.ProductID {
				continue
			}
			month := int(inv.date.Month())
			agg, ok := months[month]
			if !ok {
				agg = &monthAgg{}
				months[month] = agg
			}
			agg.qty = agg.qty.Add(item.Quantity)
			agg.purchase = agg.purchase.Add(item.PurchasePrice)
			agg.selling = agg.selling.Add(item.SellingPrice)
			agg.lines++
		}
	}

	stats := &domain.Statistics{
		Year:          query.Year,
		ProductStats:  make([]domain.MonthlyProductStat, 0, len(months)),
		TopProducts:   make([]domain.TopProduct, 0, len(top)),
		SuppliersDebt: make([]domain.SupplierDebt, 0, len(debts)),
		ProductsList:  make([]domain.ProductOption, 0, len(s.products)),
	}
	for month, agg := range months {
		n := decimal.NewFromInt(agg.lines)
		stats.ProductStats = append(stats.ProductStats, domain.MonthlyProductStat{
			Month:            month,
			TotalQuantity:    agg.qty,
			AvgPurchasePrice: agg.purchase.DivRound(n, 2),
			AvgSellingPrice:  agg.selling.DivRound(n, 2),
		})
	}
	slices.SortFunc(stats.ProductStats, func(a, b domain.MonthlyProductStat) int {
		return cmp.Compare(a.Month, b.Month)
	})

	for _, tp := range top {
		stats.TopProducts = append(stats.TopProducts, *tp)
	}
	slices.SortFunc(stats.TopProducts, func(a, b domain.TopProduct) int {
		return cmp.Or(b.TotalQuantity.Cmp(a.TotalQuantity), cmp.Compare(a.ProductID, b.ProductID))
	})
	if len(stats.TopProducts) > 10 {
		stats.TopProducts = stats.TopProducts[:10]
	}

	for _, d := range debts {
		stats.SuppliersDebt = append(stats.SuppliersDebt, *d)
	}
	slices.SortFunc(stats.SuppliersDebt, func(a, b domain.SupplierDebt) int {
		return cmp.Or(b.Remaining.Cmp(a.Remaining), cmp.Compare(a.SupplierID, b.SupplierID))
	})

	for _, p := range s.products {
		stats.ProductsList = append(stats.ProductsList, domain.ProductOption{ID: p.ID, Name: p.Name})
	}
	slices.SortFunc(stats.ProductsList, func(a, b domain.ProductOption) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	return stats, nil
}

func (s *Store) insertItemLocked(invoiceID int64, item domain.InvoiceItemInput) int64 {
	id := s.next("invoice_items")
	s.items[id] = domain.InvoiceItem{
		ID:            id,
		InvoiceID:     invoiceID,
		ProductID:     item.ProductID,
		Quantity:      item.Quantity,
		PurchasePrice: item.PurchasePrice,
		SellingPrice:  item.SellingPrice,
		TotalCost:     ledger.LineTotal(item.Quantity, item.PurchasePrice),
	}
	return id
}

func (s *Store) invoiceLocked(row *invoiceRow) *domain.Invoice {
	inv := &domain.Invoice{
		ID:          row.id,
		SupplierID:  row.supplierID,
		InvoiceDate: row.date,
		PaidAmount:  row.paid,
		TotalAmount: row.total,
		Remaining:   row.remaining,
		Items:       make([]domain.InvoiceItem, 0, len(row.itemIDs)),
	}
	for _, itemID := range row.itemIDs {
		item := s.items[itemID]
		item.ProductName = s.products[item.ProductID].Name
		inv.Items = append(inv.Items, item)
	}
	return inv
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	if src.CategoryID != nil {
		id := *src.CategoryID
		dup.CategoryID = &id
	}
	return dup
}
