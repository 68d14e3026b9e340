package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"herbmanager/backend/internal/domain"
	"herbmanager/backend/internal/ledger"
	"herbmanager/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		ORDER BY name, id
	`)
	if err != nil {
		return nil, wrap("list categories", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, wrap("list categories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list categories", err)
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}

	category := domain.Category{Name: name}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, created_at)
		VALUES ($1, now())
		RETURNING id, created_at
	`, name).Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return nil, wrap("create category", err)
	}
	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}

	category := domain.Category{ID: id, Name: name}
	err := s.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $2
		WHERE id = $1
		RETURNING created_at
	`, id, name).Scan(&category.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrap("update category", err)
	}
	return &category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return wrap("delete category", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE products SET category_id = NULL WHERE category_id = $1`, id); err != nil {
		return wrap("delete category", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return wrap("delete category", err)
	}
	return wrap("delete category", tx.Commit())
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category_id, COALESCE(unit, ''), created_at
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, wrap("list products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap("list products", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list products", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT id, name, category_id, COALESCE(unit, ''), created_at
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrap("get product", err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, category_id, unit, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, created_at
	`, product.Name, nullID(product.CategoryID), nullIfEmpty(product.Unit)).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return nil, wrap("create product", err)
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, category_id = $3, unit = $4
		WHERE id = $1
		RETURNING created_at
	`, product.ID, product.Name, nullID(product.CategoryID), nullIfEmpty(product.Unit)).Scan(&product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrap("update product", err)
	}
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return wrapDelete("delete product", err)
	}
	return nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, COALESCE(s.phone, ''), s.created_at, COALESCE(SUM(i.remaining), 0)
		FROM suppliers s
		LEFT JOIN invoices i ON i.supplier_id = s.id
		GROUP BY s.id, s.name, s.phone, s.created_at
		ORDER BY s.id
	`)
	if err != nil {
		return nil, wrap("list suppliers", err)
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt, &sup.Debt); err != nil {
			return nil, wrap("list suppliers", err)
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list suppliers", err)
	}
	return suppliers, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	supplier.Phone = strings.TrimSpace(supplier.Phone)
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (name, phone, created_at)
		VALUES ($1, $2, now())
		RETURNING id, created_at
	`, supplier.Name, nullIfEmpty(supplier.Phone)).Scan(&supplier.ID, &supplier.CreatedAt)
	if err != nil {
		return nil, wrap("create supplier", err)
	}
	supplier.Debt = decimal.Zero
	return &supplier, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	supplier.Phone = strings.TrimSpace(supplier.Phone)
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE suppliers
		SET name = $2, phone = $3
		WHERE id = $1
		RETURNING created_at
	`, supplier.ID, supplier.Name, nullIfEmpty(supplier.Phone)).Scan(&supplier.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrap("update supplier", err)
	}
	return &supplier, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id); err != nil {
		return wrapDelete("delete supplier", err)
	}
	return nil
}

func (s *Store) AccrueSupplierDebt(ctx context.Context, supplierID int64, amount decimal.Decimal, date domain.Date) (*domain.Invoice, error) {
	if !amount.IsPositive() {
		return nil, store.ErrInvalidInput
	}

	inv := domain.Invoice{
		SupplierID:  supplierID,
		InvoiceDate: date,
		PaidAmount:  decimal.Zero,
		TotalAmount: amount,
		Remaining:   amount,
		Items:       []domain.InvoiceItem{},
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO invoices (supplier_id, invoice_date, paid_amount, total_amount, remaining, created_at)
		VALUES ($1, $2, 0, $3, $3, now())
		RETURNING id
	`, supplierID, date, amount).Scan(&inv.ID)
	if err != nil {
		return nil, wrap("accrue supplier debt", err)
	}
	return &inv, nil
}

func (s *Store) AllocateSupplierPayment(ctx context.Context, supplierID int64, amount decimal.Decimal) (*domain.PaymentResult, error) {
	const op = "allocate supplier payment"
	if !amount.IsPositive() {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM suppliers WHERE id = $1`, supplierID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrap(op, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, total_amount, paid_amount
		FROM invoices
		WHERE supplier_id = $1 AND total_amount > paid_amount
		ORDER BY invoice_date, id
		FOR UPDATE
	`, supplierID)
	if err != nil {
		return nil, wrap(op, err)
	}
	open := make([]ledger.OpenBalance, 0, 8)
	for rows.Next() {
		var b ledger.OpenBalance
		if err := rows.Scan(&b.InvoiceID, &b.Total, &b.Paid); err != nil {
			_ = rows.Close()
			return nil, wrap(op, err)
		}
		open = append(open, b)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, wrap(op, err)
	}
	_ = rows.Close()

	allocations, leftover := ledger.AllocatePayment(open, amount)
	for _, a := range allocations {
		_, err := tx.ExecContext(ctx, `
			UPDATE invoices
			SET paid_amount = paid_amount + $2, remaining = total_amount - (paid_amount + $2)
			WHERE id = $1
		`, a.InvoiceID, a.Amount)
		if err != nil {
			return nil, wrap(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	return &domain.PaymentResult{
		SupplierID:  supplierID,
		Amount:      amount,
		Allocations: allocations,
		Unapplied:   leftover,
	}, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.InvoiceSummary, error) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, "EXTRACT(YEAR FROM i.invoice_date) = $"+strconv.Itoa(len(args)))
	}
	if filter.BeforeYear > 0 {
		args = append(args, filter.BeforeYear)
		conditions = append(conditions, "EXTRACT(YEAR FROM i.invoice_date) < $"+strconv.Itoa(len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.supplier_id, s.name, i.invoice_date,
		       COALESCE(i.total_amount, 0), i.paid_amount, COALESCE(i.remaining, 0),
		       COUNT(ii.id)
		FROM invoices i
		JOIN suppliers s ON s.id = i.supplier_id
		LEFT JOIN invoice_items ii ON ii.invoice_id = i.id
		`+where+`
		GROUP BY i.id, s.name
		ORDER BY i.invoice_date DESC, i.id DESC
	`, args...)
	if err != nil {
		return nil, wrap("list invoices", err)
	}
	defer rows.Close()

	invoices := make([]domain.InvoiceSummary, 0, 64)
	for rows.Next() {
		var inv domain.InvoiceSummary
		if err := rows.Scan(
			&inv.ID, &inv.SupplierID, &inv.SupplierName, &inv.InvoiceDate,
			&inv.TotalAmount, &inv.PaidAmount, &inv.Remaining, &inv.ItemsCount,
		); err != nil {
			return nil, wrap("list invoices", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list invoices", err)
	}
	return invoices, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := loadInvoice(ctx, s.db, id)
	if err != nil {
		return nil, wrap("get invoice", err)
	}
	return inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, req domain.InvoiceRequest) (*domain.InvoiceCreated, error) {
	const op = "create invoice"
	if req.InvoiceDate == nil || len(req.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var invoiceID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO invoices (supplier_id, invoice_date, paid_amount, total_amount, remaining, created_at)
		VALUES ($1, $2, $3, NULL, NULL, now())
		RETURNING id
	`, req.SupplierID, *req.InvoiceDate, req.PaidAmount).Scan(&invoiceID)
	if err != nil {
		return nil, wrap(op, err)
	}

	for _, item := range req.Items {
		if err := insertItem(ctx, tx, invoiceID, item); err != nil {
			return nil, wrap(op, err)
		}
	}

	total, remaining := ledger.Totals(req.Items, req.PaidAmount)
	if err := updateTotals(ctx, tx, invoiceID, total, remaining); err != nil {
		return nil, wrap(op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}
	return &domain.InvoiceCreated{InvoiceID: invoiceID, TotalAmount: total, Remaining: remaining}, nil
}

func (s *Store) ReplaceInvoice(ctx context.Context, id int64, req domain.InvoiceRequest) (*domain.Invoice, error) {
	const op = "replace invoice"
	if req.InvoiceDate == nil {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET supplier_id = $2, invoice_date = $3, paid_amount = $4
		WHERE id = $1
	`, id, req.SupplierID, *req.InvoiceDate, req.PaidAmount)
	if err != nil {
		return nil, wrap(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, wrap(op, err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	existingIDs, err := itemIDs(ctx, tx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	diff, err := ledger.ComputeDiff(existingIDs, req.Items)
	if err != nil {
		return nil, err
	}

	for _, item := range diff.Update {
		_, err := tx.ExecContext(ctx, `
			UPDATE invoice_items
			SET quantity = $3, purchase_price = $4, selling_price = $5, total_cost = $6
			WHERE id = $1 AND invoice_id = $2
		`, item.ID, id, item.Quantity, item.PurchasePrice, item.SellingPrice, ledger.LineTotal(item.Quantity, item.PurchasePrice))
		if err != nil {
			return nil, wrap(op, err)
		}
	}
	for _, item := range diff.Insert {
		if err := insertItem(ctx, tx, id, item); err != nil {
			return nil, wrap(op, err)
		}
	}
	for _, itemID := range diff.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE id = $1 AND invoice_id = $2`, itemID, id); err != nil {
			return nil, wrap(op, err)
		}
	}

	total, remaining := ledger.Totals(diff.Surviving(), req.PaidAmount)
	if err := updateTotals(ctx, tx, id, total, remaining); err != nil {
		return nil, wrap(op, err)
	}

	inv, err := loadInvoice(ctx, tx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}
	return inv, nil
}

func (s *Store) UpdateInvoicePaidAmount(ctx context.Context, id int64, paid decimal.Decimal) (*domain.Invoice, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET paid_amount = $2, remaining = COALESCE(total_amount, 0) - $2
		WHERE id = $1
	`, id, paid)
	if err != nil {
		return nil, wrap("update paid amount", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, wrap("update paid amount", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetInvoice(ctx, id)
}

func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return wrap("delete invoice", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
		return wrap("delete invoice", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return wrap("delete invoice", err)
	}
	return wrap("delete invoice", tx.Commit())
}

func (s *Store) GetStatistics(ctx context.Context, query domain.StatisticsQuery) (*domain.Statistics, error) {
	const op = "get statistics"
	stats := &domain.Statistics{
		Year:          query.Year,
		ProductStats:  make([]domain.MonthlyProductStat, 0, 12),
		TopProducts:   make([]domain.TopProduct, 0, 10),
		SuppliersDebt: make([]domain.SupplierDebt, 0, 16),
		ProductsList:  make([]domain.ProductOption, 0, 64),
	}

	monthRows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM i.invoice_date)::int AS month,
		       COALESCE(SUM(ii.quantity), 0),
		       COALESCE(ROUND(AVG(ii.purchase_price), 2), 0),
		       COALESCE(ROUND(AVG(ii.selling_price), 2), 0)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		WHERE EXTRACT(YEAR FROM i.invoice_date) = $1
		  AND ($2::bigint IS NULL OR ii.product_id = $2)
		GROUP BY month
		ORDER BY month
	`, query.Year, nullID(query.ProductID))
	if err != nil {
		return nil, wrap(op, err)
	}
	for monthRows.Next() {
		var m domain.MonthlyProductStat
		if err := monthRows.Scan(&m.Month, &m.TotalQuantity, &m.AvgPurchasePrice, &m.AvgSellingPrice); err != nil {
			_ = monthRows.Close()
			return nil, wrap(op, err)
		}
		stats.ProductStats = append(stats.ProductStats, m)
	}
	if err := monthRows.Err(); err != nil {
		_ = monthRows.Close()
		return nil, wrap(op, err)
	}
	_ = monthRows.Close()

	topRows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, SUM(ii.quantity), SUM(ii.total_cost)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id
		WHERE EXTRACT(YEAR FROM i.invoice_date) = $1
		GROUP BY p.id, p.name
		ORDER BY SUM(ii.quantity) DESC, p.id
		LIMIT 10
	`, query.Year)
	if err != nil {
		return nil, wrap(op, err)
	}
	for topRows.Next() {
		var tp domain.TopProduct
		if err := topRows.Scan(&tp.ProductID, &tp.ProductName, &tp.TotalQuantity, &tp.TotalAmount); err != nil {
			_ = topRows.Close()
			return nil, wrap(op, err)
		}
		stats.TopProducts = append(stats.TopProducts, tp)
	}
	if err := topRows.Err(); err != nil {
		_ = topRows.Close()
		return nil, wrap(op, err)
	}
	_ = topRows.Close()

	debtRows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name,
		       COALESCE(SUM(i.total_amount), 0),
		       COALESCE(SUM(i.paid_amount), 0),
		       COALESCE(SUM(i.remaining), 0) AS remaining
		FROM invoices i
		JOIN suppliers s ON s.id = i.supplier_id
		WHERE EXTRACT(YEAR FROM i.invoice_date) = $1
		GROUP BY s.id, s.name
		ORDER BY remaining DESC, s.id
	`, query.Year)
	if err != nil {
		return nil, wrap(op, err)
	}
	for debtRows.Next() {
		var d domain.SupplierDebt
		if err := debtRows.Scan(&d.SupplierID, &d.SupplierName, &d.TotalInvoices, &d.Paid, &d.Remaining); err != nil {
			_ = debtRows.Close()
			return nil, wrap(op, err)
		}
		stats.SuppliersDebt = append(stats.SuppliersDebt, d)
	}
	if err := debtRows.Err(); err != nil {
		_ = debtRows.Close()
		return nil, wrap(op, err)
	}
	_ = debtRows.Close()

	productRows, err := s.db.QueryContext(ctx, `SELECT id, name FROM products ORDER BY name, id`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer productRows.Close()
	for productRows.Next() {
		var p domain.ProductOption
		if err := productRows.Scan(&p.ID, &p.Name); err != nil {
			return nil, wrap(op, err)
		}
		stats.ProductsList = append(stats.ProductsList, p)
	}
	if err := productRows.Err(); err != nil {
		return nil, wrap(op, err)
	}

	return stats, nil
}

func loadInvoice(ctx context.Context, q queryer, id int64) (*domain.Invoice, error) {
	inv := domain.Invoice{ID: id}
	err := q.QueryRowContext(ctx, `
		SELECT supplier_id, invoice_date, paid_amount, COALESCE(total_amount, 0), COALESCE(remaining, 0)
		FROM invoices
		WHERE id = $1
	`, id).Scan(&inv.SupplierID, &inv.InvoiceDate, &inv.PaidAmount, &inv.TotalAmount, &inv.Remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT ii.id, ii.invoice_id, ii.product_id, COALESCE(p.name, ''),
		       ii.quantity, ii.purchase_price, ii.selling_price, ii.total_cost
		FROM invoice_items ii
		LEFT JOIN products p ON p.id = ii.product_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inv.Items = make([]domain.InvoiceItem, 0, 8)
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.PurchasePrice, &item.SellingPrice, &item.TotalCost,
		); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &inv, nil
}

func itemIDs(ctx context.Context, tx *sql.Tx, invoiceID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id
		FOR UPDATE
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, 8)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertItem(ctx context.Context, tx *sql.Tx, invoiceID int64, item domain.InvoiceItemInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_items (invoice_id, product_id, quantity, purchase_price, selling_price, total_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, invoiceID, item.ProductID, item.Quantity, item.PurchasePrice, item.SellingPrice, ledger.LineTotal(item.Quantity, item.PurchasePrice))
	return err
}

func updateTotals(ctx context.Context, tx *sql.Tx, invoiceID int64, total, remaining decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET total_amount = $2, remaining = $3
		WHERE id = $1
	`, invoiceID, total, remaining)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p          domain.Product
		categoryID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &categoryID, &p.Unit, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	return p, nil
}

// wrap maps driver failures onto store errors. Sentinels pass through so
// callers can still match them.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidInput) || errors.Is(err, store.ErrInUse) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return store.ErrNotFound
		case "23505":
			return store.ErrInvalidInput
		}
	}
	return &store.PersistenceError{Op: op, Err: err}
}

// wrapDelete treats a foreign key violation as a row that is still referenced.
func wrapDelete(op string, err error) error {
	if isForeignKeyViolation(err) {
		return store.ErrInUse
	}
	return wrap(op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullID(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}
