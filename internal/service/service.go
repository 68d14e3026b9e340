package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"herbmanager/backend/internal/domain"
	"herbmanager/backend/internal/ledger"
	"herbmanager/backend/internal/stats"
	"herbmanager/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	msgNameRequired     = "الاسم مطلوب"
	msgInvalidID        = "المعرف غير صحيح"
	msgSupplierRequired = "المورد مطلوب"
	msgDateRequired     = "تاريخ الفاتورة مطلوب"
	msgItemsRequired    = "يجب إضافة منتج واحد على الأقل"
	msgInvalidProduct   = "المنتج غير صحيح"
	msgInvalidCategory  = "التصنيف غير صحيح"
	msgInvalidQuantity  = "الكمية يجب أن تكون أكبر من صفر"
	msgNegativePrice    = "السعر لا يمكن أن يكون سالبا"
	msgNegativePaid     = "المبلغ المدفوع لا يمكن أن يكون سالبا"
	msgInvalidAmount    = "المبلغ يجب أن يكون أكبر من صفر"
	msgInvalidYear      = "السنة غير صحيحة"
	msgMoneyScale       = "المبلغ لا يقبل أكثر من منزلتين عشريتين"
	msgQuantityScale    = "الكمية لا تقبل أكثر من ثلاث منازل عشرية"
	msgUnresolvedItem   = "كل بند يجب أن يحمل معرف بند موجود أو معرف منتج"
	msgDuplicateItem    = "البند مكرر في الفاتورة"
)

type Service struct {
	repo  store.Repository
	stats *stats.Dashboard
}

func New(repo store.Repository, dashboard *stats.Dashboard) *Service {
	if dashboard == nil {
		dashboard = stats.NewDashboard(repo, nil, 0)
	}

	return &Service{
		repo:  repo,
		stats: dashboard,
	}
}

func requireID(field string, id int64) error {
	if id < 1 {
		return store.Invalid(field, msgInvalidID)
	}
	return nil
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", store.Invalid("name", msgNameRequired)
	}
	return name, nil
}

func requirePositive(field string, amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil || !amount.IsPositive() {
		return decimal.Zero, store.Invalid(field, msgInvalidAmount)
	}
	if !ledger.WithinScale(*amount, ledger.MoneyPlaces) {
		return decimal.Zero, store.Invalid(field, msgMoneyScale)
	}
	return *amount, nil
}

// itemError turns a reconciliation failure into a validation error on the
// offending line. Other errors pass through untouched.
func itemError(err error) error {
	var lineErr *ledger.ItemError
	if !errors.As(err, &lineErr) {
		return err
	}
	msg := msgUnresolvedItem
	if errors.Is(lineErr.Err, ledger.ErrDuplicateItem) {
		msg = msgDuplicateItem
	}
	return &store.ValidationError{
		Field:   "items[" + strconv.Itoa(lineErr.Index) + "]",
		Message: msg,
		Err:     lineErr.Err,
	}
}
