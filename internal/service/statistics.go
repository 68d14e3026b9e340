package service

import (
	"context"
	"time"

	"herbmanager/backend/internal/domain"
	"herbmanager/backend/internal/store"
)

func (s *Service) Statistics(ctx context.Context, query domain.StatisticsQuery) (domain.Statistics, error) {
	if query.Year == 0 {
		query.Year = time.Now().Year()
	}
	if !validYear(query.Year) {
		return domain.Statistics{}, store.Invalid("year", msgInvalidYear)
	}
	if query.ProductID != nil && *query.ProductID < 1 {
		return domain.Statistics{}, store.Invalid("productId", msgInvalidProduct)
	}

	result, err := s.stats.Get(ctx, query)
	if err != nil {
		return domain.Statistics{}, err
	}
	return *result, nil
}

func validYear(year int) bool {
	return year >= 1900 && year <= 9999
}
