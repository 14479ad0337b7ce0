package service

import (
	"context"
	"time"

	"github.com/pixelvault/marketplace/internal/repository"
)

// MaxStatsMonths bounds the monthly report window.
const MaxStatsMonths = 36

// Overview aggregates headline counts for the admin dashboard.
type Overview struct {
	Users        int64
	PremiumUsers int64
	Images       int64
	Revenue      int64
}

// MonthBucket is one row of the monthly report.
type MonthBucket struct {
	Month        string
	Signups      int64
	Transactions int64
	Revenue      int64
}

// StatsService computes admin reports.
type StatsService struct {
	users        repository.UserRepository
	images       repository.ImageRepository
	transactions repository.TransactionRepository
	now          func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(users repository.UserRepository, images repository.ImageRepository, transactions repository.TransactionRepository) *StatsService {
	return &StatsService{users: users, images: images, transactions: transactions, now: time.Now}
}

// Overview returns totals.
func (s *StatsService) Overview(ctx context.Context) (*Overview, error) {
	total, premium, err := s.users.Counts(ctx)
	if err != nil {
		return nil, err
	}
	images, err := s.images.Count(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.transactions.Revenue(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{Users: total, PremiumUsers: premium, Images: images, Revenue: revenue}, nil
}

// Monthly returns one bucket per calendar month, oldest first, including empty months.
func (s *StatsService) Monthly(ctx context.Context, months int) ([]MonthBucket, error) {
	if months < 1 {
		months = 12
	}
	if months > MaxStatsMonths {
		months = MaxStatsMonths
	}
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	signups, err := s.users.MonthlySignups(ctx, start)
	if err != nil {
		return nil, err
	}
	paid, err := s.transactions.MonthlyPaid(ctx, start)
	if err != nil {
		return nil, err
	}

	buckets := make([]MonthBucket, months)
	index := make(map[string]int, months)
	for i := range buckets {
		key := start.AddDate(0, i, 0).Format("2006-01")
		buckets[i].Month = key
		index[key] = i
	}
	for _, row := range signups {
		if i, ok := index[row.Month.UTC().Format("2006-01")]; ok {
			buckets[i].Signups = row.Count
		}
	}
	for _, row := range paid {
		if i, ok := index[row.Month.UTC().Format("2006-01")]; ok {
			buckets[i].Transactions = row.Count
			buckets[i].Revenue = row.Total
		}
	}
	return buckets, nil
}
