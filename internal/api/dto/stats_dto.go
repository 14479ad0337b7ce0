package dto

import "github.com/pixelvault/marketplace/internal/service"

// OverviewResponse is the admin dashboard summary.
type OverviewResponse struct {
	Users        int64 `json:"users"`
	PremiumUsers int64 `json:"premiumUsers"`
	Images       int64 `json:"images"`
	Revenue      int64 `json:"revenue"`
}

// NewOverviewResponse maps an overview.
func NewOverviewResponse(o *service.Overview) OverviewResponse {
	return OverviewResponse{Users: o.Users, PremiumUsers: o.PremiumUsers, Images: o.Images, Revenue: o.Revenue}
}

// MonthBucketResponse is one month of the report.
type MonthBucketResponse struct {
	Month        string `json:"month"`
	Signups      int64  `json:"signups"`
	Transactions int64  `json:"transactions"`
	Revenue      int64  `json:"revenue"`
}

// NewMonthBucketResponses maps monthly buckets.
func NewMonthBucketResponses(buckets []service.MonthBucket) []MonthBucketResponse {
	out := make([]MonthBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, MonthBucketResponse(b))
	}
	return out
}
