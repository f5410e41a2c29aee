// Package backend defines the remote data contract used by the gateway.
package backend

import (
	"context"
	"time"

	"github.com/verte-zerg/typeme/internal/model"
)

// Order selects the sort column of a result query.
type Order int

const (
	// OrderNewest sorts by creation time, newest first.
	OrderNewest Order = iota
	// OrderWPM sorts by WPM, highest first.
	OrderWPM
)

// ResultQuery filters, orders and paginates typing results.
type ResultQuery struct {
	UserID   string
	TestType model.TestType
	Duration int
	Order    Order
	Limit    int
	Offset   int
}

// ProfileUpdate is an upsert-by-key on the profiles record.
type ProfileUpdate struct {
	ID          string
	DisplayName *string
	UpdatedAt   time.Time
}

// Backend is the request/response surface of the managed data service.
type Backend interface {
	InsertResult(ctx context.Context, result model.TypingResult) (model.TypingResult, error)
	SelectResults(ctx context.Context, q ResultQuery) ([]model.TypingResult, error)
	SelectDisplayNames(ctx context.Context, ids []string) (map[string]*string, error)
	SelectProfile(ctx context.Context, id string) (model.UserProfile, error)
	UpsertProfile(ctx context.Context, update ProfileUpdate) error
}
