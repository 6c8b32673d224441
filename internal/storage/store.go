// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tripsplit/internal/models"
)

var (
	// ErrNotFound is wrapped by stores when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMemberInUse is returned when removing a member who is still a payer or share
	// holder on one of the trip's expenses.
	ErrMemberInUse = errors.New("member is referenced by expenses")

	// ErrNotMember is wrapped when an expense names a user outside the trip roster.
	ErrNotMember = errors.New("user is not a trip member")
)

// Store defines the interface for trip and expense storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	TripStore
	ExpenseStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// TripStore persists trips and their member rosters.
type TripStore interface {
	// CreateTrip persists a new trip. trip.ID and trip.CreatedAt are populated if unset.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip retrieves a trip with its roster in join order.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// ListTripsByMember returns every trip userID belongs to, newest first.
	ListTripsByMember(ctx context.Context, userID string) ([]*models.Trip, error)

	// UpdateTrip updates name, destination and dates. The roster is left untouched.
	UpdateTrip(ctx context.Context, trip *models.Trip) error

	// DeleteTrip removes a trip together with its members and expenses.
	DeleteTrip(ctx context.Context, tripID string) error

	// AddTripMembers appends members to the roster, skipping ones already present.
	AddTripMembers(ctx context.Context, tripID string, members []string) error

	// RemoveTripMember removes one member from the roster. It fails with ErrMemberInUse,
	// leaving the roster untouched, while any expense of the trip references the member.
	RemoveTripMember(ctx context.Context, tripID, userID string) error
}

// ExpenseStore persists expenses, including recorded settlements.
type ExpenseStore interface {
	// CreateExpense persists an expense with its payers and shares in input order.
	// Every payer and share holder must be on the trip roster when the expense is written.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves one expense with payers and shares.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByTrip returns every expense of a trip, oldest first.
	ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error)

	// DeleteExpense removes an expense.
	DeleteExpense(ctx context.Context, expenseID string) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail and GetUserByID return nil, nil when the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns the users that exist among ids, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}
