package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Trips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateTrip generates ID, name and dedupes members", func(t *testing.T) {
		trip := &models.Trip{
			Destination: "Lisbon",
			Members:     []string{"Alice", "Bob", "Alice"},
			CreatedBy:   "Alice",
		}
		require.NoError(t, store.CreateTrip(ctx, trip))

		assert.NotEmpty(t, trip.ID)
		assert.NotZero(t, trip.CreatedAt)
		assert.Equal(t, "Trip to Lisbon", trip.Name)
		assert.Equal(t, []string{"Alice", "Bob"}, trip.Members)
	})

	t.Run("GetTrip retrieves complete trip", func(t *testing.T) {
		original := &models.Trip{
			Name:        "Ski week",
			Destination: "Chamonix",
			StartDate:   "2026-02-01",
			EndDate:     "2026-02-08",
			Members:     []string{"Charlie", "Diana", "Bob"},
			CreatedBy:   "Charlie",
		}
		require.NoError(t, store.CreateTrip(ctx, original))

		retrieved, err := store.GetTrip(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, original, retrieved)
	})

	t.Run("GetTrip returns ErrNotFound for nonexistent trip", func(t *testing.T) {
		_, err := store.GetTrip(ctx, "nonexistent-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("AddTripMembers appends in order and skips existing", func(t *testing.T) {
		trip := &models.Trip{Name: "Road trip", Members: []string{"Eve"}}
		require.NoError(t, store.CreateTrip(ctx, trip))

		require.NoError(t, store.AddTripMembers(ctx, trip.ID, []string{"Frank", "Eve", "Grace"}))
		require.NoError(t, store.AddTripMembers(ctx, trip.ID, []string{"Heidi"}))

		retrieved, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Eve", "Frank", "Grace", "Heidi"}, retrieved.Members)

		err = store.AddTripMembers(ctx, "missing", []string{"Eve"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("RemoveTripMember", func(t *testing.T) {
		trip := &models.Trip{Name: "Weekend", Members: []string{"Ivan", "Judy"}}
		require.NoError(t, store.CreateTrip(ctx, trip))

		require.NoError(t, store.RemoveTripMember(ctx, trip.ID, "Ivan"))
		retrieved, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Judy"}, retrieved.Members)

		assert.ErrorIs(t, store.RemoveTripMember(ctx, trip.ID, "Ivan"), storage.ErrNotFound)
	})

	t.Run("RemoveTripMember keeps members referenced by expenses", func(t *testing.T) {
		trip := &models.Trip{Name: "Ski", Members: []string{"Ken", "Liz", "Max"}}
		require.NoError(t, store.CreateTrip(ctx, trip))
		require.NoError(t, store.CreateExpense(ctx, &models.Expense{
			TripID:      trip.ID,
			Description: "Lift pass",
			Amount:      50,
			Payers:      []models.ExpensePayer{{UserID: "Ken", AmountPaid: 50}},
			Shares:      []models.ExpenseShare{{UserID: "Liz", AmountOwed: 50}},
		}))

		for _, member := range []string{"Ken", "Liz"} {
			err := store.RemoveTripMember(ctx, trip.ID, member)
			assert.ErrorIs(t, err, storage.ErrMemberInUse, member)
		}
		require.NoError(t, store.RemoveTripMember(ctx, trip.ID, "Max"))

		retrieved, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ken", "Liz"}, retrieved.Members)
	})

	t.Run("ListTripsByMember", func(t *testing.T) {
		trips, err := store.ListTripsByMember(ctx, "Bob")
		require.NoError(t, err)
		require.Len(t, trips, 2)
		for _, trip := range trips {
			assert.True(t, trip.HasMember("Bob"))
		}

		trips, err = store.ListTripsByMember(ctx, "Nobody")
		require.NoError(t, err)
		assert.Empty(t, trips)
	})

	t.Run("UpdateTrip", func(t *testing.T) {
		trip := &models.Trip{Name: "Old", Members: []string{"Alice"}}
		require.NoError(t, store.CreateTrip(ctx, trip))

		trip.Name = "New"
		trip.Destination = "Porto"
		require.NoError(t, store.UpdateTrip(ctx, trip))

		retrieved, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, "New", retrieved.Name)
		assert.Equal(t, "Porto", retrieved.Destination)
		assert.Equal(t, []string{"Alice"}, retrieved.Members)

		assert.ErrorIs(t, store.UpdateTrip(ctx, &models.Trip{ID: "missing"}), storage.ErrNotFound)
	})
}

func TestSQLiteStore_Expenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trip := &models.Trip{Name: "Lisbon", Members: []string{"Alice", "Bob", "Charlie"}}
	require.NoError(t, store.CreateTrip(ctx, trip))

	t.Run("CreateExpense and GetExpense round trip", func(t *testing.T) {
		original := &models.Expense{
			TripID:      trip.ID,
			Description: "Dinner",
			Amount:      100,
			SplitMethod: "equal",
			Payers: []models.ExpensePayer{
				{UserID: "Bob", AmountPaid: 60},
				{UserID: "Alice", AmountPaid: 40},
			},
			Shares: []models.ExpenseShare{
				{UserID: "Charlie", AmountOwed: 33.34},
				{UserID: "Alice", AmountOwed: 33.33},
				{UserID: "Bob", AmountOwed: 33.33},
			},
			CreatedBy: "Alice",
		}
		require.NoError(t, store.CreateExpense(ctx, original))
		assert.NotEmpty(t, original.ID)
		assert.Equal(t, models.KindExpense, original.Kind)

		retrieved, err := store.GetExpense(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, original, retrieved, "payer and share order must survive storage")
	})

	t.Run("GetExpense returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetExpense(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListExpensesByTrip", func(t *testing.T) {
		settlement := &models.Expense{
			TripID:      trip.ID,
			Description: "Settle up",
			Amount:      20,
			Kind:        models.KindSettlement,
			Payers:      []models.ExpensePayer{{UserID: "Charlie", AmountPaid: 20}},
			Shares:      []models.ExpenseShare{{UserID: "Bob", AmountOwed: 20}},
		}
		require.NoError(t, store.CreateExpense(ctx, settlement))

		expenses, err := store.ListExpensesByTrip(ctx, trip.ID)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "Dinner", expenses[0].Description)
		assert.Len(t, expenses[0].Payers, 2)
		assert.Len(t, expenses[0].Shares, 3)
		assert.Equal(t, models.KindSettlement, expenses[1].Kind)
		assert.Equal(t, []models.ExpensePayer{{UserID: "Charlie", AmountPaid: 20}}, expenses[1].Payers)

		empty, err := store.ListExpensesByTrip(ctx, "other-trip")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("DeleteExpense", func(t *testing.T) {
		expense := &models.Expense{
			TripID:      trip.ID,
			Description: "Taxi",
			Amount:      12,
			Payers:      []models.ExpensePayer{{UserID: "Alice", AmountPaid: 12}},
			Shares:      []models.ExpenseShare{{UserID: "Alice", AmountOwed: 12}},
		}
		require.NoError(t, store.CreateExpense(ctx, expense))
		require.NoError(t, store.DeleteExpense(ctx, expense.ID))

		_, err := store.GetExpense(ctx, expense.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeleteExpense(ctx, expense.ID), storage.ErrNotFound)
	})

	t.Run("CreateExpense rejects unknown trip", func(t *testing.T) {
		err := store.CreateExpense(ctx, &models.Expense{
			TripID:      "missing",
			Description: "Orphan",
			Amount:      1,
			Payers:      []models.ExpensePayer{{UserID: "Alice", AmountPaid: 1}},
			Shares:      []models.ExpenseShare{{UserID: "Alice", AmountOwed: 1}},
		})
		assert.Error(t, err, "foreign keys must be enforced")
	})

	t.Run("CreateExpense rejects users outside the roster", func(t *testing.T) {
		before, err := store.ListExpensesByTrip(ctx, trip.ID)
		require.NoError(t, err)

		tests := []struct {
			name   string
			payers []models.ExpensePayer
			shares []models.ExpenseShare
		}{
			{
				name:   "payer",
				payers: []models.ExpensePayer{{UserID: "Mallory", AmountPaid: 5}},
				shares: []models.ExpenseShare{{UserID: "Alice", AmountOwed: 5}},
			},
			{
				name:   "share",
				payers: []models.ExpensePayer{{UserID: "Alice", AmountPaid: 5}},
				shares: []models.ExpenseShare{{UserID: "Alice", AmountOwed: 2}, {UserID: "Mallory", AmountOwed: 3}},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				expense := &models.Expense{
					TripID:      trip.ID,
					Description: "Snacks",
					Amount:      5,
					Payers:      tt.payers,
					Shares:      tt.shares,
				}
				err := store.CreateExpense(ctx, expense)
				assert.ErrorIs(t, err, storage.ErrNotMember)
				assert.ErrorContains(t, err, "Mallory")

				_, err = store.GetExpense(ctx, expense.ID)
				assert.ErrorIs(t, err, storage.ErrNotFound, "rejected expense must not be stored")
			})
		}

		after, err := store.ListExpensesByTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("DeleteTrip cascades to expenses", func(t *testing.T) {
		require.NoError(t, store.DeleteTrip(ctx, trip.ID))

		expenses, err := store.ListExpensesByTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Empty(t, expenses)

		assert.ErrorIs(t, store.DeleteTrip(ctx, trip.ID), storage.ErrNotFound)
	})
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := models.NewUser("Alice@Example.com", "Alice", "hash")
	require.NoError(t, store.CreateUser(ctx, alice))

	got, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	got, err = store.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.DisplayName)

	missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, store.CreateUser(ctx, models.NewUser("alice@example.com", "Other", "hash")),
		"emails must be unique")

	users, err := store.GetUsersByIDs(ctx, []string{alice.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Contains(t, users, alice.ID)
}

func TestGenerateTripName(t *testing.T) {
	tests := []struct {
		destination  string
		members      []string
		wantContains string
	}{
		{"", []string{}, "Trip -"},
		{"Rome", []string{"Alice"}, "Trip to Rome"},
		{"", []string{"Alice"}, "Trip with Alice"},
		{"", []string{"Alice", "Bob", "Charlie"}, "Trip with Alice, Bob, Charlie"},
		{"", []string{"Alice", "Bob", "Charlie", "Diana"}, "Trip with Alice, Bob and 2 others"},
	}

	for _, tt := range tests {
		t.Run(tt.wantContains, func(t *testing.T) {
			assert.Contains(t, generateTripName(tt.destination, tt.members), tt.wantContains)
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestSQLiteStore_ListExpensesByTripWhileWriting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trip := &models.Trip{Name: "Busy", Members: []string{"Alice", "Bob"}}
	require.NoError(t, store.CreateTrip(ctx, trip))

	newExpense := func() *models.Expense {
		return &models.Expense{
			TripID:      trip.ID,
			Description: "Coffee",
			Amount:      4,
			Payers:      []models.ExpensePayer{{UserID: "Alice", AmountPaid: 4}},
			Shares:      []models.ExpenseShare{{UserID: "Alice", AmountOwed: 2}, {UserID: "Bob", AmountOwed: 2}},
		}
	}

	var wg sync.WaitGroup
	var writeErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 25 {
			expense := newExpense()
			if writeErr = store.CreateExpense(ctx, expense); writeErr != nil {
				return
			}
			if writeErr = store.DeleteExpense(ctx, expense.ID); writeErr != nil {
				return
			}
		}
	}()

	for range 25 {
		expenses, err := store.ListExpensesByTrip(ctx, trip.ID)
		require.NoError(t, err)
		for _, e := range expenses {
			assert.Len(t, e.Payers, 1, "payers of %s", e.ID)
			assert.Len(t, e.Shares, 2, "shares of %s", e.ID)
		}
	}
	wg.Wait()
	require.NoError(t, writeErr)
}
