package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
)

func TestCreateExpense_DefaultsToCallerPayingEqualSplit(t *testing.T) {
	env := setupTestServer(t)
	trip := env.createTrip(t, "Alice", "Bob", "Charlie")

	expense := env.createExpense(t, "Bob", &api.CreateExpenseRequest{
		TripID:      trip.ID,
		Description: " Groceries ",
		Amount:      100,
	})

	assert.NotEmpty(t, expense.ID)
	assert.Equal(t, "Groceries", expense.Description)
	assert.Equal(t, api.KindExpense, expense.Kind)
	assert.Equal(t, api.SplitEqual, expense.SplitMethod)
	assert.Equal(t, "Bob", expense.CreatedBy)
	assert.Equal(t, []*api.Payer{{UserID: "Bob", Amount: 100}}, expense.Payers)
	assert.Equal(t, []*api.Share{
		{UserID: "Alice", Amount: 33.34},
		{UserID: "Bob", Amount: 33.33},
		{UserID: "Charlie", Amount: 33.33},
	}, expense.Shares)
}

func TestCreateExpense_SplitMethods(t *testing.T) {
	env := setupTestServer(t)
	trip := env.createTrip(t, "Alice", "Bob")

	tests := []struct {
		name       string
		amount     float64
		split      *api.Split
		wantMethod string
		wantShares []*api.Share
	}{
		{
			name:       "equal subset",
			amount:     10,
			split:      &api.Split{Method: api.SplitEqual, Participants: []string{"Bob"}},
			wantMethod: api.SplitEqual,
			wantShares: []*api.Share{{UserID: "Bob", Amount: 10}},
		},
		{
			name:   "fixed",
			amount: 45.5,
			split: &api.Split{Method: api.SplitFixed, Shares: []*api.SplitShare{
				{UserID: "Alice", Value: 30},
				{UserID: "Bob", Value: 15.5},
			}},
			wantMethod: api.SplitFixed,
			wantShares: []*api.Share{{UserID: "Alice", Amount: 30}, {UserID: "Bob", Amount: 15.5}},
		},
		{
			name:   "percentage",
			amount: 80,
			split: &api.Split{Method: api.SplitPercentage, Shares: []*api.SplitShare{
				{UserID: "Alice", Value: 25},
				{UserID: "Bob", Value: 75},
			}},
			wantMethod: api.SplitPercentage,
			wantShares: []*api.Share{{UserID: "Alice", Amount: 20}, {UserID: "Bob", Amount: 60}},
		},
		{
			name:   "itemized with tax",
			amount: 33,
			split: &api.Split{
				Method: api.SplitItemized,
				Items: []*api.Item{
					{Description: "Pizza", Amount: 20, ParticipantIDs: []string{"Alice", "Bob"}},
					{Description: "Salad", Amount: 10, ParticipantIDs: []string{"Alice"}},
				},
				Subtotal: 30,
			},
			wantMethod: api.SplitItemized,
			wantShares: []*api.Share{{UserID: "Alice", Amount: 22}, {UserID: "Bob", Amount: 11}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expense := env.createExpense(t, "Alice", &api.CreateExpenseRequest{
				TripID:      trip.ID,
				Description: tt.name,
				Amount:      tt.amount,
				Split:       tt.split,
			})
			assert.Equal(t, tt.wantMethod, expense.SplitMethod)
			assert.Equal(t, tt.wantShares, expense.Shares)
		})
	}
}

func TestCreateExpense_MultiplePayers(t *testing.T) {
	env := setupTestServer(t)
	trip := env.createTrip(t, "Alice", "Bob", "Charlie")

	env.createExpense(t, "Alice", &api.CreateExpenseRequest{
		TripID:      trip.ID,
		Description: "Hotel",
		Amount:      300,
		Payers:      []*api.Payer{{UserID: "Alice", Amount: 200}, {UserID: "Bob", Amount: 100}},
	})

	debts := env.debts(t, "Charlie", trip.ID)
	assert.Equal(t, map[string]float64{"Alice": 100, "Bob": 0, "Charlie": -100}, debts.NetBalances)
	assert.Equal(t, []*api.SettlementTransaction{{PayerID: "Charlie", PayeeID: "Alice", Amount: 100}}, debts.Settlements)
}

func TestCreateExpense_Invalid(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	trip := env.createTrip(t, "Alice", "Bob")

	tests := []struct {
		name string
		user string
		req  *api.CreateExpenseRequest
		code connect.Code
	}{
		{
			name: "missing description",
			user: "Alice",
			req:  &api.CreateExpenseRequest{TripID: trip.ID, Amount: 10},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "zero amount",
			user: "Alice",
			req:  &api.CreateExpenseRequest{TripID: trip.ID, Description: "Nothing"},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "negative amount",
			user: "Alice",
			req:  &api.CreateExpenseRequest{TripID: trip.ID, Description: "Refund", Amount: -5},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "payers do not cover amount",
			user: "Alice",
			req: &api.CreateExpenseRequest{
				TripID: trip.ID, Description: "Hotel", Amount: 100,
				Payers: []*api.Payer{{UserID: "Alice", Amount: 60}, {UserID: "Bob", Amount: 30}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "payer outside the trip",
			user: "Alice",
			req: &api.CreateExpenseRequest{
				TripID: trip.ID, Description: "Hotel", Amount: 100,
				Payers: []*api.Payer{{UserID: "Mallory", Amount: 100}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "duplicate payer",
			user: "Alice",
			req: &api.CreateExpenseRequest{
				TripID: trip.ID, Description: "Hotel", Amount: 100,
				Payers: []*api.Payer{{UserID: "Alice", Amount: 50}, {UserID: "Alice", Amount: 50}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "share outside the trip",
			user: "Alice",
			req: &api.CreateExpenseRequest{
				TripID: trip.ID, Description: "Drinks", Amount: 10,
				Split: &api.Split{Method: api.SplitEqual, Participants: []string{"Alice", "Mallory"}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "fixed split mismatch",
			user: "Alice",
			req: &api.CreateExpenseRequest{
				TripID: trip.ID, Description: "Drinks", Amount: 10,
				Split: &api.Split{Method: api.SplitFixed, Shares: []*api.SplitShare{{UserID: "Alice", Value: 4}}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown split method",
			user: "Alice",
			req: &api.CreateExpenseRequest{
				TripID: trip.ID, Description: "Drinks", Amount: 10,
				Split: &api.Split{Method: "by-weight"},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "caller not a member",
			user: "Mallory",
			req:  &api.CreateExpenseRequest{TripID: trip.ID, Description: "Drinks", Amount: 10},
			code: connect.CodePermissionDenied,
		},
		{
			name: "unknown trip",
			user: "Alice",
			req:  &api.CreateExpenseRequest{TripID: "missing", Description: "Drinks", Amount: 10},
			code: connect.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.CreateExpense(ctx, as(tt.user, tt.req))
			requireCode(t, tt.code, err)
		})
	}

	list, err := env.expenses.ListExpenses(ctx, as("Alice", &api.ListExpensesRequest{TripID: trip.ID}))
	require.NoError(t, err)
	assert.Empty(t, list.Msg.Expenses, "rejected expenses must not be stored")
}

func TestGetListDeleteExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	trip := env.createTrip(t, "Alice", "Bob")

	first := env.createExpense(t, "Alice", &api.CreateExpenseRequest{TripID: trip.ID, Description: "Taxi", Amount: 12})
	second := env.createExpense(t, "Bob", &api.CreateExpenseRequest{TripID: trip.ID, Description: "Lunch", Amount: 30})

	got, err := env.expenses.GetExpense(ctx, as("Bob", &api.GetExpenseRequest{ExpenseID: first.ID}))
	require.NoError(t, err)
	assert.Equal(t, first, got.Msg.Expense)

	_, err = env.expenses.GetExpense(ctx, as("Mallory", &api.GetExpenseRequest{ExpenseID: first.ID}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.expenses.GetExpense(ctx, as("Alice", &api.GetExpenseRequest{ExpenseID: "missing"}))
	requireCode(t, connect.CodeNotFound, err)

	list, err := env.expenses.ListExpenses(ctx, as("Alice", &api.ListExpensesRequest{TripID: trip.ID}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Expenses, 2)
	assert.Equal(t, first.ID, list.Msg.Expenses[0].ID)
	assert.Equal(t, second.ID, list.Msg.Expenses[1].ID)

	_, err = env.expenses.DeleteExpense(ctx, as("Mallory", &api.DeleteExpenseRequest{ExpenseID: first.ID}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.expenses.DeleteExpense(ctx, as("Bob", &api.DeleteExpenseRequest{ExpenseID: first.ID}))
	require.NoError(t, err)

	_, err = env.expenses.DeleteExpense(ctx, as("Bob", &api.DeleteExpenseRequest{ExpenseID: first.ID}))
	requireCode(t, connect.CodeNotFound, err)

	// Only the lunch Bob paid for remains: Alice owes Bob half.
	debts := env.debts(t, "Alice", trip.ID)
	assert.Equal(t, []*api.SettlementTransaction{{PayerID: "Alice", PayeeID: "Bob", Amount: 15}}, debts.Settlements)
}

func TestRecordSettlement(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	trip := env.createTrip(t, "Alice", "Bob")

	env.createExpense(t, "Alice", &api.CreateExpenseRequest{TripID: trip.ID, Description: "Tickets", Amount: 50})

	resp, err := env.expenses.RecordSettlement(ctx, as("Bob", &api.RecordSettlementRequest{
		TripID:  trip.ID,
		PayerID: "Bob",
		PayeeID: "Alice",
		Amount:  10,
		Note:    "Partial payback",
	}))
	require.NoError(t, err)

	settlement := resp.Msg.Expense
	assert.Equal(t, api.KindSettlement, settlement.Kind)
	assert.Equal(t, "Partial payback", settlement.Description)
	assert.Empty(t, settlement.SplitMethod)
	assert.Equal(t, []*api.Payer{{UserID: "Bob", Amount: 10}}, settlement.Payers)
	assert.Equal(t, []*api.Share{{UserID: "Alice", Amount: 10}}, settlement.Shares)

	debts := env.debts(t, "Alice", trip.ID)
	assert.Equal(t, map[string]float64{"Alice": 15, "Bob": -15}, debts.NetBalances)
	assert.Equal(t, []*api.SettlementTransaction{{PayerID: "Bob", PayeeID: "Alice", Amount: 15}}, debts.Settlements)

	t.Run("default description", func(t *testing.T) {
		resp, err := env.expenses.RecordSettlement(ctx, as("Bob", &api.RecordSettlementRequest{
			TripID: trip.ID, PayerID: "Bob", PayeeID: "Alice", Amount: 15,
		}))
		require.NoError(t, err)
		assert.Equal(t, "Bob paid Alice", resp.Msg.Expense.Description)
		assert.Empty(t, env.debts(t, "Bob", trip.ID).Settlements)
	})

	invalid := map[string]*api.RecordSettlementRequest{
		"self payment":     {TripID: trip.ID, PayerID: "Bob", PayeeID: "Bob", Amount: 5},
		"payee not member": {TripID: trip.ID, PayerID: "Bob", PayeeID: "Mallory", Amount: 5},
		"payer not member": {TripID: trip.ID, PayerID: "Mallory", PayeeID: "Bob", Amount: 5},
		"zero amount":      {TripID: trip.ID, PayerID: "Bob", PayeeID: "Alice"},
		"negative amount":  {TripID: trip.ID, PayerID: "Bob", PayeeID: "Alice", Amount: -5},
		"missing payee":    {TripID: trip.ID, PayerID: "Bob", Amount: 5},
	}
	for name, req := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := env.expenses.RecordSettlement(ctx, as("Alice", req))
			requireCode(t, connect.CodeInvalidArgument, err)
		})
	}
}

// staleRosterStore serves trips with members that have since been removed from the
// database, as if the removal landed between the roster read and the write.
type staleRosterStore struct {
	storage.Store
	removed []string
}

func (s *staleRosterStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := s.Store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	trip.Members = append(trip.Members, s.removed...)
	return trip, nil
}

func TestCreateExpense_MemberRemovedConcurrently(t *testing.T) {
	env := setupTestServer(t)
	trip := env.createTrip(t, "Alice", "Bob", "Charlie")

	_, err := env.trips.RemoveMember(context.Background(), as("Alice", &api.RemoveMemberRequest{TripID: trip.ID, UserID: "Charlie"}))
	require.NoError(t, err)

	svc := NewExpenseService(&staleRosterStore{Store: env.store, removed: []string{"Charlie"}})
	ctx := middleware.WithUser(context.Background(), "Alice", "")

	_, err = svc.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		TripID:      trip.ID,
		Description: "Dinner",
		Amount:      30,
		Split:       &api.Split{Method: api.SplitEqual, Participants: []string{"Alice", "Charlie"}},
	}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	_, err = svc.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		TripID: trip.ID, PayerID: "Charlie", PayeeID: "Alice", Amount: 10,
	}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	expenses, err := env.store.ListExpensesByTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Empty(t, expenses, "nothing may reference a removed member")
}
