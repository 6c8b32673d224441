package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
	"github.com/mmynk/tripsplit/pkg/api/apiconnect"
)

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	store storage.Store
}

var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// resolvePayers validates payers against the roster and the expense amount.
// No payers means the caller paid everything.
func resolvePayers(payers []*api.Payer, callerID string, amountCents int64, trip *models.Trip) ([]models.ExpensePayer, error) {
	if len(payers) == 0 {
		payers = []*api.Payer{{UserID: callerID, Amount: calculator.FromCents(amountCents)}}
	}

	seen := make(map[string]bool, len(payers))
	resolved := make([]models.ExpensePayer, 0, len(payers))
	var paidCents int64
	for _, p := range payers {
		if p == nil || p.UserID == "" {
			return nil, fmt.Errorf("payer user_id required")
		}
		if !trip.HasMember(p.UserID) {
			return nil, fmt.Errorf("payer %q is not a member of this trip", p.UserID)
		}
		if seen[p.UserID] {
			return nil, fmt.Errorf("payer %q listed more than once", p.UserID)
		}
		seen[p.UserID] = true

		cents, err := calculator.ToCents(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("payer %q: %w", p.UserID, err)
		}
		paidCents += cents
		resolved = append(resolved, models.ExpensePayer{UserID: p.UserID, AmountPaid: calculator.FromCents(cents)})
	}

	if paidCents != amountCents {
		return nil, fmt.Errorf("payers cover %s but the expense is %s",
			calculator.FormatCents(paidCents), calculator.FormatCents(amountCents))
	}
	return resolved, nil
}

// CreateExpense records a new expense on a trip.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateExpense request received",
		"trip_id", req.Msg.TripID,
		"description", req.Msg.Description,
		"amount", req.Msg.Amount,
		"payers_count", len(req.Msg.Payers),
	)

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(req.Msg.Description)
	if description == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("description required"))
	}
	amountCents, err := calculator.ToCents(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if amountCents == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("amount must be positive"))
	}

	payers, err := resolvePayers(req.Msg.Payers, userID, amountCents, trip)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	method, err := toSplitMethod(req.Msg.Split, trip.Members)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	calcShares, err := calculator.ResolveSplit(calculator.FromCents(amountCents), method)
	if err != nil {
		slog.Warn("CreateExpense split rejected", "trip_id", trip.ID, "method", method.Name(), "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	shares := make([]models.ExpenseShare, len(calcShares))
	for i, sh := range calcShares {
		if !trip.HasMember(sh.UserID) {
			return nil, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("%q is not a member of this trip", sh.UserID))
		}
		shares[i] = models.ExpenseShare{UserID: sh.UserID, AmountOwed: sh.AmountOwed}
	}

	expense := &models.Expense{
		TripID:      trip.ID,
		Description: description,
		Amount:      calculator.FromCents(amountCents),
		Kind:        models.KindExpense,
		SplitMethod: method.Name(),
		Payers:      payers,
		Shares:      shares,
		CreatedBy:   userID,
	}

	// The engine must accept the expense on its own before it joins the trip.
	if _, err := calculator.CalculateTripDebts([]calculator.Expense{toCalculatorExpense(expense)}, trip.Members); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "trip_id", trip.ID, "error", err)
		return nil, storageError(err)
	}

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"trip_id", trip.ID,
		"split_method", expense.SplitMethod,
	)

	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// loadExpenseForMember fetches an expense and checks that userID is on its trip.
func (s *ExpenseService) loadExpenseForMember(ctx context.Context, expenseID, userID string) (*models.Expense, error) {
	if expenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense_id required"))
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		slog.Warn("Expense lookup failed", "expense_id", expenseID, "error", err)
		return nil, storageError(err)
	}
	if _, err := loadTripForMember(ctx, s.store, expense.TripID, userID); err != nil {
		return nil, err
	}
	return expense, nil
}

// GetExpense retrieves an expense by ID.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	expense, err := s.loadExpenseForMember(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses returns every expense and recorded settlement of a trip, oldest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByTrip(ctx, trip.ID)
	if err != nil {
		slog.Error("ListExpenses failed", "trip_id", trip.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	apiExpenses := make([]*api.Expense, len(expenses))
	for i, expense := range expenses {
		apiExpenses[i] = toAPIExpense(expense)
	}

	slog.Info("ListExpenses successful", "trip_id", trip.ID, "count", len(expenses))

	return connect.NewResponse(&api.ListExpensesResponse{Expenses: apiExpenses}), nil
}

// DeleteExpense removes an expense or recorded settlement.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	expense, err := s.loadExpenseForMember(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, storageError(err)
	}

	slog.Info("Expense deleted", "expense_id", expense.ID, "trip_id", expense.TripID)

	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// RecordSettlement records that payer_id sent amount to payee_id. It is stored as a
// settlement expense paid by the payer and owed entirely by the payee, which moves the
// payer's balance up and the payee's balance down by amount.
func (s *ExpenseService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RecordSettlement request received",
		"trip_id", req.Msg.TripID,
		"payer_id", req.Msg.PayerID,
		"payee_id", req.Msg.PayeeID,
		"amount", req.Msg.Amount,
	)

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}

	payerID, payeeID := req.Msg.PayerID, req.Msg.PayeeID
	switch {
	case payerID == "" || payeeID == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("payer_id and payee_id required"))
	case payerID == payeeID:
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("payer and payee must differ"))
	case !trip.HasMember(payerID):
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("payer %q is not a member of this trip", payerID))
	case !trip.HasMember(payeeID):
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("payee %q is not a member of this trip", payeeID))
	}

	cents, err := calculator.ToCents(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if cents == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("amount must be positive"))
	}
	amount := calculator.FromCents(cents)

	description := strings.TrimSpace(req.Msg.Note)
	if description == "" {
		description = fmt.Sprintf("%s paid %s", payerID, payeeID)
	}

	expense := &models.Expense{
		TripID:      trip.ID,
		Description: description,
		Amount:      amount,
		Kind:        models.KindSettlement,
		Payers:      []models.ExpensePayer{{UserID: payerID, AmountPaid: amount}},
		Shares:      []models.ExpenseShare{{UserID: payeeID, AmountOwed: amount}},
		CreatedBy:   userID,
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("RecordSettlement failed", "trip_id", trip.ID, "error", err)
		return nil, storageError(err)
	}

	slog.Info("Settlement recorded", "expense_id", expense.ID, "trip_id", trip.ID)

	return connect.NewResponse(&api.RecordSettlementResponse{Expense: toAPIExpense(expense)}), nil
}
