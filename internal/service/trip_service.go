package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
	"github.com/mmynk/tripsplit/pkg/api/apiconnect"
)

// errUnsettleable is returned to clients when a trip's expenses cannot be balanced.
var errUnsettleable = errors.New("unable to compute settlement for this trip")

// TripService implements the Connect TripService
type TripService struct {
	store   storage.Store
	metrics *middleware.Metrics
}

var _ apiconnect.TripServiceHandler = (*TripService)(nil)

// NewTripService creates a new TripService with the given storage backend.
// metrics may be nil.
func NewTripService(store storage.Store, metrics *middleware.Metrics) *TripService {
	return &TripService{store: store, metrics: metrics}
}

// CreateTrip creates a new trip. The caller is always a member.
func (s *TripService) CreateTrip(ctx context.Context, req *connect.Request[api.CreateTripRequest]) (*connect.Response[api.CreateTripResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateTrip request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	if err := validateDates(req.Msg.StartDate, req.Msg.EndDate); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	members := []string{userID}
	for _, m := range req.Msg.Members {
		m = strings.TrimSpace(m)
		if m == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("member ids must not be empty"))
		}
		members = append(members, m)
	}

	trip := &models.Trip{
		Name:        strings.TrimSpace(req.Msg.Name),
		Destination: strings.TrimSpace(req.Msg.Destination),
		StartDate:   req.Msg.StartDate,
		EndDate:     req.Msg.EndDate,
		Members:     members,
		CreatedBy:   userID,
	}

	// Save to storage (generates ID, name if empty, and CreatedAt)
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		slog.Error("CreateTrip failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Trip created", "trip_id", trip.ID, "members", trip.Members)

	return connect.NewResponse(&api.CreateTripResponse{Trip: toAPITrip(trip)}), nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, req *connect.Request[api.GetTripRequest]) (*connect.Response[api.GetTripResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetTripResponse{Trip: toAPITrip(trip)}), nil
}

// ListTrips returns the trips the caller belongs to.
func (s *TripService) ListTrips(ctx context.Context, req *connect.Request[api.ListTripsRequest]) (*connect.Response[api.ListTripsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	trips, err := s.store.ListTripsByMember(ctx, userID)
	if err != nil {
		slog.Error("ListTrips failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	apiTrips := make([]*api.Trip, len(trips))
	for i, trip := range trips {
		apiTrips[i] = toAPITrip(trip)
	}

	slog.Info("ListTrips successful", "user_id", userID, "count", len(trips))

	return connect.NewResponse(&api.ListTripsResponse{Trips: apiTrips}), nil
}

// UpdateTrip changes a trip's name, destination and dates. An empty name keeps the current one.
func (s *TripService) UpdateTrip(ctx context.Context, req *connect.Request[api.UpdateTripRequest]) (*connect.Response[api.UpdateTripResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}
	if err := validateDates(req.Msg.StartDate, req.Msg.EndDate); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if name := strings.TrimSpace(req.Msg.Name); name != "" {
		trip.Name = name
	}
	trip.Destination = strings.TrimSpace(req.Msg.Destination)
	trip.StartDate = req.Msg.StartDate
	trip.EndDate = req.Msg.EndDate

	if err := s.store.UpdateTrip(ctx, trip); err != nil {
		slog.Error("UpdateTrip failed", "trip_id", trip.ID, "error", err)
		return nil, storageError(err)
	}

	slog.Info("Trip updated", "trip_id", trip.ID)

	return connect.NewResponse(&api.UpdateTripResponse{Trip: toAPITrip(trip)}), nil
}

// DeleteTrip removes a trip and all of its expenses. Only the creator may delete it.
func (s *TripService) DeleteTrip(ctx context.Context, req *connect.Request[api.DeleteTripRequest]) (*connect.Response[api.DeleteTripResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}
	if trip.CreatedBy != "" && trip.CreatedBy != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the trip creator can delete this trip"))
	}

	if err := s.store.DeleteTrip(ctx, trip.ID); err != nil {
		slog.Error("DeleteTrip failed", "trip_id", trip.ID, "error", err)
		return nil, storageError(err)
	}

	slog.Info("Trip deleted", "trip_id", trip.ID)

	return connect.NewResponse(&api.DeleteTripResponse{}), nil
}

// AddMembers adds people to a trip roster. Existing members are ignored.
func (s *TripService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}
	if len(req.Msg.Members) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("members required"))
	}

	members := make([]string, 0, len(req.Msg.Members))
	for _, m := range req.Msg.Members {
		m = strings.TrimSpace(m)
		if m == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("member ids must not be empty"))
		}
		members = append(members, m)
	}

	if err := s.store.AddTripMembers(ctx, trip.ID, members); err != nil {
		slog.Error("AddMembers failed", "trip_id", trip.ID, "error", err)
		return nil, storageError(err)
	}

	updated, err := s.store.GetTrip(ctx, trip.ID)
	if err != nil {
		return nil, storageError(err)
	}

	slog.Info("Members added", "trip_id", trip.ID, "members", members)

	return connect.NewResponse(&api.AddMembersResponse{Trip: toAPITrip(updated)}), nil
}

// RemoveMember takes someone off a trip roster. Members who pay or owe on any expense
// of the trip cannot be removed.
func (s *TripService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}
	target := req.Msg.UserID
	if !trip.HasMember(target) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%q is not a member of this trip", target))
	}

	// The store refuses members still referenced by an expense
	if err := s.store.RemoveTripMember(ctx, trip.ID, target); err != nil {
		if errors.Is(err, storage.ErrMemberInUse) {
			return nil, connect.NewError(connect.CodeFailedPrecondition,
				fmt.Errorf("%q appears on an expense of this trip and cannot be removed", target))
		}
		slog.Error("RemoveMember failed", "trip_id", trip.ID, "user_id", target, "error", err)
		return nil, storageError(err)
	}

	updated, err := s.store.GetTrip(ctx, trip.ID)
	if err != nil {
		return nil, storageError(err)
	}

	slog.Info("Member removed", "trip_id", trip.ID, "user_id", target)

	return connect.NewResponse(&api.RemoveMemberResponse{Trip: toAPITrip(updated)}), nil
}

// GetTripDebts computes net balances and a settlement plan from the trip's expenses.
func (s *TripService) GetTripDebts(ctx context.Context, req *connect.Request[api.GetTripDebtsRequest]) (*connect.Response[api.GetTripDebtsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetTripDebts request received", "trip_id", req.Msg.TripID)

	trip, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByTrip(ctx, trip.ID)
	if err != nil {
		slog.Error("GetTripDebts failed - could not list expenses", "trip_id", trip.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	calcExpenses := make([]calculator.Expense, len(expenses))
	for i, expense := range expenses {
		calcExpenses[i] = toCalculatorExpense(expense)
	}

	debts, err := calculator.CalculateTripDebts(calcExpenses, trip.Members)
	if err != nil {
		if errors.Is(err, calculator.ErrInvariantViolation) {
			slog.Error("GetTripDebts failed - invariant violated", "trip_id", trip.ID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		slog.Warn("GetTripDebts failed - trip cannot be settled", "trip_id", trip.ID, "error", err)
		return nil, connect.NewError(connect.CodeFailedPrecondition, errUnsettleable)
	}
	s.metrics.ObserveSettlementPlan(len(debts.Settlements))

	names := s.displayNames(ctx, trip.Members)

	balances := make([]*api.MemberBalance, len(debts.Balances))
	for i, b := range debts.Balances {
		balances[i] = &api.MemberBalance{
			MemberID:    b.MemberID,
			DisplayName: names[b.MemberID],
			NetBalance:  b.NetBalance,
			TotalPaid:   b.TotalPaid,
			TotalOwed:   b.TotalOwed,
		}
	}

	settlements := make([]*api.SettlementTransaction, len(debts.Settlements))
	for i, tx := range debts.Settlements {
		settlements[i] = &api.SettlementTransaction{
			PayerID: tx.PayerID,
			PayeeID: tx.PayeeID,
			Amount:  tx.Amount,
		}
	}

	slog.Info("GetTripDebts successful",
		"trip_id", trip.ID,
		"expenses_count", len(expenses),
		"members_count", len(debts.Balances),
		"settlements_count", len(settlements),
	)

	return connect.NewResponse(&api.GetTripDebtsResponse{
		NetBalances: debts.NetBalances,
		Balances:    balances,
		Creditors:   toAPIEntries(debts.Creditors),
		Debtors:     toAPIEntries(debts.Debtors),
		Settlements: settlements,
	}), nil
}

// displayNames resolves member IDs to registered display names. Members without an
// account are left out.
func (s *TripService) displayNames(ctx context.Context, members []string) map[string]string {
	names := make(map[string]string, len(members))
	users, err := s.store.GetUsersByIDs(ctx, members)
	if err != nil {
		slog.Warn("Failed to resolve display names", "error", err)
		return names
	}
	for id, user := range users {
		names[id] = user.DisplayName
	}
	return names
}

func toAPIEntries(entries []calculator.BalanceEntry) []*api.BalanceEntry {
	out := make([]*api.BalanceEntry, len(entries))
	for i, e := range entries {
		out[i] = &api.BalanceEntry{MemberID: e.MemberID, Amount: e.Amount}
	}
	return out
}
