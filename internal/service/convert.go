package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
)

// requireUser returns the authenticated caller or an Unauthenticated error.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// storageError maps a store error to a connect error.
func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrMemberInUse), errors.Is(err, storage.ErrNotMember):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// loadTripForMember fetches a trip and checks that userID is on its roster.
func loadTripForMember(ctx context.Context, store storage.TripStore, tripID, userID string) (*models.Trip, error) {
	if tripID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("trip_id required"))
	}
	trip, err := store.GetTrip(ctx, tripID)
	if err != nil {
		slog.Warn("Trip lookup failed", "trip_id", tripID, "error", err)
		return nil, storageError(err)
	}
	if !trip.HasMember(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you must be a member of this trip"))
	}
	return trip, nil
}

// validateDates checks optional YYYY-MM-DD trip dates.
func validateDates(start, end string) error {
	var startDate, endDate time.Time
	var err error
	if start != "" {
		if startDate, err = time.Parse(time.DateOnly, start); err != nil {
			return fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
		}
	}
	if end != "" {
		if endDate, err = time.Parse(time.DateOnly, end); err != nil {
			return fmt.Errorf("end_date must be YYYY-MM-DD: %w", err)
		}
	}
	if start != "" && end != "" && endDate.Before(startDate) {
		return fmt.Errorf("end_date %s is before start_date %s", end, start)
	}
	return nil
}

func toAPITrip(trip *models.Trip) *api.Trip {
	return &api.Trip{
		ID:          trip.ID,
		Name:        trip.Name,
		Destination: trip.Destination,
		StartDate:   trip.StartDate,
		EndDate:     trip.EndDate,
		Members:     trip.Members,
		CreatedBy:   trip.CreatedBy,
		CreatedAt:   trip.CreatedAt,
	}
}

func toAPIExpense(expense *models.Expense) *api.Expense {
	payers := make([]*api.Payer, len(expense.Payers))
	for i, p := range expense.Payers {
		payers[i] = &api.Payer{UserID: p.UserID, Amount: p.AmountPaid}
	}
	shares := make([]*api.Share, len(expense.Shares))
	for i, s := range expense.Shares {
		shares[i] = &api.Share{UserID: s.UserID, Amount: s.AmountOwed}
	}
	return &api.Expense{
		ID:          expense.ID,
		TripID:      expense.TripID,
		Description: expense.Description,
		Amount:      expense.Amount,
		Kind:        string(expense.Kind),
		SplitMethod: expense.SplitMethod,
		Payers:      payers,
		Shares:      shares,
		CreatedBy:   expense.CreatedBy,
		CreatedAt:   expense.CreatedAt,
	}
}

func toAPIUser(user *models.User) *api.User {
	return &api.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

// toCalculatorExpense converts a stored expense into engine input.
func toCalculatorExpense(expense *models.Expense) calculator.Expense {
	payers := make([]calculator.ExpensePayer, len(expense.Payers))
	for i, p := range expense.Payers {
		payers[i] = calculator.ExpensePayer{UserID: p.UserID, AmountPaid: p.AmountPaid}
	}
	shares := make([]calculator.ExpenseShare, len(expense.Shares))
	for i, s := range expense.Shares {
		shares[i] = calculator.ExpenseShare{UserID: s.UserID, AmountOwed: s.AmountOwed}
	}
	return calculator.Expense{ID: expense.ID, Payers: payers, Shares: shares}
}

// toSplitMethod converts an API split into a calculator split method. A missing split
// or an empty participant list means the whole trip roster.
func toSplitMethod(split *api.Split, roster []string) (calculator.SplitMethod, error) {
	if split == nil {
		return calculator.EqualSplit{Members: roster}, nil
	}
	participants := split.Participants
	if len(participants) == 0 {
		participants = roster
	}

	switch split.Method {
	case "", api.SplitEqual:
		return calculator.EqualSplit{Members: participants}, nil
	case api.SplitFixed:
		shares := make([]calculator.FixedShare, len(split.Shares))
		for i, s := range split.Shares {
			shares[i] = calculator.FixedShare{UserID: s.UserID, Amount: s.Value}
		}
		return calculator.FixedSplit{Shares: shares}, nil
	case api.SplitPercentage:
		shares := make([]calculator.PercentShare, len(split.Shares))
		for i, s := range split.Shares {
			shares[i] = calculator.PercentShare{UserID: s.UserID, Percent: s.Value}
		}
		return calculator.PercentageSplit{Shares: shares}, nil
	case api.SplitItemized:
		items := make([]calculator.Item, len(split.Items))
		for i, item := range split.Items {
			items[i] = calculator.Item{
				Description: item.Description,
				Amount:      item.Amount,
				AssignedTo:  item.ParticipantIDs,
			}
		}
		return calculator.ItemizedSplit{Items: items, Subtotal: split.Subtotal, Members: participants}, nil
	default:
		return nil, fmt.Errorf("%w: unknown split method %q", calculator.ErrInvalidSplit, split.Method)
	}
}
