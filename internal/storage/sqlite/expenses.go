package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

// CreateExpense persists a new expense with its payers and shares.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate ID if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.Kind == "" {
		expense.Kind = models.KindExpense
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, trip_id, description, amount, kind, split_method, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.TripID, expense.Description, expense.Amount, string(expense.Kind),
		expense.SplitMethod, expense.CreatedBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	// Roster may have changed since the caller validated the expense
	if err := requireMembers(ctx, tx, expense); err != nil {
		return err
	}

	for i, p := range expense.Payers {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_payers (expense_id, position, user_id, amount) VALUES (?, ?, ?, ?)",
			expense.ID, i, p.UserID, p.AmountPaid,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense payer: %w", err)
		}
	}

	for i, sh := range expense.Shares {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, position, user_id, amount) VALUES (?, ?, ?, ?)",
			expense.ID, i, sh.UserID, sh.AmountOwed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// requireMembers checks every payer and share holder against the trip roster.
func requireMembers(ctx context.Context, q querier, expense *models.Expense) error {
	seen := make(map[string]bool, len(expense.Payers)+len(expense.Shares))
	check := func(userID string) error {
		if seen[userID] {
			return nil
		}
		seen[userID] = true
		var ok bool
		err := q.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM trip_members WHERE trip_id = ? AND user_id = ?)",
			expense.TripID, userID,
		).Scan(&ok)
		if err != nil {
			return fmt.Errorf("failed to check trip member: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", storage.ErrNotMember, userID)
		}
		return nil
	}
	for _, p := range expense.Payers {
		if err := check(p.UserID); err != nil {
			return err
		}
	}
	for _, sh := range expense.Shares {
		if err := check(sh.UserID); err != nil {
			return err
		}
	}
	return nil
}

// GetExpense retrieves an expense by ID, including payers and shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	expense := &models.Expense{}
	var kind string
	err = tx.QueryRowContext(ctx,
		`SELECT id, trip_id, description, amount, kind, split_method, created_by, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.TripID, &expense.Description, &expense.Amount, &kind,
		&expense.SplitMethod, &expense.CreatedBy, &expense.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("expense", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.Kind = models.ExpenseKind(kind)

	byID := map[string]*models.Expense{expense.ID: expense}
	if err := loadPayers(ctx, tx, "p.expense_id = ?", expenseID, byID); err != nil {
		return nil, err
	}
	if err := loadShares(ctx, tx, "s.expense_id = ?", expenseID, byID); err != nil {
		return nil, err
	}

	return expense, nil
}

// ListExpensesByTrip retrieves all expenses of a trip in the order they were recorded.
// Expenses, payers and shares are read from one snapshot.
func (s *SQLiteStore) ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, trip_id, description, amount, kind, split_method, created_by, created_at
		 FROM expenses WHERE trip_id = ? ORDER BY created_at, rowid`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by trip: %w", err)
	}

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense := &models.Expense{}
		var kind string
		if err := rows.Scan(&expense.ID, &expense.TripID, &expense.Description, &expense.Amount, &kind,
			&expense.SplitMethod, &expense.CreatedBy, &expense.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expense.Kind = models.ExpenseKind(kind)
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if len(expenses) == 0 {
		return expenses, nil
	}
	if err := loadPayers(ctx, tx, "e.trip_id = ?", tripID, byID); err != nil {
		return nil, err
	}
	if err := loadShares(ctx, tx, "e.trip_id = ?", tripID, byID); err != nil {
		return nil, err
	}

	return expenses, nil
}

// loadPayers fills Payers for every expense in byID matching where.
func loadPayers(ctx context.Context, q querier, where string, arg any, byID map[string]*models.Expense) error {
	rows, err := q.QueryContext(ctx,
		`SELECT p.expense_id, p.user_id, p.amount
		 FROM expense_payers p JOIN expenses e ON e.id = p.expense_id
		 WHERE `+where+` ORDER BY p.expense_id, p.position`,
		arg,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense payers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var p models.ExpensePayer
		if err := rows.Scan(&expenseID, &p.UserID, &p.AmountPaid); err != nil {
			return fmt.Errorf("failed to scan expense payer: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.Payers = append(e.Payers, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense payers: %w", err)
	}
	return nil
}

// loadShares fills Shares for every expense in byID matching where.
func loadShares(ctx context.Context, q querier, where string, arg any, byID map[string]*models.Expense) error {
	rows, err := q.QueryContext(ctx,
		`SELECT s.expense_id, s.user_id, s.amount
		 FROM expense_shares s JOIN expenses e ON e.id = s.expense_id
		 WHERE `+where+` ORDER BY s.expense_id, s.position`,
		arg,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var sh models.ExpenseShare
		if err := rows.Scan(&expenseID, &sh.UserID, &sh.AmountOwed); err != nil {
			return fmt.Errorf("failed to scan expense share: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.Shares = append(e.Shares, sh)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense shares: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense by ID. Payers and shares are removed by cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("expense", expenseID)
	}
	return nil
}
