package models

// ExpenseKind distinguishes regular expenses from recorded settlements.
type ExpenseKind string

const (
	KindExpense    ExpenseKind = "expense"
	KindSettlement ExpenseKind = "settlement"
)

// Expense represents a recorded cost within a trip.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// TripID is the trip this expense belongs to.
	TripID string

	// Description is the human-readable label (e.g., "Hotel", "Taxi to airport").
	Description string

	// Amount is the expense total. Payers and shares each sum to it.
	Amount float64

	// Kind is KindExpense or KindSettlement.
	Kind ExpenseKind

	// SplitMethod records how shares were derived ("equal", "fixed", "percentage", "itemized").
	// Empty for settlements.
	SplitMethod string

	// Payers fronted the money.
	Payers []ExpensePayer

	// Shares are what each person owes.
	Shares []ExpenseShare

	// CreatedBy is the user ID who recorded the expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// ExpensePayer is one person's contribution toward an expense.
type ExpensePayer struct {
	UserID     string
	AmountPaid float64
}

// ExpenseShare is one person's responsibility for part of an expense.
type ExpenseShare struct {
	UserID     string
	AmountOwed float64
}
