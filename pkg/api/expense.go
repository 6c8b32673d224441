package api

// Payer is one person's contribution toward an expense.
type Payer struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

// Share is what one person owes on an expense.
type Share struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

// Split method names.
const (
	SplitEqual      = "equal"
	SplitFixed      = "fixed"
	SplitPercentage = "percentage"
	SplitItemized   = "itemized"
)

// SplitShare is a per-person value: an amount for fixed splits, a percent for percentage splits.
type SplitShare struct {
	UserID string  `json:"user_id"`
	Value  float64 `json:"value"`
}

// Item is a receipt line for itemized splits. No participant ids means everyone shares it.
type Item struct {
	Description    string   `json:"description"`
	Amount         float64  `json:"amount"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
}

// Split describes how an expense amount is divided.
//
//   - equal: Participants
//   - fixed: Shares with amounts
//   - percentage: Shares with percents
//   - itemized: Items, Subtotal and Participants
type Split struct {
	Method       string        `json:"method"`
	Participants []string      `json:"participants,omitempty"`
	Shares       []*SplitShare `json:"shares,omitempty"`
	Items        []*Item       `json:"items,omitempty"`
	Subtotal     float64       `json:"subtotal,omitempty"`
}

// Expense kinds.
const (
	KindExpense    = "expense"
	KindSettlement = "settlement"
)

type Expense struct {
	ID          string   `json:"id"`
	TripID      string   `json:"trip_id"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Kind        string   `json:"kind"`
	SplitMethod string   `json:"split_method,omitempty"`
	Payers      []*Payer `json:"payers"`
	Shares      []*Share `json:"shares"`
	CreatedBy   string   `json:"created_by,omitempty"`
	CreatedAt   int64    `json:"created_at"`
}

type CreateExpenseRequest struct {
	TripID      string  `json:"trip_id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	// Payers defaults to the caller paying the whole amount.
	Payers []*Payer `json:"payers,omitempty"`
	Split  *Split   `json:"split"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	TripID string `json:"trip_id"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

// RecordSettlementRequest records that payer_id sent amount to payee_id.
type RecordSettlementRequest struct {
	TripID  string  `json:"trip_id"`
	PayerID string  `json:"payer_id"`
	PayeeID string  `json:"payee_id"`
	Amount  float64 `json:"amount"`
	Note    string  `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Expense *Expense `json:"expense"`
}
