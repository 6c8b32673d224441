package calculator

import (
	"fmt"
	"math"
	"slices"
)

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

// Expense is the minimal view of an expense needed for debt calculations.
type Expense struct {
	ID     string
	Payers []ExpensePayer
	Shares []ExpenseShare
}

// MemberBalance is one member's position across all expenses of a trip.
type MemberBalance struct {
	MemberID   string
	NetBalance float64 // Positive = owed money, Negative = owes money
	TotalPaid  float64
	TotalOwed  float64
}

// BalanceEntry is a creditor or debtor with the absolute value of their balance.
type BalanceEntry struct {
	MemberID string
	Amount   float64
	Cents    int64
}

// SettlementTransaction instructs PayerID to send Amount to PayeeID.
//
// PayerID is always the debtor and PayeeID the creditor. Replaying a transaction adds
// Amount to the payer's net balance and subtracts it from the payee's.
type SettlementTransaction struct {
	PayerID     string
	PayeeID     string
	Amount      float64
	AmountCents int64
}

// TripDebts is the result of CalculateTripDebts.
type TripDebts struct {
	// NetBalances maps every roster member to totalPaid - totalOwed.
	NetBalances map[string]float64

	// Balances holds per-member totals in roster order.
	Balances []MemberBalance

	// Creditors and Debtors are sorted largest first. Settled members appear in neither.
	Creditors []BalanceEntry
	Debtors   []BalanceEntry

	Settlements []SettlementTransaction
}

// centExpense is an Expense after conversion to cents.
type centExpense struct {
	id     string
	payers []centAmount
	shares []centAmount
}

type centAmount struct {
	userID string
	cents  int64
}

type memberTotals struct {
	paid int64
	owed int64
}

// CalculateTripDebts computes net balances for every member of a trip and a set of
// payments that settles them.
//
// Algorithm:
//   - Convert every amount to integer cents; all arithmetic after that is exact
//   - Per expense, push any paid/owed difference onto the largest share
//   - net_balance = total_paid - total_owed, which must sum to zero across members
//   - Greedy matching: the largest debtor pays the largest creditor min(debt, credit)
//     until both sides are drained
//
// The function is pure and safe to call concurrently.
func CalculateTripDebts(expenses []Expense, members []string) (*TripDebts, error) {
	roster, err := newRoster(members)
	if err != nil {
		return nil, err
	}

	normalized := make([]centExpense, 0, len(expenses))
	for _, expense := range expenses {
		ce, err := normalizeExpense(expense, roster)
		if err != nil {
			return nil, err
		}
		if err := reconcileExpense(&ce); err != nil {
			return nil, err
		}
		normalized = append(normalized, ce)
	}

	totals, err := accumulate(normalized, roster)
	if err != nil {
		return nil, err
	}

	var grandTotal int64
	for _, id := range roster.order {
		grandTotal += totals[id].paid - totals[id].owed
	}
	if grandTotal != 0 {
		return nil, &InvariantError{
			Check:   "conservation",
			Details: fmt.Sprintf("net balances sum to %s, want 0.00", FormatCents(grandTotal)),
		}
	}

	debts := &TripDebts{
		NetBalances: make(map[string]float64, len(roster.order)),
		Balances:    make([]MemberBalance, 0, len(roster.order)),
		Creditors:   []BalanceEntry{},
		Debtors:     []BalanceEntry{},
	}
	for _, id := range roster.order {
		t := totals[id]
		net := t.paid - t.owed
		debts.NetBalances[id] = FromCents(net)
		debts.Balances = append(debts.Balances, MemberBalance{
			MemberID:   id,
			NetBalance: FromCents(net),
			TotalPaid:  FromCents(t.paid),
			TotalOwed:  FromCents(t.owed),
		})
		switch {
		case net > 0:
			debts.Creditors = append(debts.Creditors, BalanceEntry{MemberID: id, Amount: FromCents(net), Cents: net})
		case net < 0:
			debts.Debtors = append(debts.Debtors, BalanceEntry{MemberID: id, Amount: FromCents(-net), Cents: -net})
		}
	}

	// Entries were appended in roster order, so a stable sort keeps roster order on ties.
	byMagnitude := func(a, b BalanceEntry) int {
		switch {
		case a.Cents > b.Cents:
			return -1
		case a.Cents < b.Cents:
			return 1
		}
		return 0
	}
	slices.SortStableFunc(debts.Creditors, byMagnitude)
	slices.SortStableFunc(debts.Debtors, byMagnitude)

	settlements, err := matchDebts(debts.Debtors, debts.Creditors)
	if err != nil {
		return nil, err
	}
	debts.Settlements = settlements

	return debts, nil
}

// roster is the closed set of trip members, in input order.
type roster struct {
	order []string
	set   map[string]struct{}
}

func newRoster(members []string) (*roster, error) {
	r := &roster{
		order: make([]string, 0, len(members)),
		set:   make(map[string]struct{}, len(members)),
	}
	for _, m := range members {
		if m == "" {
			return nil, &ValidationError{Field: "members", Reason: "member id must not be empty"}
		}
		if _, dup := r.set[m]; dup {
			continue
		}
		r.set[m] = struct{}{}
		r.order = append(r.order, m)
	}
	return r, nil
}

func (r *roster) contains(id string) bool {
	_, ok := r.set[id]
	return ok
}

// normalizeExpense validates an expense and converts its amounts to cents.
func normalizeExpense(expense Expense, r *roster) (centExpense, error) {
	if len(expense.Payers) == 0 {
		return centExpense{}, &ValidationError{ExpenseID: expense.ID, Field: "payers", Reason: "must have at least one payer"}
	}
	if len(expense.Shares) == 0 {
		return centExpense{}, &ValidationError{ExpenseID: expense.ID, Field: "shares", Reason: "must have at least one share"}
	}

	ce := centExpense{
		id:     expense.ID,
		payers: make([]centAmount, len(expense.Payers)),
		shares: make([]centAmount, len(expense.Shares)),
	}
	for i, p := range expense.Payers {
		field := fmt.Sprintf("payers[%d]", i)
		if !r.contains(p.UserID) {
			return centExpense{}, &ValidationError{ExpenseID: expense.ID, Field: field, UserID: p.UserID, Reason: "not a trip member"}
		}
		cents, ok := toCents(p.AmountPaid)
		if !ok {
			return centExpense{}, &ValidationError{ExpenseID: expense.ID, Field: field + ".amount_paid", UserID: p.UserID,
				Reason: fmt.Sprintf("must be a finite, non-negative amount, got %v", p.AmountPaid)}
		}
		ce.payers[i] = centAmount{userID: p.UserID, cents: cents}
	}
	for i, s := range expense.Shares {
		field := fmt.Sprintf("shares[%d]", i)
		if !r.contains(s.UserID) {
			return centExpense{}, &ValidationError{ExpenseID: expense.ID, Field: field, UserID: s.UserID, Reason: "not a trip member"}
		}
		cents, ok := toCents(s.AmountOwed)
		if !ok {
			return centExpense{}, &ValidationError{ExpenseID: expense.ID, Field: field + ".amount_owed", UserID: s.UserID,
				Reason: fmt.Sprintf("must be a finite, non-negative amount, got %v", s.AmountOwed)}
		}
		ce.shares[i] = centAmount{userID: s.UserID, cents: cents}
	}
	return ce, nil
}

// reconcileExpense moves any paid/owed difference onto the largest share so the
// expense balances to the cent.
func reconcileExpense(ce *centExpense) error {
	var paid, owed int64
	var ok bool
	for _, p := range ce.payers {
		if paid, ok = addCents(paid, p.cents); !ok {
			return overflowError(ce.id, "payers")
		}
	}
	largest := 0
	for i, s := range ce.shares {
		if owed, ok = addCents(owed, s.cents); !ok {
			return overflowError(ce.id, "shares")
		}
		if s.cents > ce.shares[largest].cents {
			largest = i
		}
	}

	diff := paid - owed
	if diff == 0 {
		return nil
	}
	corrected := ce.shares[largest].cents + diff
	if corrected < 0 {
		return &UnbalanceableError{
			ExpenseID:  ce.id,
			PaidCents:  paid,
			OwedCents:  owed,
			ShareUser:  ce.shares[largest].userID,
			ShareCents: corrected,
		}
	}
	ce.shares[largest].cents = corrected
	return nil
}

// addCents adds two non-negative cent amounts. ok is false if the sum overflows int64.
func addCents(a, b int64) (sum int64, ok bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

func overflowError(expenseID, field string) error {
	return &ValidationError{ExpenseID: expenseID, Field: field, Reason: "total exceeds the supported amount range"}
}

// accumulate sums paid and owed cents per member. Trip-wide paid and owed totals are
// bounded to int64, which also bounds every member total and every net balance.
func accumulate(expenses []centExpense, r *roster) (map[string]memberTotals, error) {
	totals := make(map[string]memberTotals, len(r.order))
	for _, id := range r.order {
		totals[id] = memberTotals{}
	}
	var tripPaid, tripOwed int64
	var ok bool
	for _, e := range expenses {
		for _, p := range e.payers {
			if tripPaid, ok = addCents(tripPaid, p.cents); !ok {
				return nil, overflowError(e.id, "payers")
			}
			t := totals[p.userID]
			t.paid += p.cents
			totals[p.userID] = t
		}
		for _, s := range e.shares {
			if tripOwed, ok = addCents(tripOwed, s.cents); !ok {
				return nil, overflowError(e.id, "shares")
			}
			t := totals[s.userID]
			t.owed += s.cents
			totals[s.userID] = t
		}
	}
	return totals, nil
}

// matchDebts pairs the largest remaining debtor with the largest remaining creditor.
// Both slices must already be sorted largest first.
func matchDebts(debtors, creditors []BalanceEntry) ([]SettlementTransaction, error) {
	debtorLeft := make([]int64, len(debtors))
	for i, d := range debtors {
		debtorLeft[i] = d.Cents
	}
	creditorLeft := make([]int64, len(creditors))
	for j, c := range creditors {
		creditorLeft[j] = c.Cents
	}

	settlements := []SettlementTransaction{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtorLeft[i], creditorLeft[j])

		if amount > 0 {
			settlements = append(settlements, SettlementTransaction{
				PayerID:     debtors[i].MemberID,
				PayeeID:     creditors[j].MemberID,
				Amount:      FromCents(amount),
				AmountCents: amount,
			})
		}

		debtorLeft[i] -= amount
		creditorLeft[j] -= amount

		if debtorLeft[i] == 0 {
			i++
		}
		if creditorLeft[j] == 0 {
			j++
		}
	}

	var leftover int64
	for ; i < len(debtors); i++ {
		leftover += debtorLeft[i]
	}
	for ; j < len(creditors); j++ {
		leftover += creditorLeft[j]
	}
	if leftover != 0 {
		return nil, &InvariantError{
			Check:   "exhaustion",
			Details: fmt.Sprintf("%s left unmatched after settlement", FormatCents(leftover)),
		}
	}

	return settlements, nil
}
