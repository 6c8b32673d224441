package calculator

import (
	"fmt"
	"math"
)

// SplitMethod describes how an expense total is divided among people.
// It is implemented by EqualSplit, FixedSplit, PercentageSplit and ItemizedSplit.
type SplitMethod interface {
	// Name returns the method name as stored with the expense.
	Name() string

	resolve(totalCents int64) ([]centAmount, error)
}

// EqualSplit divides the total evenly. Leftover cents go one each to the first members.
type EqualSplit struct {
	Members []string
}

// FixedShare is an exact amount owed by one person.
type FixedShare struct {
	UserID string
	Amount float64
}

// FixedSplit assigns explicit amounts that must add up to the total.
type FixedSplit struct {
	Shares []FixedShare
}

// PercentShare is one person's percentage of the total.
type PercentShare struct {
	UserID  string
	Percent float64
}

// PercentageSplit divides the total by percentages summing to 100.
type PercentageSplit struct {
	Shares []PercentShare
}

// Item represents a single line item on a receipt.
type Item struct {
	Description string
	Amount      float64
	AssignedTo  []string
}

// ItemizedSplit assigns receipt items to people and spreads tax and fees
// (total - subtotal) in proportion to each person's item subtotal.
// Items with no assignees are shared by all Members.
type ItemizedSplit struct {
	Items    []Item
	Subtotal float64
	Members  []string
}

func (EqualSplit) Name() string      { return "equal" }
func (FixedSplit) Name() string      { return "fixed" }
func (PercentageSplit) Name() string { return "percentage" }
func (ItemizedSplit) Name() string   { return "itemized" }

// percentTolerance is how far percentages may drift from 100 before being rejected.
const percentTolerance = 0.01

// ResolveSplit turns a split method into per-person shares that add up to total exactly
// in cents. People appear in the order the method lists them.
func ResolveSplit(total float64, method SplitMethod) ([]ExpenseShare, error) {
	if method == nil {
		return nil, fmt.Errorf("%w: split method required", ErrInvalidSplit)
	}
	totalCents, ok := toCents(total)
	if !ok || totalCents == 0 {
		return nil, fmt.Errorf("%w: total must be a positive amount, got %v", ErrInvalidSplit, total)
	}

	amounts, err := method.resolve(totalCents)
	if err != nil {
		return nil, err
	}

	shares := make([]ExpenseShare, len(amounts))
	for i, a := range amounts {
		shares[i] = ExpenseShare{UserID: a.userID, AmountOwed: FromCents(a.cents)}
	}
	return shares, nil
}

func (m EqualSplit) resolve(totalCents int64) ([]centAmount, error) {
	members, err := uniqueMembers(m.Members)
	if err != nil {
		return nil, err
	}
	n := int64(len(members))
	per, remainder := totalCents/n, totalCents%n

	shares := make([]centAmount, len(members))
	for i, id := range members {
		shares[i] = centAmount{userID: id, cents: per}
		if int64(i) < remainder {
			shares[i].cents++
		}
	}
	return shares, nil
}

func (m FixedSplit) resolve(totalCents int64) ([]centAmount, error) {
	if len(m.Shares) == 0 {
		return nil, fmt.Errorf("%w: must have at least one share", ErrInvalidSplit)
	}
	seen := make(map[string]bool, len(m.Shares))
	shares := make([]centAmount, 0, len(m.Shares))
	var sum int64
	for _, s := range m.Shares {
		if s.UserID == "" {
			return nil, fmt.Errorf("%w: share user id required", ErrInvalidSplit)
		}
		if seen[s.UserID] {
			return nil, fmt.Errorf("%w: duplicate share for %q", ErrInvalidSplit, s.UserID)
		}
		seen[s.UserID] = true
		cents, ok := toCents(s.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: invalid amount %v for %q", ErrInvalidSplit, s.Amount, s.UserID)
		}
		sum += cents
		shares = append(shares, centAmount{userID: s.UserID, cents: cents})
	}
	if sum != totalCents {
		return nil, fmt.Errorf("%w: fixed shares sum to %s, want %s",
			ErrInvalidSplit, FormatCents(sum), FormatCents(totalCents))
	}
	return shares, nil
}

func (m PercentageSplit) resolve(totalCents int64) ([]centAmount, error) {
	if len(m.Shares) == 0 {
		return nil, fmt.Errorf("%w: must have at least one share", ErrInvalidSplit)
	}
	seen := make(map[string]bool, len(m.Shares))
	shares := make([]centAmount, 0, len(m.Shares))
	var percentSum float64
	for _, s := range m.Shares {
		if s.UserID == "" {
			return nil, fmt.Errorf("%w: share user id required", ErrInvalidSplit)
		}
		if seen[s.UserID] {
			return nil, fmt.Errorf("%w: duplicate share for %q", ErrInvalidSplit, s.UserID)
		}
		seen[s.UserID] = true
		if math.IsNaN(s.Percent) || math.IsInf(s.Percent, 0) || s.Percent < 0 {
			return nil, fmt.Errorf("%w: invalid percent %v for %q", ErrInvalidSplit, s.Percent, s.UserID)
		}
		percentSum += s.Percent
		cents := int64(math.Round(float64(totalCents)*s.Percent/100 + centsEpsilon))
		shares = append(shares, centAmount{userID: s.UserID, cents: cents})
	}
	if math.Abs(percentSum-100) > percentTolerance {
		return nil, fmt.Errorf("%w: percentages sum to %.2f, want 100", ErrInvalidSplit, percentSum)
	}
	return absorbResidual(shares, totalCents)
}

// resolve follows the receipt model: person_total = person_subtotal × (total / subtotal).
func (m ItemizedSplit) resolve(totalCents int64) ([]centAmount, error) {
	members, err := uniqueMembers(m.Members)
	if err != nil {
		return nil, err
	}
	subtotalCents, ok := toCents(m.Subtotal)
	if !ok || subtotalCents == 0 {
		return nil, fmt.Errorf("%w: subtotal cannot be zero", ErrInvalidSplit)
	}

	index := make(map[string]int, len(members))
	shares := make([]centAmount, len(members))
	for i, id := range members {
		index[id] = i
		shares[i] = centAmount{userID: id}
	}

	var itemSum int64
	for _, item := range m.Items {
		itemCents, ok := toCents(item.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: invalid amount %v for item %q", ErrInvalidSplit, item.Amount, item.Description)
		}
		itemSum += itemCents

		assignees := item.AssignedTo
		if len(assignees) == 0 {
			assignees = members
		}
		split, err := EqualSplit{Members: assignees}.resolve(itemCents)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", item.Description, err)
		}
		for _, s := range split {
			i, ok := index[s.userID]
			if !ok {
				return nil, fmt.Errorf("%w: item %q assigned to %q who is not in the split", ErrInvalidSplit, item.Description, s.userID)
			}
			shares[i].cents += s.cents
		}
	}
	if len(m.Items) > 0 && itemSum != subtotalCents {
		return nil, fmt.Errorf("%w: items sum to %s, want subtotal %s",
			ErrInvalidSplit, FormatCents(itemSum), FormatCents(subtotalCents))
	}

	// No items: everyone shares the subtotal equally.
	if len(m.Items) == 0 {
		equal, err := EqualSplit{Members: members}.resolve(subtotalCents)
		if err != nil {
			return nil, err
		}
		shares = equal
	}

	for i := range shares {
		shares[i].cents = int64(math.Round(float64(shares[i].cents)*float64(totalCents)/float64(subtotalCents) + centsEpsilon))
	}
	return absorbResidual(shares, totalCents)
}

// uniqueMembers rejects empty or duplicated member lists.
func uniqueMembers(members []string) ([]string, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: must have at least one participant", ErrInvalidSplit)
	}
	seen := make(map[string]bool, len(members))
	for _, id := range members {
		if id == "" {
			return nil, fmt.Errorf("%w: participant id required", ErrInvalidSplit)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate participant %q", ErrInvalidSplit, id)
		}
		seen[id] = true
	}
	return members, nil
}

// absorbResidual moves rounding leftovers onto the largest share, first one on ties.
func absorbResidual(shares []centAmount, totalCents int64) ([]centAmount, error) {
	var sum int64
	largest := 0
	for i, s := range shares {
		sum += s.cents
		if s.cents > shares[largest].cents {
			largest = i
		}
	}
	shares[largest].cents += totalCents - sum
	if shares[largest].cents < 0 {
		return nil, fmt.Errorf("%w: shares exceed total", ErrInvalidSplit)
	}
	return shares, nil
}
