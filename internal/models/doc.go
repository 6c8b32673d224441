// Package models defines the core domain models for tripsplit.
//
// # Models
//
//   - User: registered account; trip members are referenced by user ID
//   - Trip: a shared context (destination, dates, member roster) for expenses
//   - Expense: a recorded cost with one or more payers and one or more shares
//
// Recorded settlements are stored as expenses of KindSettlement: the person who sent
// the money is the only payer and the person who received it owes the whole amount.
// This keeps balances derivable from the expense list alone.
//
// # Design Principles
//
// 1. **Amounts at the boundary**: models carry decimal amounts (float64); integer-cent
// arithmetic happens in the calculator package
// 2. **Avoid circular references**: Use ID strings instead of pointers for relationships
// 3. **Split method is metadata**: shares are stored resolved, the method name is kept
// for display only
package models
