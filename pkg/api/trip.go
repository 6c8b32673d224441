package api

// Trip is a trip and its member roster.
type Trip struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Destination string   `json:"destination,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Members     []string `json:"members"`
	CreatedBy   string   `json:"created_by,omitempty"`
	CreatedAt   int64    `json:"created_at"`
}

type CreateTripRequest struct {
	Name        string   `json:"name"`
	Destination string   `json:"destination,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Members     []string `json:"members"`
}

type CreateTripResponse struct {
	Trip *Trip `json:"trip"`
}

type GetTripRequest struct {
	TripID string `json:"trip_id"`
}

type GetTripResponse struct {
	Trip *Trip `json:"trip"`
}

type ListTripsRequest struct{}

type ListTripsResponse struct {
	Trips []*Trip `json:"trips"`
}

type UpdateTripRequest struct {
	TripID      string `json:"trip_id"`
	Name        string `json:"name"`
	Destination string `json:"destination,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

type UpdateTripResponse struct {
	Trip *Trip `json:"trip"`
}

type DeleteTripRequest struct {
	TripID string `json:"trip_id"`
}

type DeleteTripResponse struct{}

type AddMembersRequest struct {
	TripID  string   `json:"trip_id"`
	Members []string `json:"members"`
}

type AddMembersResponse struct {
	Trip *Trip `json:"trip"`
}

type RemoveMemberRequest struct {
	TripID string `json:"trip_id"`
	UserID string `json:"user_id"`
}

type RemoveMemberResponse struct {
	Trip *Trip `json:"trip"`
}

type GetTripDebtsRequest struct {
	TripID string `json:"trip_id"`
}

// MemberBalance is one member's position. Positive net balance = owed money.
type MemberBalance struct {
	MemberID    string  `json:"member_id"`
	DisplayName string  `json:"display_name,omitempty"`
	NetBalance  float64 `json:"net_balance"`
	TotalPaid   float64 `json:"total_paid"`
	TotalOwed   float64 `json:"total_owed"`
}

// BalanceEntry is a creditor or debtor with the absolute amount owed to or by them.
type BalanceEntry struct {
	MemberID string  `json:"member_id"`
	Amount   float64 `json:"amount"`
}

// SettlementTransaction means: payer_id (the debtor) sends amount to payee_id (the creditor).
type SettlementTransaction struct {
	PayerID string  `json:"payer_id"`
	PayeeID string  `json:"payee_id"`
	Amount  float64 `json:"amount"`
}

type GetTripDebtsResponse struct {
	NetBalances map[string]float64       `json:"net_balances"`
	Balances    []*MemberBalance         `json:"balances"`
	Creditors   []*BalanceEntry          `json:"creditors"`
	Debtors     []*BalanceEntry          `json:"debtors"`
	Settlements []*SettlementTransaction `json:"settlements"`
}
