package domain

import "errors"

var ErrInvalidCartOwner = errors.New("cart owner must be a user or a session, not both")

// CartOwner identifies who a cart line belongs to: an authenticated user
// or an anonymous browsing session. Exactly one side is set.
type CartOwner struct {
	UserID    int64
	SessionID string
}

func UserOwner(userID int64) CartOwner { return CartOwner{UserID: userID} }

func SessionOwner(sessionID string) CartOwner { return CartOwner{SessionID: sessionID} }

func (o CartOwner) Anonymous() bool { return o.UserID == 0 }

func (o CartOwner) Validate() error {
	if (o.UserID == 0) == (o.SessionID == "") {
		return ErrInvalidCartOwner
	}
	return nil
}

type CartLine struct {
	ID        int64
	Owner     CartOwner
	ProductID int64
	Quantity  int
}

// Address is the delivery address snapshot an order points at. It is
// written once at checkout and never reused for a later order, so edits
// to a customer's saved addresses cannot rewrite history.
type Address struct {
	ID             int64
	UserID         int64
	RecipientName  string
	RecipientPhone string
	ZoneID         int64
	City           string
	District       string
	Details        string
	Landmark       string
}

// Customer is the slice of the user record checkout needs for the payment
// provider. The full profile lives behind the CustomerDirectory port.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
}
