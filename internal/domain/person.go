package domain

import "time"

// Payment instrument kinds.
const (
	InstrumentCard       = "CARD"
	InstrumentBankMobile = "BANK_MOBILE"
	InstrumentWallet     = "WALLET"
)

// Address is an optional satellite owned by exactly one Person. Every field
// is optional; shared-address matching uses street and city only.
type Address struct {
	Street     *string
	City       *string
	Region     *string
	PostalCode *string
	Country    *string
}

// PaymentInstrument identifies a payment method. Instruments are matched by
// id across persons, so two persons supplying the same id share the node.
type PaymentInstrument struct {
	ID   string
	Type string
}

// Person is one of the two primary entity kinds.
type Person struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Phone       *string
	Address     *Address
	Instruments []PaymentInstrument
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PersonPublic carries the fields safe to expose for counterpart persons in
// connection and path results. Nothing sensitive belongs here.
type PersonPublic struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// Public projects a Person onto its shareable fields.
func (p Person) Public() PersonPublic {
	return PersonPublic{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	}
}

// PersonPatch is the upsert payload for a Person. A nil field means "leave
// unchanged" on update; a nil ID requests a create. Satellite groups
// (Address, Instruments) are replaced wholesale when non-nil, never merged
// field by field.
type PersonPatch struct {
	ID          *string
	FirstName   *string
	LastName    *string
	Email       *string
	Phone       *string
	Address     *Address
	Instruments *[]PaymentInstrument
}

// PersonSummary is the lightweight projection used by list endpoints.
type PersonSummary struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PersonListResult captures one page of persons plus the unpaged total.
type PersonListResult struct {
	Items []PersonSummary
	Total int64
}
