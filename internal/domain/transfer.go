package domain

import "time"

// Transfer type and status vocabularies.
const (
	TransferTypePayment    = "PAYMENT"
	TransferTypeRemittance = "REMITTANCE"
	TransferTypeTopUp      = "TOP_UP"

	TransferStatusPending   = "PENDING"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusFailed    = "FAILED"
	TransferStatusFlagged   = "FLAGGED"
)

// GeoHint is an optional satellite of a DeviceFingerprint.
type GeoHint struct {
	Country *string
	Region  *string
}

// DeviceFingerprint is an optional satellite owned by exactly one Transfer.
// Shared-IP matching compares the IPAddress field across fingerprints.
type DeviceFingerprint struct {
	IPAddress string
	Geo       *GeoHint
}

// Transfer is a money movement between two distinct Persons.
type Transfer struct {
	ID           string
	Type         string
	Status       string
	PayerID      string
	PayeeID      string
	Amount       float64
	Currency     string
	DestAmount   *float64
	DestCurrency *string
	Timestamp    time.Time
	Description  *string
	DeviceID     *string
	PaymentType  *string
	Fingerprint  *DeviceFingerprint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransferPublic carries the transfer fields exposed in connection and path
// results.
type TransferPublic struct {
	ID        string
	Type      string
	Status    string
	Amount    float64
	Currency  string
	Timestamp time.Time
}

// Public projects a Transfer onto its shareable fields.
func (t Transfer) Public() TransferPublic {
	return TransferPublic{
		ID:        t.ID,
		Type:      t.Type,
		Status:    t.Status,
		Amount:    t.Amount,
		Currency:  t.Currency,
		Timestamp: t.Timestamp,
	}
}

// TransferPatch is the upsert payload for a Transfer. Nil means "leave
// unchanged" on update; a nil ID requests a create. The Fingerprint group is
// replaced wholesale when non-nil.
type TransferPatch struct {
	ID           *string
	Type         *string
	Status       *string
	PayerID      *string
	PayeeID      *string
	Amount       *float64
	Currency     *string
	DestAmount   *float64
	DestCurrency *string
	Timestamp    *time.Time
	Description  *string
	DeviceID     *string
	PaymentType  *string
	Fingerprint  *DeviceFingerprint
}

// TransferSummary is the lightweight projection used by list endpoints.
type TransferSummary struct {
	ID        string
	Type      string
	Status    string
	PayerID   string
	PayeeID   string
	Amount    float64
	Currency  string
	Timestamp time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransferListResult captures one page of transfers plus the unpaged total.
type TransferListResult struct {
	Items []TransferSummary
	Total int64
}
