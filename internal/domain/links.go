package domain

// Edge kinds persisted in the graph. Together with the two entity node kinds
// and their satellites this vocabulary is the durable contract that external
// tooling (visualization front-ends, exporters) depends on.
const (
	// Flow edges, created exactly once per transfer.
	EdgeSent       = "SENT"        // Person -> Transfer
	EdgeReceivedBy = "RECEIVED_BY" // Transfer -> Person

	// Derived person-to-person links, symmetric in effect.
	EdgeSharedEmail         = "SHARED_EMAIL"
	EdgeSharedPhone         = "SHARED_PHONE"
	EdgeSharedAddress       = "SHARED_ADDRESS"
	EdgeSharedPaymentMethod = "SHARED_PAYMENT_METHOD"

	// Derived transfer-to-transfer links, symmetric in effect.
	EdgeSharedIP     = "SHARED_IP"
	EdgeSharedDevice = "SHARED_DEVICE"

	// Ownership edges; satellites are reachable only through these.
	EdgeHasAddress     = "HAS_ADDRESS"
	EdgeHasInstrument  = "HAS_INSTRUMENT"
	EdgeHasFingerprint = "HAS_FINGERPRINT"
	EdgeHasGeo         = "HAS_GEO"
)

// PersonLink is a direct derived edge between two persons.
type PersonLink struct {
	Kind   string
	Person PersonPublic
}

// SentTransfer joins an outgoing transfer with its payee.
type SentTransfer struct {
	Transfer    TransferPublic
	Payee       PersonPublic
	IPAddress   string
	GeoCountry  string
	GeoRegion   string
	PaymentType string
}

// ReceivedTransfer joins an incoming transfer with its payer.
type ReceivedTransfer struct {
	Transfer    TransferPublic
	Payer       PersonPublic
	IPAddress   string
	GeoCountry  string
	GeoRegion   string
	PaymentType string
}

// IndirectPerson is a person reached through a SHARED_IP or SHARED_DEVICE
// edge on one of the subject's transfers, with the number of distinct
// transfers that produced the link.
type IndirectPerson struct {
	Kind            string
	Person          PersonPublic
	SharedTransfers int
}

// PersonConnections is the one-hop fan-out around a person.
type PersonConnections struct {
	PersonID string
	Links    []PersonLink
	Sent     []SentTransfer
	Received []ReceivedTransfer
	Indirect []IndirectPerson
}

// LinkedTransfer is another transfer sharing a device id or fingerprint IP.
type LinkedTransfer struct {
	Kind     string
	Transfer TransferPublic
}

// TransferConnections is the one-hop fan-out around a transfer.
type TransferConnections struct {
	TransferID string
	Payer      PersonPublic
	Payee      PersonPublic
	Linked     []LinkedTransfer
}
