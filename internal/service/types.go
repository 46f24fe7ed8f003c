package service

import (
	"time"

	"github.com/apetrenko/linkgraph/internal/domain"
)

// UpsertResult reports the outcome of an upsert: the entity id (minted on
// create) and whether a new entity was created.
type UpsertResult struct {
	ID    string
	IsNew bool
}

// ListPersonsParams defines filters for listing persons.
type ListPersonsParams struct {
	Page           int
	PageSize       int
	Search         string
	Email          string
	Phone          string
	Country        string
	City           string
	InstrumentType string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	SortField      string
	SortOrder      string
}

// ListTransfersParams defines filters for listing transfers. PersonID matches
// transfers where the person plays either role; PayerID and PayeeID pin one
// role each.
type ListTransfersParams struct {
	Page        int
	PageSize    int
	Search      string
	PersonID    string
	PayerID     string
	PayeeID     string
	Status      string
	Type        string
	Currency    string
	PaymentType string
	MinAmount   *float64
	MaxAmount   *float64
	StartTime   *time.Time
	EndTime     *time.Time
	SortField   string
	SortOrder   string
}

// PersonsPage represents paginated persons with metadata.
type PersonsPage struct {
	Items      []domain.PersonSummary
	Pagination domain.PageMeta
}

// TransfersPage represents paginated transfers with metadata.
type TransfersPage struct {
	Items      []domain.TransferSummary
	Pagination domain.PageMeta
}
