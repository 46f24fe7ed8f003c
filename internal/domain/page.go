package domain

// PageMeta describes the position of one page within a filtered listing.
type PageMeta struct {
	Page        int
	PageSize    int
	TotalItems  int64
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}
