package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apetrenko/linkgraph/internal/domain"
)

// ListPersonsOptions defines filters and pagination for person listing.
type ListPersonsOptions struct {
	Offset         int
	Limit          int
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

// ListTransfersOptions defines filters and pagination for transfer listing.
// PersonID matches either role; PayerID and PayeeID pin one role each.
type ListTransfersOptions struct {
	Offset      int
	Limit       int
	PersonID    string
	PayerID     string
	PayeeID     string
	Status      string
	Type        string
	Currency    string
	PaymentType string
	MinAmount   float64
	MaxAmount   float64
	Search      string
	StartTs     *time.Time
	EndTs       *time.Time
	SortField   string
	SortOrder   string
}

// ListPersons returns one page of persons matching the provided filters plus
// the unpaged total.
func (r *Repository) ListPersons(ctx context.Context, opts ListPersonsOptions) (domain.PersonListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	createdFrom := ""
	createdTo := ""
	if opts.CreatedFrom != nil {
		createdFrom = formatTime(*opts.CreatedFrom)
	}
	if opts.CreatedTo != nil {
		createdTo = formatTime(*opts.CreatedTo)
	}

	params := map[string]any{
		"search":         strings.ToLower(strings.TrimSpace(opts.Search)),
		"email":          strings.ToLower(strings.TrimSpace(opts.Email)),
		"phone":          strings.TrimSpace(opts.Phone),
		"country":        strings.ToLower(strings.TrimSpace(opts.Country)),
		"city":           strings.ToLower(strings.TrimSpace(opts.City)),
		"instrumentType": strings.ToUpper(strings.TrimSpace(opts.InstrumentType)),
		"createdFrom":    createdFrom,
		"createdTo":      createdTo,
		"skip":           offset,
		"limit":          limit,
	}

	query := fmt.Sprintf(listPersonsCypherTemplate, personFilterClause, personOrderClause(opts.SortField, opts.SortOrder))
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return domain.PersonListResult{}, fmt.Errorf("list persons query: %w", err)
	}

	var persons []domain.PersonSummary
	for _, record := range res.Records {
		item := domain.PersonSummary{
			ID:        toString(record["personId"]),
			FirstName: toString(record["firstName"]),
			LastName:  toString(record["lastName"]),
			Email:     toString(record["email"]),
			Phone:     toString(record["phone"]),
		}
		if created := toTimePtr(record["createdAt"]); created != nil {
			item.CreatedAt = *created
		}
		if updated := toTimePtr(record["updatedAt"]); updated != nil {
			item.UpdatedAt = *updated
		}
		persons = append(persons, item)
	}

	countQuery := fmt.Sprintf(countPersonsCypherTemplate, personFilterClause)
	countRes, err := r.client.ExecuteRead(ctx, countQuery, params)
	if err != nil {
		return domain.PersonListResult{}, fmt.Errorf("count persons query: %w", err)
	}

	var total int64
	if len(countRes.Records) > 0 {
		total = toInt64(countRes.Records[0]["total"])
	}

	return domain.PersonListResult{
		Items: persons,
		Total: total,
	}, nil
}

// ListTransfers returns one page of transfers matching the provided filters
// plus the unpaged total.
func (r *Repository) ListTransfers(ctx context.Context, opts ListTransfersOptions) (domain.TransferListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	start := ""
	end := ""
	if opts.StartTs != nil {
		start = formatTime(*opts.StartTs)
	}
	if opts.EndTs != nil {
		end = formatTime(*opts.EndTs)
	}

	params := map[string]any{
		"personId":    strings.TrimSpace(opts.PersonID),
		"payerId":     strings.TrimSpace(opts.PayerID),
		"payeeId":     strings.TrimSpace(opts.PayeeID),
		"status":      strings.ToUpper(strings.TrimSpace(opts.Status)),
		"type":        strings.ToUpper(strings.TrimSpace(opts.Type)),
		"currency":    strings.ToUpper(strings.TrimSpace(opts.Currency)),
		"paymentType": strings.ToUpper(strings.TrimSpace(opts.PaymentType)),
		"minAmount":   opts.MinAmount,
		"maxAmount":   opts.MaxAmount,
		"search":      strings.ToLower(strings.TrimSpace(opts.Search)),
		"startTs":     start,
		"endTs":       end,
		"skip":        offset,
		"limit":       limit,
	}

	query := fmt.Sprintf(listTransfersCypherTemplate, transferFilterClause, transferOrderClause(opts.SortField, opts.SortOrder))
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return domain.TransferListResult{}, fmt.Errorf("list transfers query: %w", err)
	}

	var transfers []domain.TransferSummary
	for _, record := range res.Records {
		transfers = append(transfers, transferSummaryFromRecord(record))
	}

	countQuery := fmt.Sprintf(countTransfersCypherTemplate, transferFilterClause)
	countRes, err := r.client.ExecuteRead(ctx, countQuery, params)
	if err != nil {
		return domain.TransferListResult{}, fmt.Errorf("count transfers query: %w", err)
	}

	var total int64
	if len(countRes.Records) > 0 {
		total = toInt64(countRes.Records[0]["total"])
	}

	return domain.TransferListResult{
		Items: transfers,
		Total: total,
	}, nil
}

// ExportPersons streams every person summary ordered by id.
func (r *Repository) ExportPersons(ctx context.Context) ([]domain.PersonSummary, error) {
	res, err := r.client.ExecuteRead(ctx, exportPersonsCypher, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("export persons query: %w", err)
	}

	var persons []domain.PersonSummary
	for _, record := range res.Records {
		item := domain.PersonSummary{
			ID:        toString(record["personId"]),
			FirstName: toString(record["firstName"]),
			LastName:  toString(record["lastName"]),
			Email:     toString(record["email"]),
			Phone:     toString(record["phone"]),
		}
		if created := toTimePtr(record["createdAt"]); created != nil {
			item.CreatedAt = *created
		}
		if updated := toTimePtr(record["updatedAt"]); updated != nil {
			item.UpdatedAt = *updated
		}
		persons = append(persons, item)
	}
	return persons, nil
}

// ExportTransfers streams every transfer summary, newest first.
func (r *Repository) ExportTransfers(ctx context.Context) ([]domain.TransferSummary, error) {
	res, err := r.client.ExecuteRead(ctx, exportTransfersCypher, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("export transfers query: %w", err)
	}

	var transfers []domain.TransferSummary
	for _, record := range res.Records {
		transfers = append(transfers, transferSummaryFromRecord(record))
	}
	return transfers, nil
}

func transferSummaryFromRecord(record map[string]any) domain.TransferSummary {
	item := domain.TransferSummary{
		ID:       toString(record["transferId"]),
		Type:     toString(record["transferType"]),
		Status:   toString(record["status"]),
		PayerID:  toString(record["payerId"]),
		PayeeID:  toString(record["payeeId"]),
		Amount:   toFloat64(record["amount"]),
		Currency: toString(record["currency"]),
	}
	if ts := toTimePtr(record["timestamp"]); ts != nil {
		item.Timestamp = *ts
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		item.CreatedAt = *created
	}
	if updated := toTimePtr(record["updatedAt"]); updated != nil {
		item.UpdatedAt = *updated
	}
	return item
}

const listPersonsCypherTemplate = `
MATCH (p:Person)
%s
RETURN p.personId AS personId,
       p.firstName AS firstName,
       p.lastName AS lastName,
       p.email AS email,
       p.phone AS phone,
       p.createdAt AS createdAt,
       p.updatedAt AS updatedAt
ORDER BY %s
SKIP $skip LIMIT $limit
`

const countPersonsCypherTemplate = `
MATCH (p:Person)
%s
RETURN count(p) AS total
`

const listTransfersCypherTemplate = `
MATCH (t:Transfer)
%s
RETURN t.transferId AS transferId,
       t.transferType AS transferType,
       t.status AS status,
       t.amount AS amount,
       t.currency AS currency,
       t.timestamp AS timestamp,
       t.createdAt AS createdAt,
       t.updatedAt AS updatedAt,
       head([(payer:Person)-[:SENT]->(t) | payer.personId]) AS payerId,
       head([(t)-[:RECEIVED_BY]->(payee:Person) | payee.personId]) AS payeeId
ORDER BY %s
SKIP $skip LIMIT $limit
`

const countTransfersCypherTemplate = `
MATCH (t:Transfer)
%s
RETURN count(t) AS total
`

const personFilterClause = `
WHERE ($search = "" OR toLower(p.firstName) CONTAINS $search OR toLower(p.lastName) CONTAINS $search OR toLower(p.email) CONTAINS $search OR toLower(p.personId) CONTAINS $search)
  AND ($email = "" OR toLower(p.email) = $email)
  AND ($phone = "" OR coalesce(p.phone, "") = $phone)
  AND ($country = "" OR EXISTS { MATCH (p)-[:HAS_ADDRESS]->(a:Address) WHERE toLower(coalesce(a.country, "")) = $country })
  AND ($city = "" OR EXISTS { MATCH (p)-[:HAS_ADDRESS]->(a:Address) WHERE toLower(coalesce(a.city, "")) = $city })
  AND ($instrumentType = "" OR EXISTS { MATCH (p)-[:HAS_INSTRUMENT]->(i:PaymentInstrument) WHERE toUpper(coalesce(i.instrumentType, "")) = $instrumentType })
  AND ($createdFrom = "" OR p.createdAt >= $createdFrom)
  AND ($createdTo = "" OR p.createdAt <= $createdTo)
`

const transferFilterClause = `
WHERE ($status = "" OR toUpper(t.status) = $status)
  AND ($type = "" OR toUpper(t.transferType) = $type)
  AND ($currency = "" OR toUpper(t.currency) = $currency)
  AND ($paymentType = "" OR toUpper(coalesce(t.paymentType, "")) = $paymentType)
  AND ($minAmount <= 0 OR coalesce(t.amount, 0.0) >= $minAmount)
  AND ($maxAmount <= 0 OR coalesce(t.amount, 0.0) <= $maxAmount)
  AND (
    $search = ""
    OR toLower(t.transferId) CONTAINS $search
    OR toLower(coalesce(t.description, "")) CONTAINS $search
    OR EXISTS {
      MATCH (party:Person)-[:SENT|RECEIVED_BY]-(t)
      WHERE toLower(party.personId) CONTAINS $search
        OR toLower(coalesce(party.email, "")) CONTAINS $search
    }
  )
  AND ($personId = "" OR EXISTS { MATCH (p:Person {personId: $personId})-[:SENT|RECEIVED_BY]-(t) })
  AND ($payerId = "" OR EXISTS { MATCH (:Person {personId: $payerId})-[:SENT]->(t) })
  AND ($payeeId = "" OR EXISTS { MATCH (t)-[:RECEIVED_BY]->(:Person {personId: $payeeId}) })
  AND ($startTs = "" OR t.timestamp >= $startTs)
  AND ($endTs = "" OR t.timestamp <= $endTs)
`

const exportPersonsCypher = `
MATCH (p:Person)
RETURN p.personId AS personId,
       p.firstName AS firstName,
       p.lastName AS lastName,
       p.email AS email,
       p.phone AS phone,
       p.createdAt AS createdAt,
       p.updatedAt AS updatedAt
ORDER BY p.personId
`

const exportTransfersCypher = `
MATCH (t:Transfer)
RETURN t.transferId AS transferId,
       t.transferType AS transferType,
       t.status AS status,
       t.amount AS amount,
       t.currency AS currency,
       t.timestamp AS timestamp,
       t.createdAt AS createdAt,
       t.updatedAt AS updatedAt,
       head([(payer:Person)-[:SENT]->(t) | payer.personId]) AS payerId,
       head([(t)-[:RECEIVED_BY]->(payee:Person) | payee.personId]) AS payeeId
ORDER BY t.timestamp DESC
`

func personOrderClause(field, order string) string {
	dir := "ASC"
	if strings.EqualFold(order, "DESC") {
		dir = "DESC"
	}
	switch strings.ToLower(field) {
	case "firstname":
		return fmt.Sprintf("toLower(p.firstName) %s", dir)
	case "lastname":
		return fmt.Sprintf("toLower(p.lastName) %s", dir)
	case "email":
		return fmt.Sprintf("toLower(p.email) %s", dir)
	case "createdat":
		return fmt.Sprintf("p.createdAt %s", dir)
	case "updatedat":
		return fmt.Sprintf("p.updatedAt %s", dir)
	default:
		return fmt.Sprintf("p.personId %s", dir)
	}
}

func transferOrderClause(field, order string) string {
	dir := "DESC"
	if strings.EqualFold(order, "ASC") {
		dir = "ASC"
	}
	switch strings.ToLower(field) {
	case "amount":
		return fmt.Sprintf("coalesce(t.amount, 0.0) %s", dir)
	case "status":
		return fmt.Sprintf("toUpper(t.status) %s", dir)
	case "type":
		return fmt.Sprintf("toUpper(t.transferType) %s", dir)
	case "createdat":
		return fmt.Sprintf("t.createdAt %s", dir)
	default:
		return fmt.Sprintf("t.timestamp %s", dir)
	}
}
