package repository

import (
	"context"
	"fmt"

	"github.com/apetrenko/linkgraph/internal/domain"
	"github.com/apetrenko/linkgraph/internal/graph"
)

// PersonSharedLinks returns every direct derived edge touching the person,
// with the counterpart's public fields. The pattern is unordered so edges
// are found regardless of which side was written last.
func (r *Repository) PersonSharedLinks(ctx context.Context, personID string) ([]domain.PersonLink, error) {
	res, err := r.client.ExecuteRead(ctx, personSharedLinksCypher, map[string]any{"personId": personID})
	if err != nil {
		return nil, fmt.Errorf("fetch person shared links: %w", err)
	}

	var links []domain.PersonLink
	for _, rec := range res.Records {
		links = append(links, domain.PersonLink{
			Kind:   toString(rec["kind"]),
			Person: personPublicFromRecord(rec),
		})
	}
	return links, nil
}

// PersonSentTransfers returns transfers where the person is payer, joined
// with the payee's public fields and the transfer's satellites.
func (r *Repository) PersonSentTransfers(ctx context.Context, personID string) ([]domain.SentTransfer, error) {
	res, err := r.client.ExecuteRead(ctx, personSentCypher, map[string]any{"personId": personID})
	if err != nil {
		return nil, fmt.Errorf("fetch sent transfers: %w", err)
	}

	var sent []domain.SentTransfer
	for _, rec := range res.Records {
		sent = append(sent, domain.SentTransfer{
			Transfer:    transferPublicFromRecord(rec),
			Payee:       personPublicFromRecord(rec),
			IPAddress:   toString(rec["ipAddress"]),
			GeoCountry:  toString(rec["geoCountry"]),
			GeoRegion:   toString(rec["geoRegion"]),
			PaymentType: toString(rec["paymentType"]),
		})
	}
	return sent, nil
}

// PersonReceivedTransfers is the symmetric view: transfers where the person
// is payee, joined with the payer's public fields.
func (r *Repository) PersonReceivedTransfers(ctx context.Context, personID string) ([]domain.ReceivedTransfer, error) {
	res, err := r.client.ExecuteRead(ctx, personReceivedCypher, map[string]any{"personId": personID})
	if err != nil {
		return nil, fmt.Errorf("fetch received transfers: %w", err)
	}

	var received []domain.ReceivedTransfer
	for _, rec := range res.Records {
		received = append(received, domain.ReceivedTransfer{
			Transfer:    transferPublicFromRecord(rec),
			Payer:       personPublicFromRecord(rec),
			IPAddress:   toString(rec["ipAddress"]),
			GeoCountry:  toString(rec["geoCountry"]),
			GeoRegion:   toString(rec["geoRegion"]),
			PaymentType: toString(rec["paymentType"]),
		})
	}
	return received, nil
}

// PersonIndirectLinks returns persons reachable through a SHARED_IP or
// SHARED_DEVICE edge on one of the subject's transfers, with the number of
// distinct shared transfers backing each link.
func (r *Repository) PersonIndirectLinks(ctx context.Context, personID string) ([]domain.IndirectPerson, error) {
	res, err := r.client.ExecuteRead(ctx, personIndirectCypher, map[string]any{"personId": personID})
	if err != nil {
		return nil, fmt.Errorf("fetch indirect links: %w", err)
	}

	var indirect []domain.IndirectPerson
	for _, rec := range res.Records {
		indirect = append(indirect, domain.IndirectPerson{
			Kind:            toString(rec["kind"]),
			Person:          personPublicFromRecord(rec),
			SharedTransfers: toInt(rec["sharedTransfers"]),
		})
	}
	return indirect, nil
}

// TransferParties returns the payer and payee of a transfer. found is false
// when the transfer id does not resolve.
func (r *Repository) TransferParties(ctx context.Context, transferID string) (payer, payee domain.PersonPublic, found bool, err error) {
	res, err := r.client.ExecuteRead(ctx, transferPartiesCypher, map[string]any{"transferId": transferID})
	if err != nil {
		return domain.PersonPublic{}, domain.PersonPublic{}, false, fmt.Errorf("fetch transfer parties: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.PersonPublic{}, domain.PersonPublic{}, false, nil
	}

	rec := res.Records[0]
	payer = domain.PersonPublic{
		ID:        toString(rec["payerId"]),
		FirstName: toString(rec["payerFirstName"]),
		LastName:  toString(rec["payerLastName"]),
		Email:     toString(rec["payerEmail"]),
	}
	payee = domain.PersonPublic{
		ID:        toString(rec["payeeId"]),
		FirstName: toString(rec["payeeFirstName"]),
		LastName:  toString(rec["payeeLastName"]),
		Email:     toString(rec["payeeEmail"]),
	}
	return payer, payee, true, nil
}

// TransferLinkedTransfers returns every other transfer sharing a device id
// or fingerprint IP with the given transfer, tagged with the edge kind.
func (r *Repository) TransferLinkedTransfers(ctx context.Context, transferID string) ([]domain.LinkedTransfer, error) {
	res, err := r.client.ExecuteRead(ctx, transferLinkedCypher, map[string]any{"transferId": transferID})
	if err != nil {
		return nil, fmt.Errorf("fetch linked transfers: %w", err)
	}

	var linked []domain.LinkedTransfer
	for _, rec := range res.Records {
		linked = append(linked, domain.LinkedTransfer{
			Kind:     toString(rec["kind"]),
			Transfer: transferPublicFromRecord(rec),
		})
	}
	return linked, nil
}

func personPublicFromRecord(rec graph.Record) domain.PersonPublic {
	return domain.PersonPublic{
		ID:        toString(rec["personId"]),
		FirstName: toString(rec["firstName"]),
		LastName:  toString(rec["lastName"]),
		Email:     toString(rec["email"]),
	}
}

func transferPublicFromRecord(rec graph.Record) domain.TransferPublic {
	return domain.TransferPublic{
		ID:        toString(rec["transferId"]),
		Type:      toString(rec["transferType"]),
		Status:    toString(rec["status"]),
		Amount:    toFloat64(rec["amount"]),
		Currency:  toString(rec["currency"]),
		Timestamp: toTime(rec["timestamp"]),
	}
}

const personSharedLinksCypher = `
MATCH (p:Person {personId: $personId})-[r:SHARED_EMAIL|SHARED_PHONE|SHARED_ADDRESS|SHARED_PAYMENT_METHOD]-(other:Person)
RETURN DISTINCT type(r) AS kind,
       other.personId AS personId,
       other.firstName AS firstName,
       other.lastName AS lastName,
       other.email AS email
`

const personSentCypher = `
MATCH (p:Person {personId: $personId})-[:SENT]->(t:Transfer)-[:RECEIVED_BY]->(payee:Person)
OPTIONAL MATCH (t)-[:HAS_FINGERPRINT]->(d:DeviceFingerprint)
OPTIONAL MATCH (d)-[:HAS_GEO]->(g:GeoHint)
RETURN t.transferId AS transferId,
       t.transferType AS transferType,
       t.status AS status,
       t.amount AS amount,
       t.currency AS currency,
       t.timestamp AS timestamp,
       t.paymentType AS paymentType,
       payee.personId AS personId,
       payee.firstName AS firstName,
       payee.lastName AS lastName,
       payee.email AS email,
       d.ipAddress AS ipAddress,
       g.country AS geoCountry,
       g.region AS geoRegion
ORDER BY t.timestamp DESC
`

const personReceivedCypher = `
MATCH (payer:Person)-[:SENT]->(t:Transfer)-[:RECEIVED_BY]->(p:Person {personId: $personId})
OPTIONAL MATCH (t)-[:HAS_FINGERPRINT]->(d:DeviceFingerprint)
OPTIONAL MATCH (d)-[:HAS_GEO]->(g:GeoHint)
RETURN t.transferId AS transferId,
       t.transferType AS transferType,
       t.status AS status,
       t.amount AS amount,
       t.currency AS currency,
       t.timestamp AS timestamp,
       t.paymentType AS paymentType,
       payer.personId AS personId,
       payer.firstName AS firstName,
       payer.lastName AS lastName,
       payer.email AS email,
       d.ipAddress AS ipAddress,
       g.country AS geoCountry,
       g.region AS geoRegion
ORDER BY t.timestamp DESC
`

const personIndirectCypher = `
MATCH (p:Person {personId: $personId})-[:SENT|RECEIVED_BY]-(t:Transfer)-[r:SHARED_IP|SHARED_DEVICE]-(ot:Transfer)-[:SENT|RECEIVED_BY]-(other:Person)
WHERE other.personId <> $personId
RETURN type(r) AS kind,
       other.personId AS personId,
       other.firstName AS firstName,
       other.lastName AS lastName,
       other.email AS email,
       count(DISTINCT ot) AS sharedTransfers
`

const transferPartiesCypher = `
MATCH (t:Transfer {transferId: $transferId})
OPTIONAL MATCH (payer:Person)-[:SENT]->(t)
OPTIONAL MATCH (t)-[:RECEIVED_BY]->(payee:Person)
RETURN payer.personId AS payerId,
       payer.firstName AS payerFirstName,
       payer.lastName AS payerLastName,
       payer.email AS payerEmail,
       payee.personId AS payeeId,
       payee.firstName AS payeeFirstName,
       payee.lastName AS payeeLastName,
       payee.email AS payeeEmail
`

const transferLinkedCypher = `
MATCH (t:Transfer {transferId: $transferId})-[r:SHARED_IP|SHARED_DEVICE]-(other:Transfer)
RETURN DISTINCT type(r) AS kind,
       other.transferId AS transferId,
       other.transferType AS transferType,
       other.status AS status,
       other.amount AS amount,
       other.currency AS currency,
       other.timestamp AS timestamp
`
