package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apetrenko/linkgraph/internal/domain"
)

// CreateTransfer writes a fully resolved transfer. The payer and payee are
// matched inside the statement, so if either has vanished since validation
// the write is a no-op and false is returned. SENT and RECEIVED_BY are
// MERGEd so exactly one pair exists per transfer.
func (r *Repository) CreateTransfer(ctx context.Context, t domain.Transfer) (bool, error) {
	if t.ID == "" {
		return false, errors.New("transfer id is required")
	}
	if t.PayerID == "" || t.PayeeID == "" {
		return false, errors.New("payer and payee ids are required")
	}

	params := map[string]any{
		"transferId":  t.ID,
		"payerId":     t.PayerID,
		"payeeId":     t.PayeeID,
		"props":       transferProps(t),
		"fingerprint": fingerprintParams(t.Fingerprint),
	}

	res, err := r.client.ExecuteWrite(ctx, createTransferCypher, params)
	if err != nil {
		return false, fmt.Errorf("create transfer %s: %w", t.ID, err)
	}
	return len(res.Records) > 0, nil
}

// UpdateTransfer applies the supplied patch fields to an existing transfer.
// When a payer or payee id is supplied the old flow edge is torn down and
// rebuilt against the new person; the fingerprint satellite is replaced when
// the group is present. Shared-attribute links are rederived from the final
// state. Returns false when the transfer id does not exist.
func (r *Repository) UpdateTransfer(ctx context.Context, id string, patch domain.TransferPatch, now time.Time) (bool, error) {
	ts := formatTimePtr(patch.Timestamp)

	params := map[string]any{
		"transferId":         id,
		"transferType":       stringPtrParam(patch.Type),
		"status":             stringPtrParam(patch.Status),
		"payerId":            stringPtrParam(patch.PayerID),
		"payeeId":            stringPtrParam(patch.PayeeID),
		"amount":             floatPtrParam(patch.Amount),
		"currency":           stringPtrParam(patch.Currency),
		"destAmount":         floatPtrParam(patch.DestAmount),
		"destCurrency":       stringPtrParam(patch.DestCurrency),
		"timestamp":          ts,
		"description":        stringPtrParam(patch.Description),
		"deviceId":           stringPtrParam(patch.DeviceID),
		"paymentType":        stringPtrParam(patch.PaymentType),
		"now":                formatTime(now),
		"replaceFingerprint": patch.Fingerprint != nil,
		"fingerprint":        fingerprintParams(patch.Fingerprint),
	}

	res, err := r.client.ExecuteWrite(ctx, updateTransferCypher, params)
	if err != nil {
		return false, fmt.Errorf("update transfer %s: %w", id, err)
	}
	return len(res.Records) > 0, nil
}

// GetTransfer loads a transfer with its flow endpoints and satellites.
func (r *Repository) GetTransfer(ctx context.Context, id string) (domain.Transfer, error) {
	res, err := r.client.ExecuteRead(ctx, getTransferCypher, map[string]any{"transferId": id})
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("get transfer %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.Transfer{}, domain.NewNotFoundError("transfer", id)
	}

	rec := res.Records[0]
	t := domain.Transfer{
		ID:           toString(rec["transferId"]),
		Type:         toString(rec["transferType"]),
		Status:       toString(rec["status"]),
		PayerID:      toString(rec["payerId"]),
		PayeeID:      toString(rec["payeeId"]),
		Amount:       toFloat64(rec["amount"]),
		Currency:     toString(rec["currency"]),
		DestAmount:   toFloat64Ptr(rec["destAmount"]),
		DestCurrency: toStringPtr(rec["destCurrency"]),
		Timestamp:    toTime(rec["timestamp"]),
		Description:  toStringPtr(rec["description"]),
		DeviceID:     toStringPtr(rec["deviceId"]),
		PaymentType:  toStringPtr(rec["paymentType"]),
		CreatedAt:    toTime(rec["createdAt"]),
		UpdatedAt:    toTime(rec["updatedAt"]),
	}

	if ip := toString(rec["ipAddress"]); ip != "" {
		fp := &domain.DeviceFingerprint{IPAddress: ip}
		if geo := toMap(rec["geo"]); geo != nil {
			fp.Geo = &domain.GeoHint{
				Country: toStringPtr(geo["country"]),
				Region:  toStringPtr(geo["region"]),
			}
		}
		t.Fingerprint = fp
	}

	return t, nil
}

func transferProps(t domain.Transfer) map[string]any {
	return map[string]any{
		"transferType": t.Type,
		"status":       t.Status,
		"amount":       t.Amount,
		"currency":     t.Currency,
		"destAmount":   floatPtrParam(t.DestAmount),
		"destCurrency": stringPtrParam(t.DestCurrency),
		"timestamp":    formatTime(t.Timestamp),
		"description":  stringPtrParam(t.Description),
		"deviceId":     stringPtrParam(t.DeviceID),
		"paymentType":  stringPtrParam(t.PaymentType),
		"createdAt":    formatTime(t.CreatedAt),
		"updatedAt":    formatTime(t.UpdatedAt),
	}
}

// fingerprintParams encodes the optional fingerprint as a zero-or-one
// element list, with its optional geo hint nested the same way.
func fingerprintParams(fp *domain.DeviceFingerprint) []map[string]any {
	if fp == nil {
		return []map[string]any{}
	}
	geo := []map[string]any{}
	if fp.Geo != nil {
		props := map[string]any{}
		setIfPresent(props, "country", fp.Geo.Country)
		setIfPresent(props, "region", fp.Geo.Region)
		geo = append(geo, props)
	}
	return []map[string]any{{
		"ipAddress": fp.IPAddress,
		"geo":       geo,
	}}
}

// transferLinkRules mirrors personLinkRules for the transfer-side rules:
// tear down SHARED_IP and SHARED_DEVICE edges touching the transfer, then
// rederive both rules from the current fingerprint and device id.
const transferLinkRules = `
WITH t
OPTIONAL MATCH (t)-[stale:SHARED_IP|SHARED_DEVICE]-()
DELETE stale
WITH DISTINCT t
OPTIONAL MATCH (t)-[:HAS_FINGERPRINT]->(tf:DeviceFingerprint)
OPTIONAL MATCH (ot:Transfer)-[:HAS_FINGERPRINT]->(of:DeviceFingerprint)
WHERE ot.transferId <> t.transferId AND of.ipAddress = tf.ipAddress
WITH t, collect(DISTINCT ot) AS ipPeers
FOREACH (peer IN ipPeers | MERGE (t)-[:SHARED_IP]-(peer))
WITH t
OPTIONAL MATCH (od:Transfer) WHERE od.transferId <> t.transferId AND od.deviceId = t.deviceId
WITH t, collect(od) AS devicePeers
FOREACH (peer IN devicePeers | MERGE (t)-[:SHARED_DEVICE]-(peer))
WITH DISTINCT t
RETURN t.transferId AS transferId
`

const createTransferCypher = `
MATCH (payer:Person {personId: $payerId})
MATCH (payee:Person {personId: $payeeId})
CREATE (t:Transfer {transferId: $transferId})
SET t += $props
MERGE (payer)-[:SENT]->(t)
MERGE (t)-[:RECEIVED_BY]->(payee)
FOREACH (fp IN $fingerprint |
	CREATE (d:DeviceFingerprint)
	SET d.ipAddress = fp.ipAddress
	MERGE (t)-[:HAS_FINGERPRINT]->(d)
	FOREACH (geo IN fp.geo |
		CREATE (g:GeoHint)
		SET g += geo
		MERGE (d)-[:HAS_GEO]->(g)
	)
)` + transferLinkRules

const updateTransferCypher = `
MATCH (t:Transfer {transferId: $transferId})
SET t.transferType = coalesce($transferType, t.transferType),
    t.status = coalesce($status, t.status),
    t.amount = coalesce($amount, t.amount),
    t.currency = coalesce($currency, t.currency),
    t.destAmount = coalesce($destAmount, t.destAmount),
    t.destCurrency = coalesce($destCurrency, t.destCurrency),
    t.timestamp = coalesce($timestamp, t.timestamp),
    t.description = coalesce($description, t.description),
    t.deviceId = coalesce($deviceId, t.deviceId),
    t.paymentType = coalesce($paymentType, t.paymentType),
    t.updatedAt = $now
WITH t
OPTIONAL MATCH (np:Person {personId: coalesce($payerId, "")})
OPTIONAL MATCH (t)<-[oldSent:SENT]-(:Person)
FOREACH (r IN CASE WHEN np IS NOT NULL AND oldSent IS NOT NULL THEN [oldSent] ELSE [] END | DELETE r)
FOREACH (payer IN CASE WHEN np IS NULL THEN [] ELSE [np] END | MERGE (payer)-[:SENT]->(t))
WITH DISTINCT t
OPTIONAL MATCH (ne:Person {personId: coalesce($payeeId, "")})
OPTIONAL MATCH (t)-[oldRecv:RECEIVED_BY]->(:Person)
FOREACH (r IN CASE WHEN ne IS NOT NULL AND oldRecv IS NOT NULL THEN [oldRecv] ELSE [] END | DELETE r)
FOREACH (payee IN CASE WHEN ne IS NULL THEN [] ELSE [ne] END | MERGE (t)-[:RECEIVED_BY]->(payee))
WITH DISTINCT t
OPTIONAL MATCH (t)-[:HAS_FINGERPRINT]->(oldfp:DeviceFingerprint)
OPTIONAL MATCH (oldfp)-[:HAS_GEO]->(oldgeo:GeoHint)
FOREACH (g IN CASE WHEN $replaceFingerprint AND oldgeo IS NOT NULL THEN [oldgeo] ELSE [] END | DETACH DELETE g)
FOREACH (d IN CASE WHEN $replaceFingerprint AND oldfp IS NOT NULL THEN [oldfp] ELSE [] END | DETACH DELETE d)
WITH DISTINCT t
FOREACH (fp IN $fingerprint |
	CREATE (d:DeviceFingerprint)
	SET d.ipAddress = fp.ipAddress
	MERGE (t)-[:HAS_FINGERPRINT]->(d)
	FOREACH (geo IN fp.geo |
		CREATE (g:GeoHint)
		SET g += geo
		MERGE (d)-[:HAS_GEO]->(g)
	)
)` + transferLinkRules

const getTransferCypher = `
MATCH (t:Transfer {transferId: $transferId})
OPTIONAL MATCH (payer:Person)-[:SENT]->(t)
OPTIONAL MATCH (t)-[:RECEIVED_BY]->(payee:Person)
OPTIONAL MATCH (t)-[:HAS_FINGERPRINT]->(d:DeviceFingerprint)
OPTIONAL MATCH (d)-[:HAS_GEO]->(g:GeoHint)
RETURN t.transferId AS transferId,
       t.transferType AS transferType,
       t.status AS status,
       t.amount AS amount,
       t.currency AS currency,
       t.destAmount AS destAmount,
       t.destCurrency AS destCurrency,
       t.timestamp AS timestamp,
       t.description AS description,
       t.deviceId AS deviceId,
       t.paymentType AS paymentType,
       t.createdAt AS createdAt,
       t.updatedAt AS updatedAt,
       payer.personId AS payerId,
       payee.personId AS payeeId,
       d.ipAddress AS ipAddress,
       g { .country, .region } AS geo
`

