package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apetrenko/linkgraph/internal/domain"
)

// CreatePerson writes a fully resolved person, its satellites, and the
// derived links implied by its attribute values, all in one statement.
func (r *Repository) CreatePerson(ctx context.Context, p domain.Person) error {
	if p.ID == "" {
		return errors.New("person id is required")
	}

	params := map[string]any{
		"personId":    p.ID,
		"firstName":   p.FirstName,
		"lastName":    p.LastName,
		"email":       p.Email,
		"phone":       stringPtrParam(p.Phone),
		"now":         formatTime(p.CreatedAt),
		"address":     addressParams(p.Address),
		"instruments": instrumentParams(p.Instruments),
	}

	res, err := r.client.ExecuteWrite(ctx, createPersonCypher, params)
	if err != nil {
		return fmt.Errorf("create person %s: %w", p.ID, err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("create person %s: no row returned", p.ID)
	}
	return nil
}

// UpdatePerson applies the supplied patch fields to an existing person,
// replaces satellite groups that are present in the patch, and rederives all
// shared-attribute links from the resulting state. Returns false when no
// person with the id exists; in that case nothing was written.
func (r *Repository) UpdatePerson(ctx context.Context, id string, patch domain.PersonPatch, now time.Time) (bool, error) {
	params := map[string]any{
		"personId":           id,
		"firstName":          stringPtrParam(patch.FirstName),
		"lastName":           stringPtrParam(patch.LastName),
		"email":              stringPtrParam(patch.Email),
		"phone":              stringPtrParam(patch.Phone),
		"now":                formatTime(now),
		"replaceAddress":     patch.Address != nil,
		"address":            addressParams(patch.Address),
		"replaceInstruments": patch.Instruments != nil,
		"instruments":        []map[string]any{},
	}
	if patch.Instruments != nil {
		params["instruments"] = instrumentParams(*patch.Instruments)
	}

	res, err := r.client.ExecuteWrite(ctx, updatePersonCypher, params)
	if err != nil {
		return false, fmt.Errorf("update person %s: %w", id, err)
	}
	return len(res.Records) > 0, nil
}

// GetPerson loads a person with its satellites.
func (r *Repository) GetPerson(ctx context.Context, id string) (domain.Person, error) {
	res, err := r.client.ExecuteRead(ctx, getPersonCypher, map[string]any{"personId": id})
	if err != nil {
		return domain.Person{}, fmt.Errorf("get person %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.Person{}, domain.NewNotFoundError("person", id)
	}

	rec := res.Records[0]
	p := domain.Person{
		ID:        toString(rec["personId"]),
		FirstName: toString(rec["firstName"]),
		LastName:  toString(rec["lastName"]),
		Email:     toString(rec["email"]),
		Phone:     toStringPtr(rec["phone"]),
		CreatedAt: toTime(rec["createdAt"]),
		UpdatedAt: toTime(rec["updatedAt"]),
	}

	if addr := toMap(rec["address"]); addr != nil {
		p.Address = &domain.Address{
			Street:     toStringPtr(addr["street"]),
			City:       toStringPtr(addr["city"]),
			Region:     toStringPtr(addr["region"]),
			PostalCode: toStringPtr(addr["postalCode"]),
			Country:    toStringPtr(addr["country"]),
		}
	}

	if raw, ok := rec["instruments"].([]any); ok {
		for _, item := range raw {
			inst := toMap(item)
			if inst == nil {
				continue
			}
			p.Instruments = append(p.Instruments, domain.PaymentInstrument{
				ID:   toString(inst["instrumentId"]),
				Type: toString(inst["instrumentType"]),
			})
		}
	}

	return p, nil
}

// PersonExists probes for a person id without loading satellites.
func (r *Repository) PersonExists(ctx context.Context, id string) (bool, error) {
	res, err := r.client.ExecuteRead(ctx, personExistsCypher, map[string]any{"personId": id})
	if err != nil {
		return false, fmt.Errorf("person exists %s: %w", id, err)
	}
	return len(res.Records) > 0, nil
}

// EmailInUse reports whether any person currently carries the email. The
// check reads committed state only; concurrent creates may still race.
func (r *Repository) EmailInUse(ctx context.Context, email string) (bool, error) {
	res, err := r.client.ExecuteRead(ctx, emailInUseCypher, map[string]any{"email": email})
	if err != nil {
		return false, fmt.Errorf("email in use: %w", err)
	}
	return len(res.Records) > 0, nil
}

func stringPtrParam(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func floatPtrParam(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// addressParams encodes an optional address as a zero-or-one element list so
// the cypher can create it with FOREACH. Only present fields become
// properties.
func addressParams(addr *domain.Address) []map[string]any {
	if addr == nil {
		return []map[string]any{}
	}
	props := map[string]any{}
	setIfPresent(props, "street", addr.Street)
	setIfPresent(props, "city", addr.City)
	setIfPresent(props, "region", addr.Region)
	setIfPresent(props, "postalCode", addr.PostalCode)
	setIfPresent(props, "country", addr.Country)
	return []map[string]any{props}
}

func instrumentParams(instruments []domain.PaymentInstrument) []map[string]any {
	result := make([]map[string]any, 0, len(instruments))
	for _, inst := range instruments {
		result = append(result, map[string]any{
			"instrumentId":   inst.ID,
			"instrumentType": inst.Type,
		})
	}
	return result
}

func setIfPresent(props map[string]any, key string, val *string) {
	if val != nil {
		props[key] = *val
	}
}

// personLinkRules tears down every derived edge touching the person and
// rederives each rule from current attribute values. Derived edges are
// MERGEd on undirected patterns: one edge per matching pair regardless of
// write order, and re-running the rules never duplicates them.
const personLinkRules = `
WITH p
OPTIONAL MATCH (p)-[stale:SHARED_EMAIL|SHARED_PHONE|SHARED_ADDRESS|SHARED_PAYMENT_METHOD]-()
DELETE stale
WITH DISTINCT p
OPTIONAL MATCH (ep:Person) WHERE ep.personId <> p.personId AND ep.email = p.email
WITH p, collect(ep) AS emailPeers
FOREACH (peer IN emailPeers | MERGE (p)-[:SHARED_EMAIL]-(peer))
WITH p
OPTIONAL MATCH (pp:Person) WHERE pp.personId <> p.personId AND pp.phone = p.phone
WITH p, collect(pp) AS phonePeers
FOREACH (peer IN phonePeers | MERGE (p)-[:SHARED_PHONE]-(peer))
WITH p
OPTIONAL MATCH (p)-[:HAS_ADDRESS]->(pa:Address)
OPTIONAL MATCH (ap:Person)-[:HAS_ADDRESS]->(oa:Address)
WHERE ap.personId <> p.personId AND oa.street = pa.street AND oa.city = pa.city
WITH p, collect(DISTINCT ap) AS addressPeers
FOREACH (peer IN addressPeers | MERGE (p)-[:SHARED_ADDRESS]-(peer))
WITH p
OPTIONAL MATCH (p)-[:HAS_INSTRUMENT]->(pi:PaymentInstrument)
OPTIONAL MATCH (pi)<-[:HAS_INSTRUMENT]-(ip:Person) WHERE ip.personId <> p.personId
WITH p, pi, collect(ip) AS instrumentPeers
FOREACH (peer IN instrumentPeers | MERGE (p)-[:SHARED_PAYMENT_METHOD {instrumentId: pi.instrumentId}]-(peer))
WITH DISTINCT p
RETURN p.personId AS personId
`

const createPersonCypher = `
CREATE (p:Person {personId: $personId})
SET p.firstName = $firstName,
    p.lastName = $lastName,
    p.email = $email,
    p.phone = $phone,
    p.createdAt = $now,
    p.updatedAt = $now
FOREACH (addr IN $address |
	CREATE (a:Address)
	SET a += addr
	MERGE (p)-[:HAS_ADDRESS]->(a)
)
FOREACH (inst IN $instruments |
	MERGE (i:PaymentInstrument {instrumentId: inst.instrumentId})
	SET i.instrumentType = inst.instrumentType
	MERGE (p)-[:HAS_INSTRUMENT]->(i)
)` + personLinkRules

const updatePersonCypher = `
MATCH (p:Person {personId: $personId})
SET p.firstName = coalesce($firstName, p.firstName),
    p.lastName = coalesce($lastName, p.lastName),
    p.email = coalesce($email, p.email),
    p.phone = coalesce($phone, p.phone),
    p.updatedAt = $now
WITH p
OPTIONAL MATCH (p)-[:HAS_ADDRESS]->(olda:Address)
FOREACH (a IN CASE WHEN $replaceAddress AND olda IS NOT NULL THEN [olda] ELSE [] END | DETACH DELETE a)
WITH DISTINCT p
FOREACH (addr IN $address |
	CREATE (a:Address)
	SET a += addr
	MERGE (p)-[:HAS_ADDRESS]->(a)
)
WITH p
OPTIONAL MATCH (p)-[oldi:HAS_INSTRUMENT]->(:PaymentInstrument)
FOREACH (r IN CASE WHEN $replaceInstruments AND oldi IS NOT NULL THEN [oldi] ELSE [] END | DELETE r)
WITH DISTINCT p
FOREACH (inst IN $instruments |
	MERGE (i:PaymentInstrument {instrumentId: inst.instrumentId})
	SET i.instrumentType = inst.instrumentType
	MERGE (p)-[:HAS_INSTRUMENT]->(i)
)` + personLinkRules

const getPersonCypher = `
MATCH (p:Person {personId: $personId})
OPTIONAL MATCH (p)-[:HAS_ADDRESS]->(a:Address)
OPTIONAL MATCH (p)-[:HAS_INSTRUMENT]->(i:PaymentInstrument)
RETURN p.personId AS personId,
       p.firstName AS firstName,
       p.lastName AS lastName,
       p.email AS email,
       p.phone AS phone,
       p.createdAt AS createdAt,
       p.updatedAt AS updatedAt,
       a { .street, .city, .region, .postalCode, .country } AS address,
       collect(i { .instrumentId, .instrumentType }) AS instruments
`

const personExistsCypher = `
MATCH (p:Person {personId: $personId})
RETURN p.personId AS personId
LIMIT 1
`

const emailInUseCypher = `
MATCH (p:Person)
WHERE p.email = $email
RETURN p.personId AS personId
LIMIT 1
`
