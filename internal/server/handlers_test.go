package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/apetrenko/linkgraph/internal/domain"
	"github.com/apetrenko/linkgraph/internal/repository"
	"github.com/apetrenko/linkgraph/internal/service"
)

type apiStubRepo struct {
	knownPersons   map[string]bool
	knownTransfers map[string]bool
	emailInUse     bool

	person       domain.Person
	transfer     domain.Transfer
	rawPath      domain.RawPath
	rawPathFound bool

	personLinks     []domain.PersonLink
	sentTransfers   []domain.SentTransfer
	received        []domain.ReceivedTransfer
	indirect        []domain.IndirectPerson
	linkedTransfers []domain.LinkedTransfer

	personsList   domain.PersonListResult
	transfersList domain.TransferListResult
	exportPersons []domain.PersonSummary
	exportTx      []domain.TransferSummary
}

func (a *apiStubRepo) CreatePerson(context.Context, domain.Person) error { return nil }
func (a *apiStubRepo) UpdatePerson(_ context.Context, id string, _ domain.PersonPatch, _ time.Time) (bool, error) {
	return a.knownPersons[id], nil
}
func (a *apiStubRepo) GetPerson(_ context.Context, id string) (domain.Person, error) {
	if !a.knownPersons[id] {
		return domain.Person{}, domain.NewNotFoundError("person", id)
	}
	return a.person, nil
}
func (a *apiStubRepo) PersonExists(_ context.Context, id string) (bool, error) {
	return a.knownPersons[id], nil
}
func (a *apiStubRepo) EmailInUse(context.Context, string) (bool, error) { return a.emailInUse, nil }
func (a *apiStubRepo) CreateTransfer(context.Context, domain.Transfer) (bool, error) {
	return true, nil
}
func (a *apiStubRepo) UpdateTransfer(_ context.Context, id string, _ domain.TransferPatch, _ time.Time) (bool, error) {
	return a.knownTransfers[id], nil
}
func (a *apiStubRepo) GetTransfer(_ context.Context, id string) (domain.Transfer, error) {
	if !a.knownTransfers[id] {
		return domain.Transfer{}, domain.NewNotFoundError("transfer", id)
	}
	return a.transfer, nil
}
func (a *apiStubRepo) PersonSharedLinks(context.Context, string) ([]domain.PersonLink, error) {
	return a.personLinks, nil
}
func (a *apiStubRepo) PersonSentTransfers(context.Context, string) ([]domain.SentTransfer, error) {
	return a.sentTransfers, nil
}
func (a *apiStubRepo) PersonReceivedTransfers(context.Context, string) ([]domain.ReceivedTransfer, error) {
	return a.received, nil
}
func (a *apiStubRepo) PersonIndirectLinks(context.Context, string) ([]domain.IndirectPerson, error) {
	return a.indirect, nil
}
func (a *apiStubRepo) TransferParties(_ context.Context, id string) (domain.PersonPublic, domain.PersonPublic, bool, error) {
	if !a.knownTransfers[id] {
		return domain.PersonPublic{}, domain.PersonPublic{}, false, nil
	}
	return domain.PersonPublic{ID: a.transfer.PayerID}, domain.PersonPublic{ID: a.transfer.PayeeID}, true, nil
}
func (a *apiStubRepo) TransferLinkedTransfers(context.Context, string) ([]domain.LinkedTransfer, error) {
	return a.linkedTransfers, nil
}
func (a *apiStubRepo) RawShortestPathBetweenPersons(context.Context, string, string) (domain.RawPath, bool, error) {
	return a.rawPath, a.rawPathFound, nil
}
func (a *apiStubRepo) ListPersons(context.Context, repository.ListPersonsOptions) (domain.PersonListResult, error) {
	return a.personsList, nil
}
func (a *apiStubRepo) ListTransfers(context.Context, repository.ListTransfersOptions) (domain.TransferListResult, error) {
	return a.transfersList, nil
}
func (a *apiStubRepo) ExportPersons(context.Context) ([]domain.PersonSummary, error) {
	return a.exportPersons, nil
}
func (a *apiStubRepo) ExportTransfers(context.Context) ([]domain.TransferSummary, error) {
	return a.exportTx, nil
}

func newTestHandlers(repo *apiStubRepo, opts ...service.Option) *APIHandlers {
	if repo.knownPersons == nil {
		repo.knownPersons = map[string]bool{}
	}
	if repo.knownTransfers == nil {
		repo.knownTransfers = map[string]bool{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewLinkService(repo, logger, opts...)
	return NewAPIHandlers(logger, svc)
}

func TestHandleShortestPath(t *testing.T) {
	repo := &apiStubRepo{
		knownPersons: map[string]bool{"P-1": true, "P-2": true},
		rawPathFound: true,
		rawPath: domain.RawPath{
			Nodes: []domain.PathNode{
				{ID: "P-1", Kind: "Person", Label: "Jane Doe"},
				{ID: "T-1", Kind: "Transfer", Label: "PAYMENT"},
				{ID: "P-2", Kind: "Person", Label: "John Smith"},
			},
			Edges: []domain.PathEdge{
				{Type: domain.EdgeSent, Source: "P-1", Target: "T-1"},
				{Type: domain.EdgeReceivedBy, Source: "T-1", Target: "P-2"},
			},
			Hops: 2,
		},
	}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/analytics/shortest-path?fromPersonId=P-1&toPersonId=P-2", nil)
	rec := httptest.NewRecorder()

	handlers.handleShortestPath(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload pathResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Length != 2 {
		t.Fatalf("expected length 2, got %d", payload.Length)
	}
	if len(payload.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(payload.Nodes))
	}
	if len(payload.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(payload.Edges))
	}
	if payload.Edges[1].Type != domain.EdgeReceivedBy {
		t.Fatalf("expected RECEIVED_BY, got %s", payload.Edges[1].Type)
	}
}

func TestHandleShortestPathNoRoute(t *testing.T) {
	repo := &apiStubRepo{knownPersons: map[string]bool{"P-1": true, "P-2": true}}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/analytics/shortest-path?fromPersonId=P-1&toPersonId=P-2", nil)
	rec := httptest.NewRecorder()

	handlers.handleShortestPath(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleShortestPathSameEndpoints(t *testing.T) {
	repo := &apiStubRepo{knownPersons: map[string]bool{"P-1": true}}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/analytics/shortest-path?fromPersonId=P-1&toPersonId=P-1", nil)
	rec := httptest.NewRecorder()

	handlers.handleShortestPath(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleUpsertPersonCreate(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	body := `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload upsertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !payload.Created {
		t.Fatal("expected created=true")
	}
	if payload.ID == "" {
		t.Fatal("expected a minted id")
	}
}

func TestHandleUpsertPersonUpdate(t *testing.T) {
	repo := &apiStubRepo{knownPersons: map[string]bool{"P-1": true}}
	handlers := newTestHandlers(repo)

	body := `{"id":"P-1","phone":"+15550000000"}`
	req := httptest.NewRequest(http.MethodPost, "/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleUpsertPersonUnknownID(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	body := `{"id":"P-MISSING","phone":"+15550000000"}`
	req := httptest.NewRequest(http.MethodPost, "/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleUpsertPersonMissingEmail(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	body := `{"firstName":"Jane","lastName":"Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleUpsertPersonRejectsUnknownFields(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	body := `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","riskScore":0.9}`
	req := httptest.NewRequest(http.MethodPost, "/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleUpsertPersonDuplicateEmailConflict(t *testing.T) {
	repo := &apiStubRepo{emailInUse: true}
	handlers := newTestHandlers(repo, service.WithUniqueEmails())

	body := `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestHandleUpsertTransferCreate(t *testing.T) {
	repo := &apiStubRepo{knownPersons: map[string]bool{"P-1": true, "P-2": true}}
	handlers := newTestHandlers(repo)

	body := `{"payerId":"P-1","payeeId":"P-2","amount":250.5,"currency":"usd"}`
	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handleTransfers(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleUpsertTransferUnknownPayee(t *testing.T) {
	repo := &apiStubRepo{knownPersons: map[string]bool{"P-1": true}}
	handlers := newTestHandlers(repo)

	body := `{"payerId":"P-1","payeeId":"P-MISSING","amount":250.5,"currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handleTransfers(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleUpsertTransferBadTimestamp(t *testing.T) {
	repo := &apiStubRepo{knownPersons: map[string]bool{"P-1": true, "P-2": true}}
	handlers := newTestHandlers(repo)

	body := `{"payerId":"P-1","payeeId":"P-2","amount":10,"currency":"USD","timestamp":"yesterday"}`
	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handleTransfers(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandlePersonConnections(t *testing.T) {
	repo := &apiStubRepo{
		knownPersons: map[string]bool{"P-1": true},
		personLinks: []domain.PersonLink{
			{Kind: domain.EdgeSharedEmail, Person: domain.PersonPublic{ID: "P-2", FirstName: "John"}},
		},
		indirect: []domain.IndirectPerson{
			{Kind: domain.EdgeSharedDevice, Person: domain.PersonPublic{ID: "P-3"}, SharedTransfers: 4},
		},
	}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/connections/person/P-1", nil)
	rec := httptest.NewRecorder()

	handlers.handlePersonConnections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload personConnectionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.PersonID != "P-1" {
		t.Fatalf("expected personId P-1, got %s", payload.PersonID)
	}
	if len(payload.Links) != 1 || payload.Links[0].Kind != domain.EdgeSharedEmail {
		t.Fatalf("unexpected links: %+v", payload.Links)
	}
	if payload.Sent == nil || payload.Received == nil {
		t.Fatal("empty collections must encode as [], not null")
	}
	if len(payload.Indirect) != 1 || payload.Indirect[0].SharedTransfers != 4 {
		t.Fatalf("unexpected indirect: %+v", payload.Indirect)
	}
}

func TestHandlePersonConnectionsUnknownPerson(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/connections/person/P-MISSING", nil)
	rec := httptest.NewRecorder()

	handlers.handlePersonConnections(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleTransferConnections(t *testing.T) {
	repo := &apiStubRepo{
		knownTransfers: map[string]bool{"T-1": true},
		transfer:       domain.Transfer{ID: "T-1", PayerID: "P-1", PayeeID: "P-2"},
		linkedTransfers: []domain.LinkedTransfer{
			{Kind: domain.EdgeSharedIP, Transfer: domain.TransferPublic{ID: "T-2"}},
		},
	}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/connections/transfer/T-1", nil)
	rec := httptest.NewRecorder()

	handlers.handleTransferConnections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload transferConnectionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Payer.PersonID != "P-1" || payload.Payee.PersonID != "P-2" {
		t.Fatalf("unexpected parties: %+v", payload)
	}
	if len(payload.Linked) != 1 || payload.Linked[0].Kind != domain.EdgeSharedIP {
		t.Fatalf("unexpected linked transfers: %+v", payload.Linked)
	}
}

func TestHandleListPersons(t *testing.T) {
	repo := &apiStubRepo{
		personsList: domain.PersonListResult{
			Items: []domain.PersonSummary{
				{ID: "P-1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"},
			},
			Total: 21,
		},
	}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/persons?page=2&pageSize=10", nil)
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload listPersonsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(payload.Items))
	}
	if payload.Pagination.TotalPages != 3 {
		t.Fatalf("expected 3 total pages, got %d", payload.Pagination.TotalPages)
	}
	if !payload.Pagination.HasNext || !payload.Pagination.HasPrevious {
		t.Fatalf("unexpected pagination flags: %+v", payload.Pagination)
	}
}

func TestHandleListPersonsBadCreatedFrom(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/persons?createdFrom=yesterday", nil)
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleGetPersonNotFound(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/persons/P-MISSING", nil)
	rec := httptest.NewRecorder()

	handlers.handlePersonByID(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleExportPersonsCSV(t *testing.T) {
	repo := &apiStubRepo{
		exportPersons: []domain.PersonSummary{
			{ID: "P-1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"},
		},
	}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/export/persons?format=csv", nil)
	rec := httptest.NewRecorder()

	handlers.handleExportPersons(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv content type, got %s", ct)
	}

	r := csv.NewReader(bytes.NewReader(rec.Body.Bytes()))
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 rows (header + record), got %d", len(records))
	}
	if records[1][0] != "P-1" {
		t.Fatalf("expected P-1 in first data row, got %s", records[1][0])
	}
}

func TestHandleExportTransfersJSON(t *testing.T) {
	repo := &apiStubRepo{
		exportTx: []domain.TransferSummary{
			{ID: "T-1", Type: "PAYMENT", Status: "COMPLETED", Amount: 99.5, Currency: "USD"},
		},
	}
	handlers := newTestHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/export/transfers", nil)
	rec := httptest.NewRecorder()

	handlers.handleExportTransfers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload struct {
		Items []transferSummaryResponse `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].TransferID != "T-1" {
		t.Fatalf("unexpected export payload: %+v", payload)
	}
}

func TestHandlePersonsMethodNotAllowed(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{})

	req := httptest.NewRequest(http.MethodDelete, "/persons", nil)
	rec := httptest.NewRecorder()

	handlers.handlePersons(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}
