package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apetrenko/linkgraph/internal/domain"
	"github.com/apetrenko/linkgraph/internal/repository"
)

type stubRepository struct {
	mu        sync.Mutex
	persons   map[string]domain.Person
	transfers map[string]domain.Transfer

	createdPersons   []domain.Person
	createdTransfers []domain.Transfer
	updatedPersonIDs []string
	emailsInUse      map[string]bool
	createTransferOK bool

	personLinks    []domain.PersonLink
	sentTransfers  []domain.SentTransfer
	received       []domain.ReceivedTransfer
	indirect       []domain.IndirectPerson
	linked         []domain.LinkedTransfer
	rawPath        domain.RawPath
	rawPathFound   bool
	personsList    domain.PersonListResult
	transfersList  domain.TransferListResult
	exportPersons  []domain.PersonSummary
	exportTransfer []domain.TransferSummary

	lastPersonsOpts   repository.ListPersonsOptions
	lastTransfersOpts repository.ListTransfersOptions

	err error
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		persons:          map[string]domain.Person{},
		transfers:        map[string]domain.Transfer{},
		emailsInUse:      map[string]bool{},
		createTransferOK: true,
	}
}

func (s *stubRepository) CreatePerson(_ context.Context, p domain.Person) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdPersons = append(s.createdPersons, p)
	s.persons[p.ID] = p
	return nil
}

func (s *stubRepository) UpdatePerson(_ context.Context, id string, _ domain.PersonPatch, _ time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return false, nil
	}
	s.updatedPersonIDs = append(s.updatedPersonIDs, id)
	return true, nil
}

func (s *stubRepository) GetPerson(_ context.Context, id string) (domain.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.persons[id]; ok {
		return p, nil
	}
	return domain.Person{}, domain.NewNotFoundError("person", id)
}

func (s *stubRepository) PersonExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.persons[id]
	return ok, nil
}

func (s *stubRepository) EmailInUse(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emailsInUse[email], nil
}

func (s *stubRepository) CreateTransfer(_ context.Context, t domain.Transfer) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if !s.createTransferOK {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdTransfers = append(s.createdTransfers, t)
	s.transfers[t.ID] = t
	return true, nil
}

func (s *stubRepository) UpdateTransfer(_ context.Context, id string, _ domain.TransferPatch, _ time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.transfers[id]
	return ok, nil
}

func (s *stubRepository) GetTransfer(_ context.Context, id string) (domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transfers[id]; ok {
		return t, nil
	}
	return domain.Transfer{}, domain.NewNotFoundError("transfer", id)
}

func (s *stubRepository) PersonSharedLinks(context.Context, string) ([]domain.PersonLink, error) {
	return s.personLinks, s.err
}

func (s *stubRepository) PersonSentTransfers(context.Context, string) ([]domain.SentTransfer, error) {
	return s.sentTransfers, s.err
}

func (s *stubRepository) PersonReceivedTransfers(context.Context, string) ([]domain.ReceivedTransfer, error) {
	return s.received, s.err
}

func (s *stubRepository) PersonIndirectLinks(context.Context, string) ([]domain.IndirectPerson, error) {
	return s.indirect, s.err
}

func (s *stubRepository) TransferParties(_ context.Context, id string) (domain.PersonPublic, domain.PersonPublic, bool, error) {
	t, ok := s.transfers[id]
	if !ok {
		return domain.PersonPublic{}, domain.PersonPublic{}, false, nil
	}
	return domain.PersonPublic{ID: t.PayerID}, domain.PersonPublic{ID: t.PayeeID}, true, nil
}

func (s *stubRepository) TransferLinkedTransfers(context.Context, string) ([]domain.LinkedTransfer, error) {
	return s.linked, s.err
}

func (s *stubRepository) RawShortestPathBetweenPersons(context.Context, string, string) (domain.RawPath, bool, error) {
	return s.rawPath, s.rawPathFound, s.err
}

func (s *stubRepository) ListPersons(_ context.Context, opts repository.ListPersonsOptions) (domain.PersonListResult, error) {
	s.lastPersonsOpts = opts
	return s.personsList, s.err
}

func (s *stubRepository) ListTransfers(_ context.Context, opts repository.ListTransfersOptions) (domain.TransferListResult, error) {
	s.lastTransfersOpts = opts
	return s.transfersList, s.err
}

func (s *stubRepository) ExportPersons(context.Context) ([]domain.PersonSummary, error) {
	return s.exportPersons, s.err
}

func (s *stubRepository) ExportTransfers(context.Context) ([]domain.TransferSummary, error) {
	return s.exportTransfer, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func seedPerson(repo *stubRepository, id string) {
	repo.persons[id] = domain.Person{ID: id, FirstName: "Seed", LastName: "Person", Email: id + "@example.com"}
}

func TestUpsertPersonCreate(t *testing.T) {
	repo := newStubRepository()
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	svc := NewLinkService(repo, testLogger(),
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "P-GEN" }),
	)

	result, err := svc.UpsertPerson(context.Background(), domain.PersonPatch{
		FirstName: strPtr(" Jane "),
		LastName:  strPtr("Doe"),
		Email:     strPtr("jane@example.com"),
	})
	require.NoError(t, err)
	assert.True(t, result.IsNew)
	assert.Equal(t, "P-GEN", result.ID)

	require.Len(t, repo.createdPersons, 1)
	created := repo.createdPersons[0]
	assert.Equal(t, "Jane", created.FirstName)
	assert.Equal(t, now, created.CreatedAt)
	assert.Equal(t, now, created.UpdatedAt)
}

func TestUpsertPersonCreateMissingFields(t *testing.T) {
	svc := NewLinkService(newStubRepository(), testLogger())

	_, err := svc.UpsertPerson(context.Background(), domain.PersonPatch{
		FirstName: strPtr("Jane"),
	})
	assert.True(t, domain.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestUpsertPersonUpdateNotFound(t *testing.T) {
	svc := NewLinkService(newStubRepository(), testLogger())

	_, err := svc.UpsertPerson(context.Background(), domain.PersonPatch{
		ID:    strPtr("P-MISSING"),
		Email: strPtr("new@example.com"),
	})
	assert.True(t, domain.IsNotFound(err), "supplied id must never silently create, got %v", err)
}

func TestUpsertPersonUpdate(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	svc := NewLinkService(repo, testLogger())

	result, err := svc.UpsertPerson(context.Background(), domain.PersonPatch{
		ID:    strPtr("P-001"),
		Phone: strPtr("+15550000000"),
	})
	require.NoError(t, err)
	assert.False(t, result.IsNew)
	assert.Equal(t, []string{"P-001"}, repo.updatedPersonIDs)
}

func TestUpsertPersonUniqueEmailPolicy(t *testing.T) {
	repo := newStubRepository()
	repo.emailsInUse["taken@example.com"] = true
	svc := NewLinkService(repo, testLogger(), WithUniqueEmails())

	_, err := svc.UpsertPerson(context.Background(), domain.PersonPatch{
		FirstName: strPtr("Jane"),
		LastName:  strPtr("Doe"),
		Email:     strPtr("taken@example.com"),
	})
	assert.True(t, domain.IsConflict(err), "expected ConflictError, got %v", err)

	// Without the policy the same create goes through: duplicate emails are
	// the raw material for SHARED_EMAIL links.
	open := NewLinkService(repo, testLogger())
	_, err = open.UpsertPerson(context.Background(), domain.PersonPatch{
		FirstName: strPtr("Jane"),
		LastName:  strPtr("Doe"),
		Email:     strPtr("taken@example.com"),
	})
	assert.NoError(t, err)
}

func TestUpsertTransferCreate(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	seedPerson(repo, "P-002")
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	svc := NewLinkService(repo, testLogger(),
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "T-GEN" }),
	)

	result, err := svc.UpsertTransfer(context.Background(), domain.TransferPatch{
		PayerID:  strPtr("P-001"),
		PayeeID:  strPtr("P-002"),
		Amount:   floatPtr(100),
		Currency: strPtr("usd"),
	})
	require.NoError(t, err)
	assert.True(t, result.IsNew)

	require.Len(t, repo.createdTransfers, 1)
	created := repo.createdTransfers[0]
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, domain.TransferTypePayment, created.Type)
	assert.Equal(t, domain.TransferStatusPending, created.Status)
	assert.Equal(t, now, created.Timestamp)
}

func TestUpsertTransferSameParty(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	svc := NewLinkService(repo, testLogger())

	_, err := svc.UpsertTransfer(context.Background(), domain.TransferPatch{
		PayerID:  strPtr("P-001"),
		PayeeID:  strPtr("P-001"),
		Amount:   floatPtr(100),
		Currency: strPtr("USD"),
	})
	assert.True(t, domain.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestUpsertTransferUnknownParty(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	svc := NewLinkService(repo, testLogger())

	_, err := svc.UpsertTransfer(context.Background(), domain.TransferPatch{
		PayerID:  strPtr("P-001"),
		PayeeID:  strPtr("P-MISSING"),
		Amount:   floatPtr(100),
		Currency: strPtr("USD"),
	})
	require.True(t, domain.IsNotFound(err), "expected NotFoundError, got %v", err)

	var notFound *domain.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "P-MISSING", notFound.ID)
}

func TestUpsertTransferNonPositiveAmount(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	seedPerson(repo, "P-002")
	svc := NewLinkService(repo, testLogger())

	_, err := svc.UpsertTransfer(context.Background(), domain.TransferPatch{
		PayerID:  strPtr("P-001"),
		PayeeID:  strPtr("P-002"),
		Amount:   floatPtr(-5),
		Currency: strPtr("USD"),
	})
	assert.True(t, domain.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestUpsertTransferUpdateRevalidatesDistinctParties(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	seedPerson(repo, "P-002")
	repo.transfers["T-001"] = domain.Transfer{ID: "T-001", PayerID: "P-001", PayeeID: "P-002"}
	svc := NewLinkService(repo, testLogger())

	// Re-pointing the payee onto the stored payer must be rejected even
	// though only one side is in the patch.
	_, err := svc.UpsertTransfer(context.Background(), domain.TransferPatch{
		ID:      strPtr("T-001"),
		PayeeID: strPtr("P-001"),
	})
	assert.True(t, domain.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestGetPersonConnections(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	repo.personLinks = []domain.PersonLink{{Kind: domain.EdgeSharedEmail, Person: domain.PersonPublic{ID: "P-002"}}}
	repo.indirect = []domain.IndirectPerson{{Kind: domain.EdgeSharedIP, Person: domain.PersonPublic{ID: "P-003"}, SharedTransfers: 2}}
	svc := NewLinkService(repo, testLogger())

	conns, err := svc.GetPersonConnections(context.Background(), "P-001")
	require.NoError(t, err)
	assert.Equal(t, "P-001", conns.PersonID)
	assert.Len(t, conns.Links, 1)
	assert.Len(t, conns.Indirect, 1)
	assert.Equal(t, 2, conns.Indirect[0].SharedTransfers)
}

func TestGetPersonConnectionsUnknownPerson(t *testing.T) {
	svc := NewLinkService(newStubRepository(), testLogger())

	_, err := svc.GetPersonConnections(context.Background(), "P-MISSING")
	assert.True(t, domain.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestGetTransferConnectionsUnknownTransfer(t *testing.T) {
	svc := NewLinkService(newStubRepository(), testLogger())

	_, err := svc.GetTransferConnections(context.Background(), "T-MISSING")
	assert.True(t, domain.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestFindShortestPathAlignsReversedEdges(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	seedPerson(repo, "P-002")
	repo.rawPathFound = true
	repo.rawPath = domain.RawPath{
		Nodes: []domain.PathNode{
			{ID: "P-001", Kind: "Person"},
			{ID: "T-001", Kind: "Transfer"},
			{ID: "P-002", Kind: "Person"},
		},
		Edges: []domain.PathEdge{
			{Type: domain.EdgeSent, Source: "P-001", Target: "T-001"},
			// Stored against the traversal: P-002 -[SENT]-> T-001.
			{Type: domain.EdgeSent, Source: "P-002", Target: "T-001"},
		},
		Hops: 2,
	}
	svc := NewLinkService(repo, testLogger())

	path, err := svc.FindShortestPath(context.Background(), "P-001", "P-002")
	require.NoError(t, err)
	assert.Equal(t, 2, path.Length)
	require.Len(t, path.Edges, 2)

	assert.Equal(t, domain.EdgeSent, path.Edges[0].Type)
	assert.Equal(t, domain.EdgeReceivedBy, path.Edges[1].Type)
	assert.Equal(t, "T-001", path.Edges[1].Source)
	assert.Equal(t, "P-002", path.Edges[1].Target)
}

func TestFindShortestPathSelf(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	svc := NewLinkService(repo, testLogger())

	_, err := svc.FindShortestPath(context.Background(), "P-001", "P-001")
	assert.True(t, domain.IsValidation(err), "expected ValidationError, got %v", err)
}

func TestFindShortestPathNoRoute(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	seedPerson(repo, "P-002")
	svc := NewLinkService(repo, testLogger())

	_, err := svc.FindShortestPath(context.Background(), "P-001", "P-002")
	assert.True(t, domain.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestFindShortestPathUnmappableEdge(t *testing.T) {
	repo := newStubRepository()
	seedPerson(repo, "P-001")
	seedPerson(repo, "P-002")
	repo.rawPathFound = true
	repo.rawPath = domain.RawPath{
		Nodes: []domain.PathNode{
			{ID: "P-001", Kind: "Person"},
			{ID: "T-001", Kind: "Transfer"},
			{ID: "P-002", Kind: "Person"},
		},
		Edges: []domain.PathEdge{
			{Type: domain.EdgeSent, Source: "P-001", Target: "T-001"},
			{Type: domain.EdgeReceivedBy, Source: "T-999", Target: "P-777"},
		},
		Hops: 2,
	}
	svc := NewLinkService(repo, testLogger())

	_, err := svc.FindShortestPath(context.Background(), "P-001", "P-002")
	assert.True(t, domain.IsIntegrity(err), "expected IntegrityError, got %v", err)
}

func TestListPersonsPagination(t *testing.T) {
	repo := newStubRepository()
	repo.personsList = domain.PersonListResult{
		Items: make([]domain.PersonSummary, 10),
		Total: 25,
	}
	svc := NewLinkService(repo, testLogger())

	page, err := svc.ListPersons(context.Background(), ListPersonsParams{Page: 2, PageSize: 10})
	require.NoError(t, err)

	meta := page.Pagination
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 10, meta.PageSize)
	assert.Equal(t, int64(25), meta.TotalItems)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrevious)
}

func TestListPersonsClampsPagination(t *testing.T) {
	repo := newStubRepository()
	svc := NewLinkService(repo, testLogger())

	page, err := svc.ListPersons(context.Background(), ListPersonsParams{Page: -4, PageSize: 9000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 100, page.Pagination.PageSize)
	assert.False(t, page.Pagination.HasPrevious)
}

func TestListPersonsForwardsFilters(t *testing.T) {
	repo := newStubRepository()
	svc := NewLinkService(repo, testLogger())

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.ListPersons(context.Background(), ListPersonsParams{
		InstrumentType: "CARD",
		CreatedFrom:    &from,
		CreatedTo:      &to,
	})
	require.NoError(t, err)

	opts := repo.lastPersonsOpts
	assert.Equal(t, "CARD", opts.InstrumentType)
	require.NotNil(t, opts.CreatedFrom)
	require.NotNil(t, opts.CreatedTo)
	assert.True(t, opts.CreatedFrom.Equal(from))
	assert.True(t, opts.CreatedTo.Equal(to))
}

func TestListTransfersForwardsFilters(t *testing.T) {
	repo := newStubRepository()
	svc := NewLinkService(repo, testLogger())

	_, err := svc.ListTransfers(context.Background(), ListTransfersParams{
		PayerID:     "P-001",
		PayeeID:     "P-002",
		PaymentType: "WIRE",
	})
	require.NoError(t, err)

	opts := repo.lastTransfersOpts
	assert.Equal(t, "P-001", opts.PayerID)
	assert.Equal(t, "P-002", opts.PayeeID)
	assert.Equal(t, "WIRE", opts.PaymentType)
}

func TestListTransfersLastPage(t *testing.T) {
	repo := newStubRepository()
	repo.transfersList = domain.TransferListResult{
		Items: make([]domain.TransferSummary, 5),
		Total: 25,
	}
	svc := NewLinkService(repo, testLogger())

	page, err := svc.ListTransfers(context.Background(), ListTransfersParams{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.False(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrevious)
}
