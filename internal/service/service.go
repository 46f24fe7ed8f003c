package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/apetrenko/linkgraph/internal/domain"
	"github.com/apetrenko/linkgraph/internal/repository"
)

// GraphRepository is the storage contract required by the link service.
type GraphRepository interface {
	CreatePerson(ctx context.Context, p domain.Person) error
	UpdatePerson(ctx context.Context, id string, patch domain.PersonPatch, now time.Time) (bool, error)
	GetPerson(ctx context.Context, id string) (domain.Person, error)
	PersonExists(ctx context.Context, id string) (bool, error)
	EmailInUse(ctx context.Context, email string) (bool, error)

	CreateTransfer(ctx context.Context, t domain.Transfer) (bool, error)
	UpdateTransfer(ctx context.Context, id string, patch domain.TransferPatch, now time.Time) (bool, error)
	GetTransfer(ctx context.Context, id string) (domain.Transfer, error)

	PersonSharedLinks(ctx context.Context, personID string) ([]domain.PersonLink, error)
	PersonSentTransfers(ctx context.Context, personID string) ([]domain.SentTransfer, error)
	PersonReceivedTransfers(ctx context.Context, personID string) ([]domain.ReceivedTransfer, error)
	PersonIndirectLinks(ctx context.Context, personID string) ([]domain.IndirectPerson, error)
	TransferParties(ctx context.Context, transferID string) (domain.PersonPublic, domain.PersonPublic, bool, error)
	TransferLinkedTransfers(ctx context.Context, transferID string) ([]domain.LinkedTransfer, error)

	RawShortestPathBetweenPersons(ctx context.Context, fromID, toID string) (domain.RawPath, bool, error)

	ListPersons(ctx context.Context, opts repository.ListPersonsOptions) (domain.PersonListResult, error)
	ListTransfers(ctx context.Context, opts repository.ListTransfersOptions) (domain.TransferListResult, error)
	ExportPersons(ctx context.Context) ([]domain.PersonSummary, error)
	ExportTransfers(ctx context.Context) ([]domain.TransferSummary, error)
}

// LinkService orchestrates upserts, relationship queries, and path discovery,
// delegating persistence to the repository.
type LinkService struct {
	repo         GraphRepository
	logger       *slog.Logger
	nowFn        func() time.Time
	idFn         func() string
	uniqueEmails bool
}

// Option customizes a LinkService.
type Option func(*LinkService)

// WithClock overrides the time provider (used primarily in tests).
func WithClock(nowFn func() time.Time) Option {
	return func(s *LinkService) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// WithIDGenerator overrides id minting for created entities.
func WithIDGenerator(idFn func() string) Option {
	return func(s *LinkService) {
		if idFn != nil {
			s.idFn = idFn
		}
	}
}

// WithUniqueEmails enables the opt-in policy that rejects person creates and
// email changes colliding with an existing person's email. Off by default:
// duplicate emails are what SHARED_EMAIL links are derived from.
func WithUniqueEmails() Option {
	return func(s *LinkService) {
		s.uniqueEmails = true
	}
}

// NewLinkService constructs a LinkService with optional overrides.
func NewLinkService(repo GraphRepository, logger *slog.Logger, opts ...Option) *LinkService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LinkService{
		repo:   repo,
		logger: logger,
		nowFn:  time.Now,
		idFn:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertPerson creates a person when the patch carries no id, otherwise
// applies the patch to the existing person. A supplied id that does not
// resolve is a NotFoundError, never a silent create.
func (s *LinkService) UpsertPerson(ctx context.Context, patch domain.PersonPatch) (UpsertResult, error) {
	if patch.ID == nil {
		return s.createPerson(ctx, patch)
	}

	id := strings.TrimSpace(*patch.ID)
	if id == "" {
		return UpsertResult{}, domain.NewValidationError("id", "must not be blank")
	}
	if err := validatePersonPatch(patch); err != nil {
		return UpsertResult{}, err
	}

	if s.uniqueEmails && patch.Email != nil {
		current, err := s.repo.GetPerson(ctx, id)
		if err != nil {
			return UpsertResult{}, err
		}
		if current.Email != *patch.Email {
			if err := s.checkEmailFree(ctx, *patch.Email); err != nil {
				return UpsertResult{}, err
			}
		}
	}

	found, err := s.repo.UpdatePerson(ctx, id, patch, s.nowFn().UTC())
	if err != nil {
		return UpsertResult{}, err
	}
	if !found {
		return UpsertResult{}, domain.NewNotFoundError("person", id)
	}
	return UpsertResult{ID: id, IsNew: false}, nil
}

func (s *LinkService) createPerson(ctx context.Context, patch domain.PersonPatch) (UpsertResult, error) {
	if patch.FirstName == nil || strings.TrimSpace(*patch.FirstName) == "" {
		return UpsertResult{}, domain.NewValidationError("firstName", "required")
	}
	if patch.LastName == nil || strings.TrimSpace(*patch.LastName) == "" {
		return UpsertResult{}, domain.NewValidationError("lastName", "required")
	}
	if patch.Email == nil || strings.TrimSpace(*patch.Email) == "" {
		return UpsertResult{}, domain.NewValidationError("email", "required")
	}
	if err := validatePersonPatch(patch); err != nil {
		return UpsertResult{}, err
	}

	if s.uniqueEmails {
		if err := s.checkEmailFree(ctx, *patch.Email); err != nil {
			return UpsertResult{}, err
		}
	}

	now := s.nowFn().UTC()
	person := domain.Person{
		ID:        s.idFn(),
		FirstName: strings.TrimSpace(*patch.FirstName),
		LastName:  strings.TrimSpace(*patch.LastName),
		Email:     strings.TrimSpace(*patch.Email),
		Phone:     patch.Phone,
		Address:   patch.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if patch.Instruments != nil {
		person.Instruments = *patch.Instruments
	}

	if err := s.repo.CreatePerson(ctx, person); err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{ID: person.ID, IsNew: true}, nil
}

func validatePersonPatch(patch domain.PersonPatch) error {
	if patch.Email != nil && strings.TrimSpace(*patch.Email) == "" {
		return domain.NewValidationError("email", "must not be blank")
	}
	if patch.FirstName != nil && strings.TrimSpace(*patch.FirstName) == "" {
		return domain.NewValidationError("firstName", "must not be blank")
	}
	if patch.LastName != nil && strings.TrimSpace(*patch.LastName) == "" {
		return domain.NewValidationError("lastName", "must not be blank")
	}
	if patch.Instruments != nil {
		for _, inst := range *patch.Instruments {
			if strings.TrimSpace(inst.ID) == "" {
				return domain.NewValidationError("instruments", "instrument id must not be blank")
			}
		}
	}
	return nil
}

func (s *LinkService) checkEmailFree(ctx context.Context, email string) error {
	inUse, err := s.repo.EmailInUse(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if inUse {
		return &domain.ConflictError{Kind: "person", Attribute: "email", Value: email}
	}
	return nil
}

// UpsertTransfer creates a transfer when the patch carries no id, otherwise
// applies the patch to the existing transfer. Payer and payee must resolve to
// distinct existing persons; on update only the supplied fields are
// revalidated.
func (s *LinkService) UpsertTransfer(ctx context.Context, patch domain.TransferPatch) (UpsertResult, error) {
	if patch.ID == nil {
		return s.createTransfer(ctx, patch)
	}

	id := strings.TrimSpace(*patch.ID)
	if id == "" {
		return UpsertResult{}, domain.NewValidationError("id", "must not be blank")
	}
	if err := validateTransferPatch(patch); err != nil {
		return UpsertResult{}, err
	}

	if patch.PayerID != nil || patch.PayeeID != nil {
		current, err := s.repo.GetTransfer(ctx, id)
		if err != nil {
			return UpsertResult{}, err
		}
		payerID := current.PayerID
		payeeID := current.PayeeID
		if patch.PayerID != nil {
			payerID = *patch.PayerID
		}
		if patch.PayeeID != nil {
			payeeID = *patch.PayeeID
		}
		if payerID == payeeID {
			return UpsertResult{}, domain.NewValidationError("payeeId", "payer and payee must be distinct")
		}
		if patch.PayerID != nil {
			if err := s.requirePerson(ctx, *patch.PayerID); err != nil {
				return UpsertResult{}, err
			}
		}
		if patch.PayeeID != nil {
			if err := s.requirePerson(ctx, *patch.PayeeID); err != nil {
				return UpsertResult{}, err
			}
		}
	}

	found, err := s.repo.UpdateTransfer(ctx, id, patch, s.nowFn().UTC())
	if err != nil {
		return UpsertResult{}, err
	}
	if !found {
		return UpsertResult{}, domain.NewNotFoundError("transfer", id)
	}
	return UpsertResult{ID: id, IsNew: false}, nil
}

func (s *LinkService) createTransfer(ctx context.Context, patch domain.TransferPatch) (UpsertResult, error) {
	if patch.PayerID == nil || strings.TrimSpace(*patch.PayerID) == "" {
		return UpsertResult{}, domain.NewValidationError("payerId", "required")
	}
	if patch.PayeeID == nil || strings.TrimSpace(*patch.PayeeID) == "" {
		return UpsertResult{}, domain.NewValidationError("payeeId", "required")
	}
	if *patch.PayerID == *patch.PayeeID {
		return UpsertResult{}, domain.NewValidationError("payeeId", "payer and payee must be distinct")
	}
	if patch.Amount == nil {
		return UpsertResult{}, domain.NewValidationError("amount", "required")
	}
	if patch.Currency == nil || strings.TrimSpace(*patch.Currency) == "" {
		return UpsertResult{}, domain.NewValidationError("currency", "required")
	}
	if err := validateTransferPatch(patch); err != nil {
		return UpsertResult{}, err
	}

	if err := s.requirePerson(ctx, *patch.PayerID); err != nil {
		return UpsertResult{}, err
	}
	if err := s.requirePerson(ctx, *patch.PayeeID); err != nil {
		return UpsertResult{}, err
	}

	now := s.nowFn().UTC()
	transfer := domain.Transfer{
		ID:           s.idFn(),
		Type:         domain.TransferTypePayment,
		Status:       domain.TransferStatusPending,
		PayerID:      *patch.PayerID,
		PayeeID:      *patch.PayeeID,
		Amount:       *patch.Amount,
		Currency:     strings.ToUpper(strings.TrimSpace(*patch.Currency)),
		DestAmount:   patch.DestAmount,
		DestCurrency: patch.DestCurrency,
		Timestamp:    now,
		Description:  patch.Description,
		DeviceID:     patch.DeviceID,
		PaymentType:  patch.PaymentType,
		Fingerprint:  patch.Fingerprint,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if patch.Type != nil {
		transfer.Type = *patch.Type
	}
	if patch.Status != nil {
		transfer.Status = *patch.Status
	}
	if patch.Timestamp != nil {
		transfer.Timestamp = patch.Timestamp.UTC()
	}

	created, err := s.repo.CreateTransfer(ctx, transfer)
	if err != nil {
		return UpsertResult{}, err
	}
	if !created {
		// A party passed the existence check but vanished before the write.
		if exists, checkErr := s.repo.PersonExists(ctx, transfer.PayerID); checkErr == nil && !exists {
			return UpsertResult{}, domain.NewNotFoundError("person", transfer.PayerID)
		}
		return UpsertResult{}, domain.NewNotFoundError("person", transfer.PayeeID)
	}
	return UpsertResult{ID: transfer.ID, IsNew: true}, nil
}

func validateTransferPatch(patch domain.TransferPatch) error {
	if patch.Amount != nil && *patch.Amount <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}
	if patch.Currency != nil && strings.TrimSpace(*patch.Currency) == "" {
		return domain.NewValidationError("currency", "must not be blank")
	}
	if patch.PayerID != nil && strings.TrimSpace(*patch.PayerID) == "" {
		return domain.NewValidationError("payerId", "must not be blank")
	}
	if patch.PayeeID != nil && strings.TrimSpace(*patch.PayeeID) == "" {
		return domain.NewValidationError("payeeId", "must not be blank")
	}
	if patch.Fingerprint != nil && strings.TrimSpace(patch.Fingerprint.IPAddress) == "" {
		return domain.NewValidationError("fingerprint", "ipAddress must not be blank")
	}
	return nil
}

func (s *LinkService) requirePerson(ctx context.Context, id string) error {
	exists, err := s.repo.PersonExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.NewNotFoundError("person", id)
	}
	return nil
}

// GetPerson fetches a person by id.
func (s *LinkService) GetPerson(ctx context.Context, id string) (domain.Person, error) {
	return s.repo.GetPerson(ctx, id)
}

// GetTransfer fetches a transfer by id.
func (s *LinkService) GetTransfer(ctx context.Context, id string) (domain.Transfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

// GetPersonConnections assembles the one-hop fan-out around a person. The
// four sub-queries run concurrently.
func (s *LinkService) GetPersonConnections(ctx context.Context, personID string) (domain.PersonConnections, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return domain.PersonConnections{}, domain.NewValidationError("personId", "required")
	}
	if err := s.requirePerson(ctx, personID); err != nil {
		return domain.PersonConnections{}, err
	}

	conns := domain.PersonConnections{PersonID: personID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		links, err := s.repo.PersonSharedLinks(gctx, personID)
		conns.Links = links
		return err
	})
	g.Go(func() error {
		sent, err := s.repo.PersonSentTransfers(gctx, personID)
		conns.Sent = sent
		return err
	})
	g.Go(func() error {
		received, err := s.repo.PersonReceivedTransfers(gctx, personID)
		conns.Received = received
		return err
	})
	g.Go(func() error {
		indirect, err := s.repo.PersonIndirectLinks(gctx, personID)
		conns.Indirect = indirect
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.PersonConnections{}, err
	}
	return conns, nil
}

// GetTransferConnections assembles the fan-out around a transfer: its payer
// and payee plus every transfer linked by shared fingerprint IP or device id.
func (s *LinkService) GetTransferConnections(ctx context.Context, transferID string) (domain.TransferConnections, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return domain.TransferConnections{}, domain.NewValidationError("transferId", "required")
	}

	payer, payee, found, err := s.repo.TransferParties(ctx, transferID)
	if err != nil {
		return domain.TransferConnections{}, err
	}
	if !found {
		return domain.TransferConnections{}, domain.NewNotFoundError("transfer", transferID)
	}

	linked, err := s.repo.TransferLinkedTransfers(ctx, transferID)
	if err != nil {
		return domain.TransferConnections{}, err
	}

	return domain.TransferConnections{
		TransferID: transferID,
		Payer:      payer,
		Payee:      payee,
		Linked:     linked,
	}, nil
}

// FindShortestPath discovers the shortest flow-edge path between two distinct
// persons and corrects every edge to traversal direction. An edge whose
// stored endpoints match neither orientation is dropped and logged; a path
// that cannot be fully aligned is an integrity violation, not a soft miss.
func (s *LinkService) FindShortestPath(ctx context.Context, fromID, toID string) (domain.Path, error) {
	fromID = strings.TrimSpace(fromID)
	toID = strings.TrimSpace(toID)
	if fromID == "" {
		return domain.Path{}, domain.NewValidationError("fromPersonId", "required")
	}
	if toID == "" {
		return domain.Path{}, domain.NewValidationError("toPersonId", "required")
	}
	if fromID == toID {
		return domain.Path{}, domain.NewValidationError("toPersonId", "endpoints must be distinct")
	}

	if err := s.requirePerson(ctx, fromID); err != nil {
		return domain.Path{}, err
	}
	if err := s.requirePerson(ctx, toID); err != nil {
		return domain.Path{}, err
	}

	raw, found, err := s.repo.RawShortestPathBetweenPersons(ctx, fromID, toID)
	if err != nil {
		return domain.Path{}, err
	}
	if !found {
		return domain.Path{}, domain.NewNotFoundError("path", fmt.Sprintf("%s -> %s", fromID, toID))
	}

	edges := make([]domain.PathEdge, 0, len(raw.Edges))
	for i, stored := range raw.Edges {
		if i+1 >= len(raw.Nodes) {
			break
		}
		prev := raw.Nodes[i].ID
		next := raw.Nodes[i+1].ID
		aligned, ok := alignPathEdge(stored, prev, next)
		if !ok {
			s.logger.Warn("dropping unmappable path edge",
				"type", stored.Type,
				"source", stored.Source,
				"target", stored.Target,
				"prev", prev,
				"next", next,
			)
			continue
		}
		edges = append(edges, aligned)
	}

	if len(edges) != raw.Hops {
		return domain.Path{}, &domain.IntegrityError{
			Op:     "shortest path",
			Detail: fmt.Sprintf("aligned %d of %d edges", len(edges), raw.Hops),
		}
	}

	return domain.Path{
		FromPersonID: fromID,
		ToPersonID:   toID,
		Nodes:        raw.Nodes,
		Edges:        edges,
		Length:       raw.Hops,
	}, nil
}

// ListPersons retrieves paginated persons matching the provided filters.
func (s *LinkService) ListPersons(ctx context.Context, params ListPersonsParams) (PersonsPage, error) {
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	offset := (page - 1) * pageSize

	result, err := s.repo.ListPersons(ctx, repository.ListPersonsOptions{
		Offset:         offset,
		Limit:          pageSize,
		Search:         params.Search,
		Email:          params.Email,
		Phone:          params.Phone,
		Country:        params.Country,
		City:           params.City,
		InstrumentType: params.InstrumentType,
		CreatedFrom:    params.CreatedFrom,
		CreatedTo:      params.CreatedTo,
		SortField:      params.SortField,
		SortOrder:      params.SortOrder,
	})
	if err != nil {
		return PersonsPage{}, err
	}

	return PersonsPage{
		Items:      result.Items,
		Pagination: buildPageMeta(page, pageSize, result.Total),
	}, nil
}

// ListTransfers retrieves paginated transfers matching the provided filters.
func (s *LinkService) ListTransfers(ctx context.Context, params ListTransfersParams) (TransfersPage, error) {
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	offset := (page - 1) * pageSize

	minAmount := 0.0
	if params.MinAmount != nil && *params.MinAmount > 0 {
		minAmount = *params.MinAmount
	}
	maxAmount := 0.0
	if params.MaxAmount != nil && *params.MaxAmount > 0 {
		maxAmount = *params.MaxAmount
		if maxAmount < minAmount {
			maxAmount = minAmount
		}
	}

	result, err := s.repo.ListTransfers(ctx, repository.ListTransfersOptions{
		Offset:      offset,
		Limit:       pageSize,
		PersonID:    params.PersonID,
		PayerID:     params.PayerID,
		PayeeID:     params.PayeeID,
		Status:      params.Status,
		Type:        params.Type,
		Currency:    params.Currency,
		PaymentType: params.PaymentType,
		MinAmount:   minAmount,
		MaxAmount:   maxAmount,
		Search:      params.Search,
		StartTs:     params.StartTime,
		EndTs:       params.EndTime,
		SortField:   params.SortField,
		SortOrder:   params.SortOrder,
	})
	if err != nil {
		return TransfersPage{}, err
	}

	return TransfersPage{
		Items:      result.Items,
		Pagination: buildPageMeta(page, pageSize, result.Total),
	}, nil
}

// ExportPersons returns every person summary for export surfaces.
func (s *LinkService) ExportPersons(ctx context.Context) ([]domain.PersonSummary, error) {
	return s.repo.ExportPersons(ctx)
}

// ExportTransfers returns every transfer summary for export surfaces.
func (s *LinkService) ExportTransfers(ctx context.Context) ([]domain.TransferSummary, error) {
	return s.repo.ExportTransfers(ctx)
}

func normalizePagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func buildPageMeta(page, pageSize int, total int64) domain.PageMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
		if total > 0 && totalPages == 0 {
			totalPages = 1
		}
	}
	return domain.PageMeta{
		Page:        page,
		PageSize:    pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1 && total > 0,
	}
}
