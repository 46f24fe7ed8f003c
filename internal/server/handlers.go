package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apetrenko/linkgraph/internal/domain"
	"github.com/apetrenko/linkgraph/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.LinkService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.LinkService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) handlePersons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.upsertPerson(w, r)
	case http.MethodGet:
		h.listPersons(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handleTransfers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.upsertTransfer(w, r)
	case http.MethodGet:
		h.listTransfers(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handlePersonByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	personID := pathSuffix(r.URL.Path, "/persons/")
	if personID == "" {
		writeError(w, http.StatusBadRequest, "person ID is required")
		return
	}

	person, err := h.service.GetPerson(r.Context(), personID)
	if err != nil {
		h.respondError(w, err, "failed to fetch person", "personId", personID)
		return
	}

	respondJSON(w, http.StatusOK, personToResponse(person))
}

func (h *APIHandlers) handleTransferByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	transferID := pathSuffix(r.URL.Path, "/transfers/")
	if transferID == "" {
		writeError(w, http.StatusBadRequest, "transfer ID is required")
		return
	}

	transfer, err := h.service.GetTransfer(r.Context(), transferID)
	if err != nil {
		h.respondError(w, err, "failed to fetch transfer", "transferId", transferID)
		return
	}

	respondJSON(w, http.StatusOK, transferToResponse(transfer))
}

func (h *APIHandlers) handlePersonConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	personID := pathSuffix(r.URL.Path, "/connections/person/")
	if personID == "" {
		writeError(w, http.StatusBadRequest, "person ID is required")
		return
	}

	conns, err := h.service.GetPersonConnections(r.Context(), personID)
	if err != nil {
		h.respondError(w, err, "failed to fetch person connections", "personId", personID)
		return
	}

	response := personConnectionsResponse{
		PersonID: conns.PersonID,
		Links:    []personLinkResponse{},
		Sent:     []sentTransferResponse{},
		Received: []receivedTransferResponse{},
		Indirect: []indirectPersonResponse{},
	}
	for _, link := range conns.Links {
		response.Links = append(response.Links, personLinkResponse{
			Kind:   link.Kind,
			Person: personPublicToResponse(link.Person),
		})
	}
	for _, sent := range conns.Sent {
		response.Sent = append(response.Sent, sentTransferResponse{
			Transfer:    transferPublicToResponse(sent.Transfer),
			Payee:       personPublicToResponse(sent.Payee),
			IPAddress:   sent.IPAddress,
			GeoCountry:  sent.GeoCountry,
			GeoRegion:   sent.GeoRegion,
			PaymentType: sent.PaymentType,
		})
	}
	for _, received := range conns.Received {
		response.Received = append(response.Received, receivedTransferResponse{
			Transfer:    transferPublicToResponse(received.Transfer),
			Payer:       personPublicToResponse(received.Payer),
			IPAddress:   received.IPAddress,
			GeoCountry:  received.GeoCountry,
			GeoRegion:   received.GeoRegion,
			PaymentType: received.PaymentType,
		})
	}
	for _, indirect := range conns.Indirect {
		response.Indirect = append(response.Indirect, indirectPersonResponse{
			Kind:            indirect.Kind,
			Person:          personPublicToResponse(indirect.Person),
			SharedTransfers: indirect.SharedTransfers,
		})
	}

	respondJSON(w, http.StatusOK, response)
}

func (h *APIHandlers) handleTransferConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	transferID := pathSuffix(r.URL.Path, "/connections/transfer/")
	if transferID == "" {
		writeError(w, http.StatusBadRequest, "transfer ID is required")
		return
	}

	conns, err := h.service.GetTransferConnections(r.Context(), transferID)
	if err != nil {
		h.respondError(w, err, "failed to fetch transfer connections", "transferId", transferID)
		return
	}

	response := transferConnectionsResponse{
		TransferID: conns.TransferID,
		Payer:      personPublicToResponse(conns.Payer),
		Payee:      personPublicToResponse(conns.Payee),
		Linked:     []linkedTransferResponse{},
	}
	for _, link := range conns.Linked {
		response.Linked = append(response.Linked, linkedTransferResponse{
			Kind:     link.Kind,
			Transfer: transferPublicToResponse(link.Transfer),
		})
	}

	respondJSON(w, http.StatusOK, response)
}

func (h *APIHandlers) handleShortestPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	fromID := query.Get("fromPersonId")
	toID := query.Get("toPersonId")

	path, err := h.service.FindShortestPath(r.Context(), fromID, toID)
	if err != nil {
		h.respondError(w, err, "failed to discover path", "fromPersonId", fromID, "toPersonId", toID)
		return
	}

	response := pathResponse{
		FromPersonID: path.FromPersonID,
		ToPersonID:   path.ToPersonID,
		Length:       path.Length,
		Nodes:        []pathNodeResponse{},
		Edges:        []pathEdgeResponse{},
	}
	for _, node := range path.Nodes {
		response.Nodes = append(response.Nodes, pathNodeResponse{
			ID:    node.ID,
			Kind:  node.Kind,
			Label: node.Label,
		})
	}
	for _, edge := range path.Edges {
		response.Edges = append(response.Edges, pathEdgeResponse{
			Type:   edge.Type,
			Source: edge.Source,
			Target: edge.Target,
		})
	}

	respondJSON(w, http.StatusOK, response)
}

func (h *APIHandlers) upsertPerson(w http.ResponseWriter, r *http.Request) {
	var payload personRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.UpsertPerson(r.Context(), payload.toPatch())
	if err != nil {
		h.respondError(w, err, "failed to persist person")
		return
	}

	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	respondJSON(w, status, upsertResponse{
		Status:  "ok",
		ID:      result.ID,
		Created: result.IsNew,
	})
}

func (h *APIHandlers) upsertTransfer(w http.ResponseWriter, r *http.Request) {
	var payload transferRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch, err := payload.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.UpsertTransfer(r.Context(), patch)
	if err != nil {
		h.respondError(w, err, "failed to persist transfer")
		return
	}

	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	respondJSON(w, status, upsertResponse{
		Status:  "ok",
		ID:      result.ID,
		Created: result.IsNew,
	})
}

func (h *APIHandlers) listPersons(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var createdFromPtr *time.Time
	if v := query.Get("createdFrom"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid createdFrom timestamp")
			return
		}
		createdFromPtr = &ts
	}
	var createdToPtr *time.Time
	if v := query.Get("createdTo"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid createdTo timestamp")
			return
		}
		createdToPtr = &ts
	}

	result, err := h.service.ListPersons(r.Context(), service.ListPersonsParams{
		Page:           parseInt(query.Get("page"), 1),
		PageSize:       parseInt(query.Get("pageSize"), 20),
		Search:         query.Get("search"),
		Email:          query.Get("email"),
		Phone:          query.Get("phone"),
		Country:        query.Get("country"),
		City:           query.Get("city"),
		InstrumentType: query.Get("instrumentType"),
		CreatedFrom:    createdFromPtr,
		CreatedTo:      createdToPtr,
		SortField:      query.Get("sortField"),
		SortOrder:      query.Get("sortOrder"),
	})
	if err != nil {
		h.respondError(w, err, "failed to list persons")
		return
	}

	resp := listPersonsResponse{
		Items:      []personSummaryResponse{},
		Pagination: paginationToResponse(result.Pagination),
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, personSummaryResponse{
			PersonID:  item.ID,
			FirstName: item.FirstName,
			LastName:  item.LastName,
			Email:     item.Email,
			Phone:     item.Phone,
			CreatedAt: formatTime(item.CreatedAt),
			UpdatedAt: formatTime(item.UpdatedAt),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) listTransfers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var minAmountPtr *float64
	if v := query.Get("minAmount"); v != "" {
		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid minAmount")
			return
		}
		minAmountPtr = &val
	}
	var maxAmountPtr *float64
	if v := query.Get("maxAmount"); v != "" {
		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxAmount")
			return
		}
		maxAmountPtr = &val
	}

	var startPtr *time.Time
	if v := query.Get("start"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start timestamp")
			return
		}
		startPtr = &ts
	}
	var endPtr *time.Time
	if v := query.Get("end"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end timestamp")
			return
		}
		endPtr = &ts
	}

	result, err := h.service.ListTransfers(r.Context(), service.ListTransfersParams{
		Page:        parseInt(query.Get("page"), 1),
		PageSize:    parseInt(query.Get("pageSize"), 20),
		Search:      query.Get("search"),
		PersonID:    query.Get("personId"),
		PayerID:     query.Get("payerId"),
		PayeeID:     query.Get("payeeId"),
		Status:      query.Get("status"),
		Type:        query.Get("type"),
		Currency:    query.Get("currency"),
		PaymentType: query.Get("paymentType"),
		MinAmount:   minAmountPtr,
		MaxAmount:   maxAmountPtr,
		StartTime:   startPtr,
		EndTime:     endPtr,
		SortField:   query.Get("sortField"),
		SortOrder:   query.Get("sortOrder"),
	})
	if err != nil {
		h.respondError(w, err, "failed to list transfers")
		return
	}

	resp := listTransfersResponse{
		Items:      []transferSummaryResponse{},
		Pagination: paginationToResponse(result.Pagination),
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, transferSummaryResponse{
			TransferID: item.ID,
			Type:       item.Type,
			Status:     item.Status,
			PayerID:    item.PayerID,
			PayeeID:    item.PayeeID,
			Amount:     item.Amount,
			Currency:   item.Currency,
			Timestamp:  formatTime(item.Timestamp),
			CreatedAt:  formatTime(item.CreatedAt),
			UpdatedAt:  formatTime(item.UpdatedAt),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondError maps the domain error taxonomy onto HTTP status codes and
// hides internal detail for anything unclassified.
func (h *APIHandlers) respondError(w http.ResponseWriter, err error, fallback string, logArgs ...any) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case domain.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(fallback, append([]any{"error", err}, logArgs...)...)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// --- Request & Response DTOs ---

// personRequest keeps every field as a pointer: absence and the zero value
// are different things for partial updates.
type personRequest struct {
	ID          *string              `json:"id"`
	FirstName   *string              `json:"firstName"`
	LastName    *string              `json:"lastName"`
	Email       *string              `json:"email"`
	Phone       *string              `json:"phone"`
	Address     *addressPayload      `json:"address"`
	Instruments *[]instrumentPayload `json:"instruments"`
}

type addressPayload struct {
	Street     *string `json:"street"`
	City       *string `json:"city"`
	Region     *string `json:"region"`
	PostalCode *string `json:"postalCode"`
	Country    *string `json:"country"`
}

type instrumentPayload struct {
	InstrumentID string `json:"instrumentId"`
	Type         string `json:"type"`
}

type transferRequest struct {
	ID           *string             `json:"id"`
	Type         *string             `json:"type"`
	Status       *string             `json:"status"`
	PayerID      *string             `json:"payerId"`
	PayeeID      *string             `json:"payeeId"`
	Amount       *float64            `json:"amount"`
	Currency     *string             `json:"currency"`
	DestAmount   *float64            `json:"destAmount"`
	DestCurrency *string             `json:"destCurrency"`
	Timestamp    *string             `json:"timestamp"`
	Description  *string             `json:"description"`
	DeviceID     *string             `json:"deviceId"`
	PaymentType  *string             `json:"paymentType"`
	Fingerprint  *fingerprintPayload `json:"fingerprint"`
}

type fingerprintPayload struct {
	IPAddress string      `json:"ipAddress"`
	Geo       *geoPayload `json:"geo"`
}

type geoPayload struct {
	Country *string `json:"country"`
	Region  *string `json:"region"`
}

type upsertResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

type personResponse struct {
	PersonID    string              `json:"id"`
	FirstName   string              `json:"firstName"`
	LastName    string              `json:"lastName"`
	Email       string              `json:"email"`
	Phone       *string             `json:"phone,omitempty"`
	Address     *addressPayload     `json:"address,omitempty"`
	Instruments []instrumentPayload `json:"instruments"`
	CreatedAt   string              `json:"createdAt"`
	UpdatedAt   string              `json:"updatedAt"`
}

type transferResponse struct {
	TransferID   string              `json:"id"`
	Type         string              `json:"type"`
	Status       string              `json:"status"`
	PayerID      string              `json:"payerId"`
	PayeeID      string              `json:"payeeId"`
	Amount       float64             `json:"amount"`
	Currency     string              `json:"currency"`
	DestAmount   *float64            `json:"destAmount,omitempty"`
	DestCurrency *string             `json:"destCurrency,omitempty"`
	Timestamp    string              `json:"timestamp"`
	Description  *string             `json:"description,omitempty"`
	DeviceID     *string             `json:"deviceId,omitempty"`
	PaymentType  *string             `json:"paymentType,omitempty"`
	Fingerprint  *fingerprintPayload `json:"fingerprint,omitempty"`
	CreatedAt    string              `json:"createdAt"`
	UpdatedAt    string              `json:"updatedAt"`
}

type paginationResponse struct {
	Page        int   `json:"page"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type listPersonsResponse struct {
	Items      []personSummaryResponse `json:"items"`
	Pagination paginationResponse      `json:"pagination"`
}

type listTransfersResponse struct {
	Items      []transferSummaryResponse `json:"items"`
	Pagination paginationResponse        `json:"pagination"`
}

type personSummaryResponse struct {
	PersonID  string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type transferSummaryResponse struct {
	TransferID string  `json:"id"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	PayerID    string  `json:"payerId"`
	PayeeID    string  `json:"payeeId"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Timestamp  string  `json:"timestamp"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

type personPublicResponse struct {
	PersonID  string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type transferPublicResponse struct {
	TransferID string  `json:"id"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Timestamp  string  `json:"timestamp"`
}

type personConnectionsResponse struct {
	PersonID string                     `json:"personId"`
	Links    []personLinkResponse       `json:"links"`
	Sent     []sentTransferResponse     `json:"sent"`
	Received []receivedTransferResponse `json:"received"`
	Indirect []indirectPersonResponse   `json:"indirect"`
}

type personLinkResponse struct {
	Kind   string               `json:"kind"`
	Person personPublicResponse `json:"person"`
}

type sentTransferResponse struct {
	Transfer    transferPublicResponse `json:"transfer"`
	Payee       personPublicResponse   `json:"payee"`
	IPAddress   string                 `json:"ipAddress,omitempty"`
	GeoCountry  string                 `json:"geoCountry,omitempty"`
	GeoRegion   string                 `json:"geoRegion,omitempty"`
	PaymentType string                 `json:"paymentType,omitempty"`
}

type receivedTransferResponse struct {
	Transfer    transferPublicResponse `json:"transfer"`
	Payer       personPublicResponse   `json:"payer"`
	IPAddress   string                 `json:"ipAddress,omitempty"`
	GeoCountry  string                 `json:"geoCountry,omitempty"`
	GeoRegion   string                 `json:"geoRegion,omitempty"`
	PaymentType string                 `json:"paymentType,omitempty"`
}

type indirectPersonResponse struct {
	Kind            string               `json:"kind"`
	Person          personPublicResponse `json:"person"`
	SharedTransfers int                  `json:"sharedTransfers"`
}

type transferConnectionsResponse struct {
	TransferID string                   `json:"transferId"`
	Payer      personPublicResponse     `json:"payer"`
	Payee      personPublicResponse     `json:"payee"`
	Linked     []linkedTransferResponse `json:"linkedTransfers"`
}

type linkedTransferResponse struct {
	Kind     string                 `json:"kind"`
	Transfer transferPublicResponse `json:"transfer"`
}

type pathResponse struct {
	FromPersonID string             `json:"fromPersonId"`
	ToPersonID   string             `json:"toPersonId"`
	Length       int                `json:"length"`
	Nodes        []pathNodeResponse `json:"nodes"`
	Edges        []pathEdgeResponse `json:"edges"`
}

type pathNodeResponse struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

type pathEdgeResponse struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// --- Helpers ---

func (req personRequest) toPatch() domain.PersonPatch {
	patch := domain.PersonPatch{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if req.Address != nil {
		patch.Address = &domain.Address{
			Street:     req.Address.Street,
			City:       req.Address.City,
			Region:     req.Address.Region,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
		}
	}
	if req.Instruments != nil {
		instruments := make([]domain.PaymentInstrument, 0, len(*req.Instruments))
		for _, inst := range *req.Instruments {
			instruments = append(instruments, domain.PaymentInstrument{
				ID:   inst.InstrumentID,
				Type: inst.Type,
			})
		}
		patch.Instruments = &instruments
	}
	return patch
}

func (req transferRequest) toPatch() (domain.TransferPatch, error) {
	patch := domain.TransferPatch{
		ID:           req.ID,
		Type:         req.Type,
		Status:       req.Status,
		PayerID:      req.PayerID,
		PayeeID:      req.PayeeID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		DestAmount:   req.DestAmount,
		DestCurrency: req.DestCurrency,
		Description:  req.Description,
		DeviceID:     req.DeviceID,
		PaymentType:  req.PaymentType,
	}
	if req.Timestamp != nil {
		ts, err := time.Parse(time.RFC3339, *req.Timestamp)
		if err != nil {
			return domain.TransferPatch{}, errors.New("invalid timestamp")
		}
		patch.Timestamp = &ts
	}
	if req.Fingerprint != nil {
		fp := &domain.DeviceFingerprint{IPAddress: req.Fingerprint.IPAddress}
		if req.Fingerprint.Geo != nil {
			fp.Geo = &domain.GeoHint{
				Country: req.Fingerprint.Geo.Country,
				Region:  req.Fingerprint.Geo.Region,
			}
		}
		patch.Fingerprint = fp
	}
	return patch, nil
}

func personToResponse(p domain.Person) personResponse {
	resp := personResponse{
		PersonID:    p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		Phone:       p.Phone,
		Instruments: []instrumentPayload{},
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
	if p.Address != nil {
		resp.Address = &addressPayload{
			Street:     p.Address.Street,
			City:       p.Address.City,
			Region:     p.Address.Region,
			PostalCode: p.Address.PostalCode,
			Country:    p.Address.Country,
		}
	}
	for _, inst := range p.Instruments {
		resp.Instruments = append(resp.Instruments, instrumentPayload{
			InstrumentID: inst.ID,
			Type:         inst.Type,
		})
	}
	return resp
}

func transferToResponse(t domain.Transfer) transferResponse {
	resp := transferResponse{
		TransferID:   t.ID,
		Type:         t.Type,
		Status:       t.Status,
		PayerID:      t.PayerID,
		PayeeID:      t.PayeeID,
		Amount:       t.Amount,
		Currency:     t.Currency,
		DestAmount:   t.DestAmount,
		DestCurrency: t.DestCurrency,
		Timestamp:    formatTime(t.Timestamp),
		Description:  t.Description,
		DeviceID:     t.DeviceID,
		PaymentType:  t.PaymentType,
		CreatedAt:    formatTime(t.CreatedAt),
		UpdatedAt:    formatTime(t.UpdatedAt),
	}
	if t.Fingerprint != nil {
		fp := &fingerprintPayload{IPAddress: t.Fingerprint.IPAddress}
		if t.Fingerprint.Geo != nil {
			fp.Geo = &geoPayload{
				Country: t.Fingerprint.Geo.Country,
				Region:  t.Fingerprint.Geo.Region,
			}
		}
		resp.Fingerprint = fp
	}
	return resp
}

func personPublicToResponse(p domain.PersonPublic) personPublicResponse {
	return personPublicResponse{
		PersonID:  p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	}
}

func transferPublicToResponse(t domain.TransferPublic) transferPublicResponse {
	return transferPublicResponse{
		TransferID: t.ID,
		Type:       t.Type,
		Status:     t.Status,
		Amount:     t.Amount,
		Currency:   t.Currency,
		Timestamp:  formatTime(t.Timestamp),
	}
}

func paginationToResponse(meta domain.PageMeta) paginationResponse {
	return paginationResponse{
		Page:        meta.Page,
		PageSize:    meta.PageSize,
		TotalItems:  meta.TotalItems,
		TotalPages:  meta.TotalPages,
		HasNext:     meta.HasNext,
		HasPrevious: meta.HasPrevious,
	}
}

func pathSuffix(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
