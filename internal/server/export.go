package server

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
)

func (h *APIHandlers) handleExportPersons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	persons, err := h.service.ExportPersons(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to export persons")
		return
	}

	if exportFormat(r) == "csv" {
		rows := [][]string{{"id", "firstName", "lastName", "email", "phone", "createdAt", "updatedAt"}}
		for _, p := range persons {
			rows = append(rows, []string{
				p.ID, p.FirstName, p.LastName, p.Email, p.Phone,
				formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
			})
		}
		writeCSV(w, "persons.csv", rows)
		return
	}

	items := make([]personSummaryResponse, 0, len(persons))
	for _, p := range persons {
		items = append(items, personSummaryResponse{
			PersonID:  p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Email:     p.Email,
			Phone:     p.Phone,
			CreatedAt: formatTime(p.CreatedAt),
			UpdatedAt: formatTime(p.UpdatedAt),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *APIHandlers) handleExportTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	transfers, err := h.service.ExportTransfers(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to export transfers")
		return
	}

	if exportFormat(r) == "csv" {
		rows := [][]string{{"id", "type", "status", "payerId", "payeeId", "amount", "currency", "timestamp", "createdAt", "updatedAt"}}
		for _, t := range transfers {
			rows = append(rows, []string{
				t.ID, t.Type, t.Status, t.PayerID, t.PayeeID,
				strconv.FormatFloat(t.Amount, 'f', -1, 64), t.Currency,
				formatTime(t.Timestamp), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
			})
		}
		writeCSV(w, "transfers.csv", rows)
		return
	}

	items := make([]transferSummaryResponse, 0, len(transfers))
	for _, t := range transfers {
		items = append(items, transferSummaryResponse{
			TransferID: t.ID,
			Type:       t.Type,
			Status:     t.Status,
			PayerID:    t.PayerID,
			PayeeID:    t.PayeeID,
			Amount:     t.Amount,
			Currency:   t.Currency,
			Timestamp:  formatTime(t.Timestamp),
			CreatedAt:  formatTime(t.CreatedAt),
			UpdatedAt:  formatTime(t.UpdatedAt),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func exportFormat(r *http.Request) string {
	return strings.ToLower(r.URL.Query().Get("format"))
}

func writeCSV(w http.ResponseWriter, filename string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	writer := csv.NewWriter(w)
	_ = writer.WriteAll(rows)
	writer.Flush()
}
