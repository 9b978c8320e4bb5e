// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/panelsurvey/exchange"
	"github.com/danielhkuo/panelsurvey/metrics"
	"github.com/danielhkuo/panelsurvey/middleware"
	"github.com/danielhkuo/panelsurvey/store"
)

// maxUploadBytes bounds import uploads
const maxUploadBytes = 10 << 20

type importResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Count   int              `json:"count"`
	Report  *exchange.Report `json:"report"`
}

// Export handles GET /api/admin/export?type=respondents|responses&format=csv|xlsx
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := exchange.ParseKind(q.Get("type"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := exchange.ParseFormat(q.Get("format"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var table exchange.Table
	switch kind {
	case exchange.KindRespondents:
		list, err := h.store.ListRespondentsForExport(r.Context())
		if err != nil {
			writeStoreError(w, "export respondents", err)
			return
		}
		table = exchange.RespondentsTable(list)
	case exchange.KindResponses:
		records, err := h.store.ListResponses(r.Context(), "")
		if err != nil {
			writeStoreError(w, "export responses", err)
			return
		}
		table = exchange.ResponsesTable(records)
	}

	// Encode fully first so a failure can still become an error response
	var buf bytes.Buffer
	if err := table.Write(&buf, format); err != nil {
		slog.Error("failed to encode export", "type", kind, "format", format, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Export failed")
		return
	}

	metrics.RecordAdminAction("export")
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exchange.Filename(kind, format, h.now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to send export", "error", err)
	}
}

// Import handles POST /api/admin/import (multipart: file, type)
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing file or type")
		return
	}

	if r.FormValue("type") == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing file or type")
		return
	}
	kind, err := exchange.ParseKind(r.FormValue("type"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid import type")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing file or type")
		return
	}
	defer file.Close()

	format, err := exchange.FormatFromFilename(header.Filename)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := exchange.ReadTable(file, format)
	if errors.Is(err, exchange.ErrEmpty) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := exchange.NewImporter(h.store, h.cfg.Phone).Import(r.Context(), kind, table)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeStoreError(w, "import", err)
			return
		}
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h.audit(r.Context(), "import", string(kind), "", map[string]any{
		"file":     header.Filename,
		"imported": report.Imported,
		"skipped":  report.Skipped,
	})
	metrics.RecordAdminAction("import")

	middleware.JSONResponse(w, http.StatusOK, importResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully imported %d %s.", report.Imported, kind),
		Count:   report.Imported,
		Report:  report,
	})
}
