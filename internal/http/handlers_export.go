package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
)

// handleExport streams all of the user's records of kind as a download.
// The file is rendered into memory first so failures still get a proper
// status code.
func (s *Server) handleExport(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.FromContext(r.Context())
		format, err := export.ParseFormat(r.PathValue("format"))
		if err != nil {
			NotFoundError("Unknown export format").Write(w)
			return
		}

		u := currentUser(r)
		recs, err := s.records.All(r.Context(), u.ID, kind)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to load records for export",
				log.FieldError, err, log.FieldKind, string(kind), log.FieldOperation, log.OpExport)
			InternalServerError("Could not export records").Write(w)
			return
		}

		doc := export.Document{
			Kind:        kind,
			Currency:    u.Currency,
			Records:     recs,
			GeneratedAt: time.Now(),
		}
		var buf bytes.Buffer
		if err := s.exporter.Write(&buf, format, doc); err != nil {
			if errors.Is(err, export.ErrFontUnavailable) {
				logger.ErrorContext(r.Context(), "PDF export unavailable",
					log.FieldError, err, log.FieldFormat, string(format))
				ServiceUnavailableError("PDF export is not available right now").Write(w)
				return
			}
			logger.ErrorContext(r.Context(), "Export failed",
				log.FieldError, err, log.FieldFormat, string(format), log.FieldKind, string(kind))
			InternalServerError("Could not export records").Write(w)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename(format)+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())

		logger.InfoContext(r.Context(), "Records exported",
			log.FieldUserID, u.ID,
			log.FieldKind, string(kind),
			log.FieldFormat, string(format),
			"records", len(recs),
			log.FieldOperation, log.OpExport)
	}
}
