package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

type listPage struct {
	layout
	Kind     core.Kind
	Base     string
	Label    string
	Noun     string
	Listing  services.Listing
	Currency string
}

type formPage struct {
	layout
	Kind       core.Kind
	Base       string
	Noun       string
	Label      string
	Action     string
	Editing    bool
	RecordID   int64
	Values     services.RecordInput
	Categories []string
}

func (s *Server) handleList(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		page, err := QueryInt(r.URL.Query(), "page", 1)
		if err != nil {
			page = 1
		}
		listing, err := s.records.List(r.Context(), u.ID, kind, page)
		if err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list records",
				log.FieldError, err, log.FieldKind, string(kind), log.FieldOperation, log.OpList)
			InternalServerError("Could not load records").Write(w)
			return
		}

		l := s.layoutFor(r, kindTitle(kind))
		l.Flash = flashMessage(r.URL.Query().Get("msg"), kind)
		s.render(w, r, http.StatusOK, "records.html", listPage{
			layout:   l,
			Kind:     kind,
			Base:     kindBase(kind),
			Label:    kind.GroupLabel(),
			Noun:     kindNoun(kind),
			Listing:  listing,
			Currency: u.Currency,
		})
	}
}

func flashMessage(code string, kind core.Kind) string {
	switch code {
	case "created":
		return kindNoun(kind) + " saved successfully"
	case "updated":
		return kindNoun(kind) + " updated successfully"
	case "deleted":
		return kindNoun(kind) + " removed"
	}
	return ""
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, kind core.Kind, id int64, in services.RecordInput, errs []string) {
	title := "Add " + kindNoun(kind)
	action := kindBase(kind) + "/new"
	if id > 0 {
		title = "Edit " + kindNoun(kind)
		action = kindBase(kind) + "/edit/" + strconv.FormatInt(id, 10)
	}
	l := s.layoutFor(r, title)
	l.Errors = errs
	s.render(w, r, status, "record_form.html", formPage{
		layout:     l,
		Kind:       kind,
		Base:       kindBase(kind),
		Noun:       kindNoun(kind),
		Label:      kind.GroupLabel(),
		Action:     action,
		Editing:    id > 0,
		RecordID:   id,
		Values:     in,
		Categories: s.categories(r.Context(), kind),
	})
}

func (s *Server) handleNewRecord(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := s.reports.Today().String()
		s.renderForm(w, r, http.StatusOK, kind, 0, services.RecordInput{Date: today}, nil)
	}
}

func (s *Server) handleCreateRecord(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errResp := ParseFormOrFail(r); errResp != nil {
			errResp.Write(w)
			return
		}
		u := currentUser(r)
		in := RecordInputFromForm(r.Form)

		rec, err := s.records.Create(r.Context(), u.ID, kind, in)
		if err != nil {
			s.recordFailed(w, r, kind, 0, in, err)
			return
		}

		redirectAfterPost(w, r, kindBase(kind)+"?msg=created", NewHTMXResponse().
			TriggerRecordCreated(kind, rec.ID).
			TriggerFormReset().
			TriggerSuccessNotification(kindNoun(kind)+" saved successfully"))
	}
}

func (s *Server) handleEditRecord(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}
		rec, err := s.records.Get(r.Context(), currentUser(r).ID, kind, id)
		if err != nil {
			s.lookupFailed(w, r, kind, id, err)
			return
		}
		s.renderForm(w, r, http.StatusOK, kind, id, services.RecordInput{
			Amount:      core.FormatAmount(rec.Amount),
			Description: rec.Description,
			Date:        rec.Date.String(),
			Category:    rec.Category,
		}, nil)
	}
}

func (s *Server) handleUpdateRecord(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}
		if errResp := ParseFormOrFail(r); errResp != nil {
			errResp.Write(w)
			return
		}
		in := RecordInputFromForm(r.Form)

		if _, err := s.records.Update(r.Context(), currentUser(r).ID, kind, id, in); err != nil {
			s.recordFailed(w, r, kind, id, in, err)
			return
		}

		redirectAfterPost(w, r, kindBase(kind)+"?msg=updated", NewHTMXResponse().
			TriggerRecordUpdated(kind, id).
			TriggerSuccessNotification(kindNoun(kind)+" updated successfully"))
	}
}

func (s *Server) handleDeleteRecord(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r)
		if !ok {
			return
		}
		if err := s.records.Delete(r.Context(), currentUser(r).ID, kind, id); err != nil {
			s.lookupFailed(w, r, kind, id, err)
			return
		}
		redirectAfterPost(w, r, kindBase(kind)+"?msg=deleted", NewHTMXResponse().
			TriggerRecordDeleted(kind, id).
			TriggerSuccessNotification(kindNoun(kind)+" removed"))
	}
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		NotFoundError("Record not found").Write(w)
		return 0, false
	}
	return id, true
}

// recordFailed answers a failed create or update: field errors re-render
// the form with 422.
func (s *Server) recordFailed(w http.ResponseWriter, r *http.Request, kind core.Kind, id int64, in services.RecordInput, err error) {
	var ferr *services.FieldError
	switch {
	case errors.As(err, &ferr):
		if isHTMX(r) {
			UnprocessableEntityError(ferr.Message).TriggerErrorNotification(ferr.Message).Write(w)
			return
		}
		s.renderForm(w, r, http.StatusUnprocessableEntity, kind, id, in, []string{ferr.Message})
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Record not found").Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to save record",
			log.FieldError, err, log.FieldKind, string(kind), log.FieldRecordID, id)
		InternalServerError("Could not save the record").Write(w)
	}
}

func (s *Server) lookupFailed(w http.ResponseWriter, r *http.Request, kind core.Kind, id int64, err error) {
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Record not found").Write(w)
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Record lookup failed",
		log.FieldError, err, log.FieldKind, string(kind), log.FieldRecordID, id)
	InternalServerError("Could not load the record").Write(w)
}

// handleSearch answers the list page's live search with the matching
// records. The classification is keyed "category" or "source".
func (s *Server) handleSearch(kind core.Kind) http.HandlerFunc {
	groupKey := strings.ToLower(kind.GroupLabel())
	return func(w http.ResponseWriter, r *http.Request) {
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		recs, err := s.records.Search(r.Context(), currentUser(r).ID, kind, p.Get("searchText"))
		if err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Search failed",
				log.FieldError, err, log.FieldKind, string(kind), log.FieldOperation, log.OpSearch)
			writeJSONError(w, http.StatusInternalServerError, "search failed")
			return
		}
		out := make([]map[string]any, 0, len(recs))
		for _, rec := range recs {
			out = append(out, map[string]any{
				"id":          rec.ID,
				"amount":      rec.Amount.Round(2).InexactFloat64(),
				"date":        rec.Date.String(),
				"description": rec.Description,
				groupKey:      rec.Category,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// pageTotal sums the amounts shown on one list page.
func pageTotal(recs []core.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recs {
		total = total.Add(r.Amount)
	}
	return total
}
