package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"oosc/internal/core"
	"oosc/internal/entries"
	applog "oosc/internal/log"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	snapshot, err := s.snapshot.Entries(ctx)
	if err != nil {
		applog.LogError(ctx, "Failed to load entries", err, applog.OpList, applog.ErrorTypeUpstream, nil)
		BadGatewayError("Failed to load entries").Write(w)
		return
	}

	query := r.URL.Query().Get("q")
	list := core.Filter(snapshot, query)
	total := countEntries(snapshot)

	logger.LogFields(ctx, slog.LevelDebug, "Entries listed", applog.NewFields().
		WithOperation(applog.OpFilter).
		With(applog.FieldFilterQuery, query).
		With(applog.FieldCount, len(list)).
		With(applog.FieldTotal, total))

	NewJSONResponse().
		Field("entries", list).
		Field("count", len(list)).
		Field("total", total).
		SuccessNotification(fmt.Sprintf("Entries loaded successfully (%d entries)", total)).
		Write(w)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, entries.ErrNotFound) {
			NotFoundError("Failed to fetch entry details").Write(w)
			return
		}
		applog.LogError(ctx, "Failed to fetch entry", err, applog.OpRead, applog.ErrorTypeUpstream,
			applog.NewFields().WithEntry(id, "", "", ""))
		BadGatewayError("Failed to fetch entry details").Write(w)
		return
	}

	NewJSONResponse().Field("entry", e).Write(w)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, ok := s.readEntryInput(w, r)
	if !ok {
		return
	}

	created, err := s.store.CreateEntry(ctx, in.ToEntry())
	if err != nil {
		applog.LogError(ctx, "Failed to create entry", err, applog.OpCreate, applog.ErrorTypeUpstream,
			applog.NewFields().WithEntry("", in.District, in.ProgramType, in.Date))
		BadGatewayError("Failed to create entry").Write(w)
		return
	}
	s.snapshot.Invalidate()
	logEntryWritten(r, applog.OpCreate, created)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/entries/"+created.ID).
		Field("entry", created).
		SuccessNotification("Entry created successfully").
		Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	in, ok := s.readEntryInput(w, r)
	if !ok {
		return
	}

	updated, err := s.store.UpdateEntry(ctx, id, in.ToEntry())
	if err != nil {
		if errors.Is(err, entries.ErrNotFound) {
			NotFoundError("Entry not found").Write(w)
			return
		}
		applog.LogError(ctx, "Failed to update entry", err, applog.OpUpdate, applog.ErrorTypeUpstream,
			applog.NewFields().WithEntry(id, in.District, in.ProgramType, in.Date))
		BadGatewayError("Failed to update entry").Write(w)
		return
	}
	s.snapshot.Invalidate()
	logEntryWritten(r, applog.OpUpdate, updated)

	NewJSONResponse().
		Field("entry", updated).
		SuccessNotification("Entry updated successfully").
		Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, entries.ErrNotFound) {
			NotFoundError("Entry not found").Write(w)
			return
		}
		applog.LogError(ctx, "Failed to delete entry", err, applog.OpDelete, applog.ErrorTypeUpstream,
			applog.NewFields().WithEntry(id, "", "", ""))
		BadGatewayError("Failed to delete entry").Write(w)
		return
	}
	s.snapshot.Invalidate()
	logEntryWritten(r, applog.OpDelete, core.Entry{ID: id})

	NewJSONResponse().
		Field("id", id).
		SuccessNotification("Entry deleted successfully").
		Write(w)
}

// entryID reads the {id} path value, answering 400 itself when the id
// cannot name an entry.
func entryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := entries.CheckID(id); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected entry id",
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeValidation)
		BadRequestError("Invalid entry id").Write(w)
		return "", false
	}
	return id, true
}

// readEntryInput parses and validates the entry form, writing the error
// response itself when it returns false.
func (s *Server) readEntryInput(w http.ResponseWriter, r *http.Request) (core.EntryInput, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
			return core.EntryInput{}, false
		}
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid entry body",
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeValidation)
		BadRequestError("Invalid request format").Write(w)
		return core.EntryInput{}, false
	}

	in := p.EntryInput()
	if err := in.Validate(); err != nil {
		resp := UnprocessableEntityError("Please fill in all required fields")
		var missing *core.MissingFieldsError
		if errors.As(err, &missing) {
			resp.Field("missingFields", missing.Fields)
		}
		resp.Write(w)
		return core.EntryInput{}, false
	}
	return in, true
}

func logEntryWritten(r *http.Request, op string, e core.Entry) {
	ctx := r.Context()
	applog.FromContext(ctx).LogFields(ctx, slog.LevelInfo, "Entry written", applog.NewFields().
		WithComponent(applog.ComponentEntries).
		WithOperation(op).
		WithEntry(e.ID, e.District.String(), e.ProgramType.String(), e.Date.String()))
}

func countEntries(list []*core.Entry) int {
	n := 0
	for _, e := range list {
		if e != nil {
			n++
		}
	}
	return n
}
