package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/muniops/internal/gateway"
	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/store"
)

// Query parameters with special meaning; any other parameter is an
// equality filter on that field.
const (
	paramForceReal = "force_real"
	paramLimit     = "limit"
	paramOffset    = "offset"
	paramOrder     = "order"
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.gw.Initialize(r.Context())
	writeJSON(w, http.StatusOK, envelope{Data: s.gw.DebugInfo()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.gw.ForceRefresh(r.Context())
	writeJSON(w, http.StatusOK, envelope{Data: s.gw.DebugInfo()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	req, derr := baseRequest(r, model.OpRead)
	if derr != nil {
		writeError(w, derr)
		return
	}
	read, derr := parseReadOptions(r.URL.Query())
	if derr != nil {
		writeError(w, derr)
		return
	}
	req.Read = read

	out := s.gw.Resolve(r.Context(), req)
	if out.Err != nil {
		writeOutcomeError(w, out)
		return
	}
	rows := out.Rows
	if rows == nil {
		rows = []model.Record{}
	}
	writeJSON(w, http.StatusOK, envelope{Data: rows})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	req, derr := baseRequest(r, model.OpRead)
	if derr != nil {
		writeError(w, derr)
		return
	}
	s.writeSingle(w, s.gw.Resolve(r.Context(), req), http.StatusOK)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, derr := baseRequest(r, model.OpCreate)
	if derr != nil {
		writeError(w, derr)
		return
	}
	if req.Payload, derr = decodeBody(r); derr != nil {
		writeError(w, derr)
		return
	}
	s.writeSingle(w, s.gw.Resolve(r.Context(), req), http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, derr := baseRequest(r, model.OpUpdate)
	if derr != nil {
		writeError(w, derr)
		return
	}
	if req.Payload, derr = decodeBody(r); derr != nil {
		writeError(w, derr)
		return
	}
	s.writeSingle(w, s.gw.Resolve(r.Context(), req), http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, derr := baseRequest(r, model.OpDelete)
	if derr != nil {
		writeError(w, derr)
		return
	}
	out := s.gw.Resolve(r.Context(), req)
	if out.Err != nil {
		writeOutcomeError(w, out)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: true})
}

func (s *Server) writeSingle(w http.ResponseWriter, out gateway.Outcome, status int) {
	if out.Err != nil {
		writeOutcomeError(w, out)
		return
	}
	writeJSON(w, status, envelope{Data: out.First()})
}

// baseRequest reads the entity, id and override from the URL.
func baseRequest(r *http.Request, op model.Operation) (gateway.Request, *store.DataError) {
	entity, ok := model.ParseEntity(chi.URLParam(r, "entity"))
	if !ok {
		return gateway.Request{}, store.NewDataError(
			fmt.Sprintf("unknown entity %q", chi.URLParam(r, "entity")), store.CodeNotFound, "")
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get(paramForceReal))
	return gateway.Request{
		Entity:        entity,
		Op:            op,
		ID:            chi.URLParam(r, "id"),
		ForceRealData: force,
	}, nil
}

// parseReadOptions maps the query string to ReadOptions. order=field sorts
// ascending, order=-field descending.
func parseReadOptions(q url.Values) (gateway.ReadOptions, *store.DataError) {
	var opts gateway.ReadOptions
	for key, vals := range q {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]
		switch key {
		case paramForceReal:
		case paramLimit, paramOffset:
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return opts, store.NewDataError(
					fmt.Sprintf("%s must be a non-negative integer", key), store.CodeInvalidRequest, "")
			}
			if key == paramLimit {
				opts.Limit = n
			} else {
				opts.Offset = n
			}
		case paramOrder:
			opts.OrderBy = strings.TrimPrefix(val, "-")
			opts.Ascending = !strings.HasPrefix(val, "-")
		default:
			if opts.Eq == nil {
				opts.Eq = map[string]any{}
			}
			opts.Eq[key] = val
		}
	}
	return opts, nil
}

func decodeBody(r *http.Request) (model.Record, *store.DataError) {
	var rec model.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return nil, store.NewDataError("request body must be a JSON object", store.CodeInvalidRequest, err.Error())
	}
	if rec == nil {
		rec = model.Record{}
	}
	return rec, nil
}

func writeOutcomeError(w http.ResponseWriter, out gateway.Outcome) {
	if out.Route == gateway.RouteBlocked {
		writeJSON(w, http.StatusForbidden, envelope{Error: out.Err})
		return
	}
	writeError(w, out.Err)
}

func writeError(w http.ResponseWriter, derr *store.DataError) {
	writeJSON(w, statusFor(derr), envelope{Error: derr})
}

func statusFor(derr *store.DataError) int {
	switch derr.Code {
	case store.CodeNotFound:
		return http.StatusNotFound
	case store.CodeInvalidRequest, gateway.CodeDecode:
		return http.StatusBadRequest
	case gateway.CodeSampleData:
		return http.StatusForbidden
	case gateway.CodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
