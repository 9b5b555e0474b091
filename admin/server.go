// Package admin implements the administrative store seams: POST
// /reset, GET/POST /databases, POST /databases/{name}/targets, DELETE
// /databases/{name}/targets/{id}. Test harnesses use these to install
// fixtures directly, bypassing the VWS/VWQ validator chains entirely.
// DELETE answers 200 with the deleted target's full JSON record rather
// than a 204.
package admin

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmhodges/clock"

	"github.com/mockrecon/mockrecon/core"
)

// Server holds the store the admin handlers mutate directly.
type Server struct {
	Store core.Store
	Clk   clock.Clock

	router chi.Router
}

// NewServer builds a Server and wires its chi routes.
func NewServer(st core.Store, clk clock.Clock) *Server {
	s := &Server{Store: st, Clk: clk}
	r := chi.NewRouter()
	r.Post("/reset", s.reset)
	r.Get("/databases", s.listDatabases)
	r.Post("/databases", s.createDatabase)
	r.Post("/databases/{name}/targets", s.createTarget)
	r.Delete("/databases/{name}/targets/{id}", s.deleteTarget)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

// reset implements POST /reset: clears every database from the store.
func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.Store.Reset()
	w.WriteHeader(http.StatusOK)
}

type databaseSummary struct {
	DatabaseName     string `json:"database_name"`
	ServerAccessKey  string `json:"server_access_key"`
	ServerSecretKey  string `json:"server_secret_key"`
	ClientAccessKey  string `json:"client_access_key"`
	ClientSecretKey  string `json:"client_secret_key"`
	State            string `json:"state"`
	TargetCount      int    `json:"target_count"`
}

// listDatabases implements GET /databases.
func (s *Server) listDatabases(w http.ResponseWriter, r *http.Request) {
	dbs := s.Store.Databases(s.Clk.Now())
	out := make([]databaseSummary, 0, len(dbs))
	for _, db := range dbs {
		out = append(out, databaseSummary{
			DatabaseName:    db.Name,
			ServerAccessKey: db.ServerAccessKey,
			ServerSecretKey: db.ServerSecretKey,
			ClientAccessKey: db.ClientAccessKey,
			ClientSecretKey: db.ClientSecretKey,
			State:           string(db.State),
			TargetCount:     len(db.Targets),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createDatabaseRequest struct {
	DatabaseName          string  `json:"database_name"`
	ServerAccessKey       string  `json:"server_access_key"`
	ServerSecretKey       string  `json:"server_secret_key"`
	ClientAccessKey       string  `json:"client_access_key"`
	ClientSecretKey       string  `json:"client_secret_key"`
	StateValue            string  `json:"state_value"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

// createDatabase implements POST /databases.
func (s *Server) createDatabase(w http.ResponseWriter, r *http.Request) {
	var req createDatabaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state := core.ProjectStateWorking
	if req.StateValue != "" {
		state = core.ProjectState(req.StateValue)
	}
	db := &core.Database{
		Name:                  req.DatabaseName,
		ServerAccessKey:       req.ServerAccessKey,
		ServerSecretKey:       req.ServerSecretKey,
		ClientAccessKey:       req.ClientAccessKey,
		ClientSecretKey:       req.ClientSecretKey,
		State:                 state,
		ProcessingTimeSeconds: req.ProcessingTimeSeconds,
	}
	if err := s.Store.CreateDatabase(db); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, databaseSummary{
		DatabaseName:    db.Name,
		ServerAccessKey: db.ServerAccessKey,
		ServerSecretKey: db.ServerSecretKey,
		ClientAccessKey: db.ClientAccessKey,
		ClientSecretKey: db.ClientSecretKey,
		State:           string(db.State),
	})
}

type createTargetRequest struct {
	TargetID              string  `json:"target_id"`
	Name                  string  `json:"name"`
	Width                 float64 `json:"width"`
	ImageBase64           string  `json:"image_base64"`
	ActiveFlag            bool    `json:"active_flag"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	ApplicationMetadata   *string `json:"application_metadata"`
}

// createTarget implements POST /databases/{name}/targets: installs a
// target with a caller-chosen identifier and timestamps set to now,
// bypassing the VWS validator chain entirely.
func (s *Server) createTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req createTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image_base64 did not decode")
		return
	}
	var metadata []byte
	if req.ApplicationMetadata != nil {
		metadata, err = base64.StdEncoding.DecodeString(*req.ApplicationMetadata)
		if err != nil {
			writeError(w, http.StatusBadRequest, "application_metadata did not decode")
			return
		}
	}

	now := s.Clk.Now()
	t := &core.Target{
		ID:                    req.TargetID,
		Name:                  req.Name,
		Width:                 req.Width,
		Image:                 image,
		ActiveFlag:            req.ActiveFlag,
		ApplicationMetadata:   metadata,
		CreatedAt:             now,
		LastModified:          now,
		ProcessingTimeSeconds: req.ProcessingTimeSeconds,
		RecoRating:            -1,
	}
	if err := s.Store.CreateTarget(name, t); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, targetJSON(t))
}

// deleteTarget implements DELETE /databases/{name}/targets/{id}: sets
// delete_date and answers 200 with the target's full record, not a
// 204.
func (s *Server) deleteTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id := chi.URLParam(r, "id")
	now := s.Clk.Now()
	t, err := s.Store.DeleteTarget(name, id, now)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, targetJSON(t))
}

type targetJSONBody struct {
	TargetID              string  `json:"target_id"`
	Name                  string  `json:"name"`
	Width                 float64 `json:"width"`
	ActiveFlag            bool    `json:"active_flag"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	Status                string  `json:"status"`
	DeleteDate            *string `json:"delete_date,omitempty"`
}

func targetJSON(t *core.Target) targetJSONBody {
	body := targetJSONBody{
		TargetID:              t.ID,
		Name:                  t.Name,
		Width:                 t.Width,
		ActiveFlag:            t.ActiveFlag,
		ProcessingTimeSeconds: t.ProcessingTimeSeconds,
	}
	if t.DeletedAt != nil {
		s := t.DeletedAt.Format("2006-01-02T15:04:05Z07:00")
		body.DeleteDate = &s
		body.Status = "deleted"
	}
	return body
}
