package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RelayProject/btcrelay/engine"
	"github.com/RelayProject/btcrelay/hub"
	"github.com/RelayProject/btcrelay/index"
	"github.com/RelayProject/btcrelay/manager"
	"github.com/RelayProject/btcrelay/relay"
	"github.com/RelayProject/btcrelay/rescan"
)

// Server is the HTTP/WebSocket boundary adapter over the core operations
// (spec §4.I): it owns no domain state of its own, only references to the
// components that do.
type Server struct {
	ix          *index.Indices
	mgr         *manager.Manager
	chain       engine.Chain
	rescan      *rescan.Driver
	hub         *hub.Hub
	apiKeyHash  string
	corsOrigins []string
}

// NewServer wires a Server over the given core components.
func NewServer(ix *index.Indices, mgr *manager.Manager, chain engine.Chain, rd *rescan.Driver, h *hub.Hub, apiKeyHash string, corsOrigins []string) *Server {
	return &Server{ix: ix, mgr: mgr, chain: chain, rescan: rd, hub: h, apiKeyHash: apiKeyHash, corsOrigins: corsOrigins}
}

// Router builds the chi router implementing spec §6's route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.corsOrigins))
	r.Use(apiKeyAuth(s.apiKeyHash))

	r.Get("/relay", s.handleStatus)
	r.Delete("/relay", s.handleWipe)
	r.Get("/relay/latest/{maxID}", s.handleLatest)
	r.Post("/relay/rescan", s.handleRescan)
	r.Get("/relay/outpoint/{hash}/{index}", s.handleGetOutpoint)
	r.Get("/relay/script/{script}", s.handleGetScript)
	r.Get("/relay/request/{id}", s.handleGetRequest)
	r.Get("/relay/request", s.handleListRequests)
	r.Put("/relay/request", s.handlePutRequest)
	r.Delete("/relay/request", s.handleDeleteRequest)
	r.Get("/relay/ws", s.handleWebSocket)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeCoreError(w http.ResponseWriter, err error) {
	status, envelope := errorEnvelope(err)
	writeJSON(w, status, envelope)
}

// handleStatus implements GET /relay: {latest, height, tip}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	latest, err := s.ix.LatestRequest()
	var latestDTO *RequestDTO
	if err == nil {
		dto := encodeRequest(latest)
		latestDTO = &dto
	} else if !relay.IsKind(err, relay.KindNotFound) {
		writeCoreError(w, err)
		return
	}

	tip, err := s.chain.Tip()
	if err != nil {
		writeCoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"latest": latestDTO,
		"height": tip.Height,
		"tip":    tip.Hash.String(),
	})
}

// handleLatest implements GET /relay/latest/:maxID.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	maxID, err := relay.IDFromString(chi.URLParam(r, "maxID"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	req, err := s.ix.LatestRequestUnder(maxID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeRequest(req))
}

// handleRescan implements POST /relay/rescan: {height}.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Height uint32 `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	report, err := s.rescan.Run(context.Background(), body.Height, nil)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleGetOutpoint implements GET /relay/outpoint/:hash/:index.
func (s *Server) handleGetOutpoint(w http.ResponseWriter, r *http.Request) {
	hash, err := relay.IDFromString(chi.URLParam(r, "hash"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	index64, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed index")
		return
	}
	rec, err := s.ix.GetOutpoint(relay.Outpoint{Hash: hash, Index: uint32(index64)})
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeOutpointRecord(rec))
}

// handleGetScript implements GET /relay/script/:script.
func (s *Server) handleGetScript(w http.ResponseWriter, r *http.Request) {
	script, err := hex.DecodeString(chi.URLParam(r, "script"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed script hex")
		return
	}
	rec, err := s.ix.GetScript(relay.Script(script).Hash())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeScriptRecord(rec))
}

// handleGetRequest implements GET /relay/request/:id.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := relay.IDFromString(chi.URLParam(r, "id"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	req, err := s.ix.GetRequest(id)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeRequest(req))
}

// handleListRequests implements GET /relay/request.
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	var out []RequestDTO
	err := s.ix.IterRequests(func(req *relay.Request) error {
		out = append(out, encodeRequest(req))
		return nil
	})
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePutRequest implements PUT /relay/request. Returns 400 if neither
// spends nor pays is present (spec §6).
func (s *Server) handlePutRequest(w http.ResponseWriter, r *http.Request) {
	var dto RequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req, err := decodeRequest(dto)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	saved, opRec, scriptRec, err := s.mgr.AddRequest(req)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	resp := map[string]interface{}{"request": encodeRequest(saved)}
	if opRec != nil {
		resp["outpoint"] = encodeOutpointRecord(opRec)
	}
	if scriptRec != nil {
		resp["script"] = encodeScriptRecord(scriptRec)
	}

	if dto.Height != nil {
		match := newRequestPredicate(saved)
		report, err := s.rescan.Run(r.Context(), *dto.Height, match)
		if err != nil {
			writeCoreError(w, err)
			return
		}
		resp["rescan"] = report
	}

	writeJSON(w, http.StatusOK, resp)
}

// newRequestPredicate builds the engine.MatchFunc a rescan triggered by a
// freshly added Request uses to target only that Request's own outpoint or
// script, instead of the Engine's full Filter (spec §4.G: "avoiding
// spurious notifications for historical matches of unrelated Requests").
func newRequestPredicate(req *relay.Request) engine.MatchFunc {
	var outpointKey, scriptBytes []byte
	if req.Spends != nil {
		outpointKey = relay.OutpointKey(req.Spends.Hash, req.Spends.Index)
	}
	if len(req.Pays) > 0 {
		scriptBytes = req.Pays
	}
	return func(item []byte) bool {
		if outpointKey != nil && string(item) == string(outpointKey) {
			return true
		}
		if scriptBytes != nil && string(item) == string(scriptBytes) {
			return true
		}
		return false
	}
}

// handleDeleteRequest implements DELETE /relay/request: {id}.
func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	id, err := relay.IDFromString(body.ID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if err := s.mgr.DeleteRequest(id); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleWipe implements DELETE /relay.
func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Wipe(); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
