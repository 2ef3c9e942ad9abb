package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deviced/internal/device"
	"deviced/pkg/types"
)

// Service defines the device-manager surface required by the HTTP layer.
type Service interface {
	AddNetworks(functions map[string]device.CompiledFunction, readyCB device.ReadyCallback)
	EvictNetwork(name string, evictCB device.EvictCallback)
	Run(ctx context.Context, runID uint64, name string, ec *device.ExecContext, resultCB device.ResultCallback)
	Status() types.StatusResponse
	Info() types.DeviceCaps
	RemotePeerAddress(channelID int64, bindings *device.ExecContext) (int64, error)
	IsPeerToPeerSupported() bool
}

// Catalog resolves network names to compiled handles.
type Catalog interface {
	Lookup(name string) (device.CompiledFunction, bool)
	List() []types.NetworkSpec
}

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

// server carries the handler state; run identifiers are issued from a
// process-local counter, request identifiers are UUIDs.
type server struct {
	svc   Service
	cat   Catalog
	runID atomic.Uint64
}

// NewMux builds the router: network lifecycle, execution, peer addressing,
// status/capability, health, and metrics endpoints.
func NewMux(svc Service, cat Catalog) http.Handler {
	s := &server{svc: svc, cat: cat}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)

	r.Get("/networks", s.handleListNetworks)
	r.Post("/networks", s.handleAddNetworks)
	r.Delete("/networks/{name}", s.handleEvictNetwork)
	r.Post("/networks/{name}/run", s.handleRun)
	r.Get("/status", s.handleStatus)
	r.Get("/device", s.handleDevice)
	r.Get("/peer-address", s.handlePeerAddress)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// handleListNetworks godoc
// @Summary List networks available in the manifest catalog
// @Produce json
// @Success 200 {object} map[string][]types.NetworkSpec
// @Router /networks [get]
func (s *server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"networks": s.cat.List()})
}

// handleStatus godoc
// @Summary Device memory and residency status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

// handleDevice godoc
// @Summary Static device capability numbers
// @Produce json
// @Success 200 {object} types.DeviceCaps
// @Router /device [get]
func (s *server) handleDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"caps":         s.svc.Info(),
		"peer_to_peer": s.svc.IsPeerToPeerSupported(),
	})
}

// handleAddNetworks godoc
// @Summary Make a batch of networks resident
// @Accept json
// @Produce json
// @Param request body types.AddNetworksRequest true "network names"
// @Success 200
// @Failure 400 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Failure 507 {object} types.ErrorResponse
// @Router /networks [post]
func (s *server) handleAddNetworks(w http.ResponseWriter, r *http.Request) {
	var req types.AddNetworksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Networks) == 0 {
		writeJSONError(w, http.StatusBadRequest, "networks is required")
		return
	}
	batch := make(map[string]device.CompiledFunction, len(req.Networks))
	for _, name := range req.Networks {
		fn, ok := s.cat.Lookup(name)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "unknown network manifest: "+name)
			return
		}
		batch[name] = fn
	}
	var addErr error
	s.svc.AddNetworks(batch, func(err error) { addErr = err })
	if addErr != nil {
		writeJSONError(w, statusForError(addErr), addErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": req.Networks})
}

// handleEvictNetwork godoc
// @Summary Evict a resident network
// @Produce json
// @Param name path string true "network name"
// @Success 200
// @Failure 404 {object} types.ErrorResponse
// @Router /networks/{name} [delete]
func (s *server) handleEvictNetwork(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var evictErr error
	s.svc.EvictNetwork(name, func(n string, err error) { evictErr = err })
	if evictErr != nil {
		writeJSONError(w, statusForError(evictErr), evictErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evicted": name})
}

// handleRun godoc
// @Summary Execute one request against a resident network
// @Accept json
// @Produce json
// @Param name path string true "network name"
// @Param request body types.RunRequest true "placeholder bindings"
// @Success 200 {object} types.RunResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 429 {object} types.ErrorResponse
// @Router /networks/{name}/run [post]
func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req types.RunRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ec := device.NewExecContext()
	for ph, b64 := range req.Inputs {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "input "+ph+" is not valid base64")
			return
		}
		ec.Bind(ph, data)
	}

	runID := s.runID.Add(1)
	requestID := uuid.NewString()

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	var runErr error
	s.svc.Run(ctx, runID, name, ec, func(id uint64, err error, out *device.ExecContext) {
		runErr = err
		ec = out
	})
	if runErr != nil {
		if device.IsResourceExhausted(runErr) {
			IncrementBackpressure("buffer_slots")
		}
		writeJSONError(w, statusForError(runErr), runErr.Error())
		return
	}

	outputs := make(map[string]string, len(ec.Bindings()))
	for ph, data := range ec.Bindings() {
		outputs[ph] = base64.StdEncoding.EncodeToString(data)
	}
	writeJSON(w, http.StatusOK, types.RunResponse{
		RequestID: requestID,
		RunID:     runID,
		Outputs:   outputs,
	})
}

// handlePeerAddress godoc
// @Summary Resolve the peer-to-peer address of the receive placeholder
// @Produce json
// @Param channel query int false "channel identifier"
// @Success 200 {object} types.PeerAddressResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /peer-address [get]
func (s *server) handlePeerAddress(w http.ResponseWriter, r *http.Request) {
	var channelID int64
	if v := r.URL.Query().Get("channel"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "channel must be an integer")
			return
		}
		channelID = id
	}
	addr, err := s.svc.RemotePeerAddress(channelID, nil)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.PeerAddressResponse{ChannelID: channelID, Address: addr})
}

// decodeJSON enforces content type and body size, reporting false after
// writing the error response.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlogError(err, "encode response")
	}
}
