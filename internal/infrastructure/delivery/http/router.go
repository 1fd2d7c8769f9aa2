// Package httprouter exposes the service over HTTP.
package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"

	"instadl/internal/config"
	"instadl/internal/consts"
	"instadl/internal/entity"
	"instadl/internal/errs"
	"instadl/internal/infrastructure/delivery/http/middleware"
	"instadl/internal/infrastructure/delivery/http/request"
	"instadl/internal/infrastructure/delivery/http/response"
	"instadl/internal/observability"
	"instadl/pkg/sanitize"
)

// Service is the surface the router consumes from the orchestrator.
type Service interface {
	Resolve(ctx context.Context, url string, contentType entity.ContentType) (string, entity.Session, error)
	Enqueue(ctx context.Context, sessionID, formatID string) (string, error)
	SnapshotStatus(ctx context.Context, jobID string) (entity.Job, bool)
}

// Router is the HTTP entry point.
type Router struct {
	*http.ServeMux
	log         *slog.Logger
	cfg         *config.Config
	svc         Service
	metrics     *observability.Metrics
	globalChain []func(http.Handler) http.Handler
	routeChain  []func(http.Handler) http.Handler
	isSubRouter bool
}

// New builds the router with its middleware chain and routes.
func New(log *slog.Logger, cfg *config.Config, svc Service, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		cfg:      cfg,
		svc:      svc,
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

// Use appends middleware to the active chain.
func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, mw...)
	} else {
		r.globalChain = append(r.globalChain, mw...)
	}
}

// Handle registers a handler wrapped with the route chain.
func (r *Router) Handle(pattern string, h http.Handler) {
	for _, mw := range slices.Backward(r.routeChain) {
		h = mw(h)
	}
	r.ServeMux.Handle(pattern, h)
}

// HandleFunc registers a handler func wrapped with the route chain.
func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

// ServeHTTP applies the global chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, mw := range slices.Backward(r.globalChain) {
		h = mw(h)
	}

	h.ServeHTTP(w, req)
}

// SetGlobalMiddlewares installs the global middleware chain.
func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

// SetRoutes registers all routes.
func (r *Router) SetRoutes() {
	r.HandleFunc("POST /v1/extract", r.Extract)
	r.HandleFunc("POST /v1/download", r.Download)
	r.HandleFunc("GET /v1/status/{id}", r.Status)
	r.HandleFunc("GET /v1/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.HandleFunc("GET "+consts.VideoRoute+"{filename}", r.ServeVideo)
	r.Handle("GET /metrics", observability.Handler())
}

// Extract resolves a URL into formats and creates a session.
func (r *Router) Extract(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "Extract"))

	ctx, cancel := context.WithTimeout(req.Context(), r.cfg.HTTP.ExtractTimeout)
	defer cancel()

	var in request.Extract
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, "", errs.ErrInvalidRequestBody)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, "", err)

		return
	}

	sessionID, session, err := r.svc.Resolve(ctx, in.NormalizedURL(), in.DetectedContentType())
	if errors.Is(err, errs.ErrUnsupportedContent) {
		log.DebugContext(ctx, consts.RespExtractFail, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespExtractFail, errs.KindStoryNotSupported, err)

		return
	}
	if err != nil {
		log.ErrorContext(ctx, consts.RespExtractFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespExtractFail, errs.Kind(err), err)

		return
	}

	response.OK(w, consts.RespExtractOK, map[string]any{
		"session_id":   sessionID,
		"content_type": session.ContentType,
		"video_info":   session.Info,
	})
}

// Download enqueues a job for a resolved session.
func (r *Router) Download(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "Download"))
	ctx := req.Context()

	var in request.Download
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, "", errs.ErrInvalidRequestBody)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, errs.Kind(err), err)

		return
	}

	jobID, err := r.svc.Enqueue(ctx, in.SessionID, in.FormatID)

	switch {
	case errors.Is(err, errs.ErrInvalidSession):
		log.DebugContext(ctx, consts.RespDownloadStartFail, slog.Any("error", err))
		response.NotFound(w, consts.RespDownloadStartFail, errs.KindInvalidSession)

		return
	case errors.Is(err, errs.ErrUnsupportedContent):
		log.DebugContext(ctx, consts.RespDownloadStartFail, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespDownloadStartFail, errs.KindStoryNotSupported, err)

		return
	case err != nil:
		log.ErrorContext(ctx, consts.RespDownloadStartFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespDownloadStartFail, errs.Kind(err), err)

		return
	}

	log.InfoContext(ctx, consts.RespDownloadStarted, slog.String("job_id", jobID))

	response.Accepted(w, consts.RespDownloadStarted, map[string]any{
		"job_id": jobID,
	})
}

// Status returns a point-in-time snapshot of a job record.
func (r *Router) Status(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "Status"))

	ctx, cancel := context.WithTimeout(req.Context(), r.cfg.HTTP.HandlerTimeout)
	defer cancel()

	id := req.PathValue("id")
	if id == "" {
		response.BadRequest(w, consts.RespJobNotFound, "", errs.ErrJobIDEmpty)

		return
	}

	job, ok := r.svc.SnapshotStatus(ctx, id)
	if !ok {
		log.DebugContext(ctx, consts.RespJobNotFound, slog.String("job_id", id))
		response.NotFound(w, consts.RespJobNotFound, errs.KindJobNotFound)

		return
	}

	response.OK(w, consts.RespJobRetrieved, job)
}

// ServeVideo serves a finalized artifact by filename.
func (r *Router) ServeVideo(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "ServeVideo"))

	filename := req.PathValue("filename")
	if !sanitize.IsBaseName(filename) {
		response.BadRequest(w, consts.RespFileNotFound, "", nil)

		return
	}

	path := filepath.Join(r.cfg.Dir.Outputs, filename)

	if _, err := filepath.Rel(r.cfg.Dir.Outputs, path); err != nil {
		response.BadRequest(w, consts.RespFileNotFound, "", nil)

		return
	}

	log.DebugContext(req.Context(), "serving file", slog.String("path", path))

	http.ServeFile(w, req, path)
}
