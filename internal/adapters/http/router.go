package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/core/ports"
)

const apiPrefix = "/api/v1"

// TrafficConfig bounds inbound load before any handler runs.
type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	MaxWait        time.Duration
}

type Router struct {
	directory ports.ProcedureDirectory
	feedback  ports.FeedbackService
	exporter  ports.FeedbackExporter
	proxy     http.Handler
	traffic   TrafficConfig
	observer  TrafficObserver
}

func NewRouter(
	directory ports.ProcedureDirectory,
	feedback ports.FeedbackService,
	exporter ports.FeedbackExporter,
	proxy http.Handler,
	traffic TrafficConfig,
	observer TrafficObserver,
) *Router {
	return &Router{
		directory: directory,
		feedback:  feedback,
		exporter:  exporter,
		proxy:     proxy,
		traffic:   traffic,
		observer:  observer,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc(apiPrefix+"/procedures", rt.listProcedures)
	mux.HandleFunc(apiPrefix+"/procedures/", rt.procedureSubtree)
	mux.HandleFunc(apiPrefix+"/feedback/", rt.respondFeedback)
	mux.HandleFunc("/", rt.fallback)

	var handler http.Handler = mux
	maxWait := rt.traffic.MaxWait
	if maxWait <= 0 {
		maxWait = 500 * time.Millisecond
	}
	handler = backpressureWithObserver(handler, rt.traffic.MaxConcurrent, maxWait, rt.observer)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst, rt.observer)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listProcedures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	query := domain.ProcedureListQuery{
		Page:              queryInt(q.Get("page")),
		Limit:             queryInt(q.Get("limit")),
		Name:              q.Get("name"),
		OrganizationID:    q.Get("organizationID"),
		GroupID:           q.Get("groupID"),
		MinProcessingDays: queryInt(q.Get("minProcessingDays")),
		MaxProcessingDays: queryInt(q.Get("maxProcessingDays")),
		SortBy:            q.Get("sortBy"),
		SortOrder:         q.Get("sortOrder"),
	}

	list, err := rt.directory.List(r.Context(), query)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// procedureSubtree dispatches /api/v1/procedures/{id}[/feedback[/export]].
func (rt *Router) procedureSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix+"/procedures/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		rt.getProcedure(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "feedback":
		rt.procedureFeedback(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "feedback" && parts[2] == "export":
		rt.exportFeedback(w, r, parts[0])
	default:
		rt.fallback(w, r)
	}
}

func (rt *Router) getProcedure(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	proc, err := rt.directory.Get(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proc)
}

func (rt *Router) procedureFeedback(w http.ResponseWriter, r *http.Request, procedureID string) {
	switch r.Method {
	case http.MethodGet:
		rt.listFeedback(w, r, procedureID)
	case http.MethodPost:
		rt.submitFeedback(w, r, procedureID)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) listFeedback(w http.ResponseWriter, r *http.Request, procedureID string) {
	q := r.URL.Query()
	page, err := rt.feedback.List(
		r.Context(),
		procedureID,
		queryInt(q.Get("page")),
		queryInt(q.Get("limit")),
		q.Get("status"),
		bearerToken(r),
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) submitFeedback(w http.ResponseWriter, r *http.Request, procedureID string) {
	var req struct {
		Content string   `json:"content"`
		Type    string   `json:"type"`
		Tags    []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	item, err := rt.feedback.Submit(r.Context(), domain.SubmitFeedbackParams{
		ProcedureID: procedureID,
		Content:     req.Content,
		Type:        domain.FeedbackType(req.Type),
		Tags:        req.Tags,
		AuthToken:   bearerToken(r),
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (rt *Router) respondFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		rt.fallback(w, r)
		return
	}

	feedbackID := strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix+"/feedback/"), "/")
	if feedbackID == "" || strings.Contains(feedbackID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "feedback id is required"})
		return
	}

	var req struct {
		AdminResponse string `json:"admin_response"`
		Status        string `json:"status"`
		ProcedureID   string `json:"procedureID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	message, err := rt.feedback.Respond(r.Context(), domain.RespondFeedbackParams{
		FeedbackID:    feedbackID,
		ProcedureID:   req.ProcedureID,
		AdminResponse: req.AdminResponse,
		Status:        req.Status,
		AuthToken:     bearerToken(r),
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if message == "" {
		message = "feedback updated"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (rt *Router) exportFeedback(w http.ResponseWriter, r *http.Request, procedureID string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	workbook, err := rt.exporter.Export(r.Context(), procedureID, bearerToken(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="feedback-`+procedureID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

// fallback hands unrecognized API routes to the upstream proxy.
func (rt *Router) fallback(w http.ResponseWriter, r *http.Request) {
	if rt.proxy != nil && strings.HasPrefix(r.URL.Path, apiPrefix+"/") {
		rt.proxy.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func queryInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
