package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskforge/api/internal/repository"
	"github.com/taskforge/api/internal/service/auth"
	"github.com/taskforge/api/internal/service/comment"
	"github.com/taskforge/api/internal/service/events"
	"github.com/taskforge/api/internal/service/issue"
	"github.com/taskforge/api/internal/service/project"
	"github.com/taskforge/api/internal/service/user"
	"github.com/taskforge/api/internal/ws"
	"github.com/taskforge/api/pkg/config"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	users    user.Service
	projects project.Service
	issues   issue.Service
	comments comment.Service
	events   *events.Service
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error

	pageDefault int
	pageMax     int

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, userSvc user.Service, projectSvc project.Service, issueSvc issue.Service, commentSvc comment.Service, eventsSvc *events.Service, limiter RateLimiter, cfg config.APIConfig, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		users:    userSvc,
		projects: projectSvc,
		issues:   issueSvc,
		comments: commentSvc,
		events:   eventsSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:     limiter,
		dbHealth:    dbHealth,
		pageDefault: cfg.DefaultPageSize,
		pageMax:     cfg.MaxPageSize,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.pageDefault <= 0 {
		r.pageDefault = 10
	}
	if r.pageMax < r.pageDefault {
		r.pageMax = r.pageDefault
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/token/", r.audit(r.handleToken))
	r.mux.HandleFunc("/users/", r.audit(r.handleUsers))
	r.mux.HandleFunc("/projects/", r.audit(r.handlerAuthRate("/projects/", rateLimitUserWrite, rateWindowDefault, r.handleProjects)))
	r.mux.HandleFunc("/contributors/", r.audit(r.handlerAuthRate("/contributors/", rateLimitUserWrite, rateWindowDefault, r.handleContributors)))
	r.mux.HandleFunc("/issues/", r.audit(r.handlerAuthRate("/issues/", rateLimitUserWrite, rateWindowDefault, r.handleIssues)))
	r.mux.HandleFunc("/comments/", r.audit(r.handlerAuthRate("/comments/", rateLimitUserWrite, rateWindowDefault, r.handleComments)))
	r.mux.HandleFunc("/ws/events", r.audit(r.handlerAuthRate("/ws/events", rateLimitWebsocket, rateWindowRealtime, r.handleEventsWS)))
}

func (r *Router) handleToken(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/api/token"), "/")
	switch trimmed {
	case "":
		r.withRateLimit("/api/token/", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)(w, req)
	case "refresh":
		r.withRateLimit("/api/token/refresh/", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleTokenRefresh)(w, req)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	_, tokens, err := r.auth.Login(req.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (r *Router) handleTokenRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tokens, err := r.auth.Refresh(req.Context(), payload.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/users/"), "/")
	if trimmed == "" {
		switch req.Method {
		case http.MethodPost:
			r.withRateLimit("/users/", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup)(w, req)
		case http.MethodGet:
			r.handlerAuthRate("/users/", rateLimitUserRead, rateWindowDefault, r.handleListUsers)(w, req)
		default:
			r.methodNotAllowed(w)
		}
		return
	}
	if strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	r.handlerAuthRate("/users/{id}", rateLimitUserWrite, rateWindowDefault, func(w http.ResponseWriter, req *http.Request) {
		r.handleUserItem(w, req, trimmed)
	})(w, req)
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Age             int    `json:"age"`
		CanBeContacted  bool   `json:"can_be_contacted"`
		CanDataBeShared bool   `json:"can_data_be_shared"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.users.Create(req.Context(), user.CreateInput{
		Username:        payload.Username,
		Email:           payload.Email,
		Password:        payload.Password,
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		Age:             payload.Age,
		CanBeContacted:  payload.CanBeContacted,
		CanDataBeShared: payload.CanDataBeShared,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*created))
}

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) {
	if _, ok := r.actor(w, req); !ok {
		return
	}
	filter, err := parseUserFilter(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := r.pageParams(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	users, count, err := r.users.List(req.Context(), filter, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, count, limit, offset, toUserResponses(users))
}

func (r *Router) handleUserItem(w http.ResponseWriter, req *http.Request, id string) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		found, err := r.users.Get(req.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(*found))
	case http.MethodPut, http.MethodPatch:
		var payload struct {
			Email           *string `json:"email"`
			Password        *string `json:"password"`
			FirstName       *string `json:"first_name"`
			LastName        *string `json:"last_name"`
			Age             *int    `json:"age"`
			CanBeContacted  *bool   `json:"can_be_contacted"`
			CanDataBeShared *bool   `json:"can_data_be_shared"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.users.Update(req.Context(), actorID, id, user.UpdateInput{
			Email:           payload.Email,
			Password:        payload.Password,
			FirstName:       payload.FirstName,
			LastName:        payload.LastName,
			Age:             payload.Age,
			CanBeContacted:  payload.CanBeContacted,
			CanDataBeShared: payload.CanDataBeShared,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(*updated))
	case http.MethodDelete:
		if err := r.users.Delete(req.Context(), actorID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/projects/"), "/")
	if trimmed == "" {
		r.handleProjectCollection(w, req)
		return
	}
	if strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	r.handleProjectItem(w, req, trimmed)
}

func (r *Router) handleProjectCollection(w http.ResponseWriter, req *http.Request) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		limit, offset, err := r.pageParams(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		projects, count, err := r.projects.List(req.Context(), actorID, req.URL.Query().Get("type"), limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, count, limit, offset, toProjectResponses(projects))
	case http.MethodPost:
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Type        string `json:"type"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.projects.Create(req.Context(), actorID, project.CreateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Type:        payload.Type,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProjectResponse(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectItem(w http.ResponseWriter, req *http.Request, id string) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		found, err := r.projects.Get(req.Context(), actorID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProjectResponse(*found))
	case http.MethodPut, http.MethodPatch:
		var payload struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Type        *string `json:"type"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.projects.Update(req.Context(), actorID, id, project.UpdateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Type:        payload.Type,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProjectResponse(*updated))
	case http.MethodDelete:
		if err := r.projects.Delete(req.Context(), actorID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleContributors(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/contributors/"), "/")
	if trimmed == "" {
		r.handleContributorCollection(w, req)
		return
	}
	if strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	r.handleContributorItem(w, req, trimmed)
}

func (r *Router) handleContributorCollection(w http.ResponseWriter, req *http.Request) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		projectID := req.URL.Query().Get("project")
		if projectID == "" {
			writeError(w, http.StatusBadRequest, "project query parameter required")
			return
		}
		limit, offset, err := r.pageParams(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		contributors, count, err := r.projects.ListContributors(req.Context(), actorID, projectID, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, count, limit, offset, toContributorResponses(contributors))
	case http.MethodPost:
		var payload struct {
			ProjectID string `json:"project"`
			UserID    string `json:"user"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.projects.AddContributor(req.Context(), actorID, payload.ProjectID, payload.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toContributorResponse(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleContributorItem(w http.ResponseWriter, req *http.Request, id string) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		found, err := r.projects.GetContributor(req.Context(), actorID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toContributorResponse(*found))
	case http.MethodDelete:
		if err := r.projects.RemoveContributor(req.Context(), actorID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleIssues(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/issues/"), "/")
	if trimmed == "" {
		r.handleIssueCollection(w, req)
		return
	}
	if strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	r.handleIssueItem(w, req, trimmed)
}

func (r *Router) handleIssueCollection(w http.ResponseWriter, req *http.Request) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		query := req.URL.Query()
		filter := issue.ListFilter{
			ProjectID:  query.Get("project"),
			Tag:        query.Get("tag"),
			Status:     query.Get("status"),
			Priority:   query.Get("priority"),
			AssigneeID: query.Get("assignee"),
		}
		if filter.ProjectID == "" {
			writeError(w, http.StatusBadRequest, "project query parameter required")
			return
		}
		limit, offset, err := r.pageParams(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		issues, count, err := r.issues.List(req.Context(), actorID, filter, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, count, limit, offset, toIssueResponses(issues))
	case http.MethodPost:
		var payload struct {
			ProjectID   string `json:"project"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Tag         string `json:"tag"`
			Priority    string `json:"priority"`
			Status      string `json:"status"`
			AssigneeID  string `json:"assignee"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.issues.Create(req.Context(), actorID, issue.CreateInput{
			ProjectID:   payload.ProjectID,
			Title:       payload.Title,
			Description: payload.Description,
			Tag:         payload.Tag,
			Priority:    payload.Priority,
			Status:      payload.Status,
			AssigneeID:  payload.AssigneeID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toIssueResponse(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleIssueItem(w http.ResponseWriter, req *http.Request, id string) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		found, err := r.issues.Get(req.Context(), actorID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toIssueResponse(*found))
	case http.MethodPut, http.MethodPatch:
		var payload struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Tag         *string `json:"tag"`
			Priority    *string `json:"priority"`
			Status      *string `json:"status"`
			AssigneeID  *string `json:"assignee"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.issues.Update(req.Context(), actorID, id, issue.UpdateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Tag:         payload.Tag,
			Priority:    payload.Priority,
			Status:      payload.Status,
			AssigneeID:  payload.AssigneeID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toIssueResponse(*updated))
	case http.MethodDelete:
		if err := r.issues.Delete(req.Context(), actorID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleComments(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/comments/"), "/")
	if trimmed == "" {
		r.handleCommentCollection(w, req)
		return
	}
	if strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	r.handleCommentItem(w, req, trimmed)
}

func (r *Router) handleCommentCollection(w http.ResponseWriter, req *http.Request) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		issueID := req.URL.Query().Get("issue")
		if issueID == "" {
			writeError(w, http.StatusBadRequest, "issue query parameter required")
			return
		}
		limit, offset, err := r.pageParams(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		comments, count, err := r.comments.List(req.Context(), actorID, issueID, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, count, limit, offset, toCommentResponses(comments))
	case http.MethodPost:
		var payload struct {
			IssueID     string `json:"issue"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.comments.Create(req.Context(), actorID, comment.CreateInput{
			IssueID:     payload.IssueID,
			Description: payload.Description,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCommentResponse(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleCommentItem(w http.ResponseWriter, req *http.Request, id string) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		found, err := r.comments.Get(req.Context(), actorID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCommentResponse(*found))
	case http.MethodPut, http.MethodPatch:
		var payload struct {
			Description string `json:"description"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.comments.Update(req.Context(), actorID, id, payload.Description)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCommentResponse(*updated))
	case http.MethodDelete:
		if err := r.comments.Delete(req.Context(), actorID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	actorID, ok := r.actor(w, req)
	if !ok {
		return
	}
	if r.events == nil || r.events.Hub() == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream disabled")
		return
	}
	projectID := req.URL.Query().Get("project_id")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project_id query parameter required")
		return
	}
	// Subscription requires the same visibility as reading the project.
	if _, err := r.projects.Get(req.Context(), actorID, projectID); err != nil {
		writeServiceError(w, err)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub := r.events.Hub()
	hub.Register(projectID, client)
	go func() {
		defer func() {
			hub.Unregister(projectID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// actor extracts the authenticated user from context. Handlers behind
// requireAuth treat a missing entry as a wiring bug.
func (r *Router) actor(w http.ResponseWriter, req *http.Request) (string, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return "", false
	}
	return info.UserID, true
}

func (r *Router) pageParams(req *http.Request) (int, int, error) {
	query := req.URL.Query()
	limit := r.pageDefault
	if raw := query.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", raw)
		}
		limit = value
	}
	if limit > r.pageMax {
		limit = r.pageMax
	}
	offset := 0
	if raw := query.Get("offset"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", raw)
		}
		offset = value
	}
	return limit, offset, nil
}

func parseUserFilter(req *http.Request) (repository.UserFilter, error) {
	var filter repository.UserFilter
	query := req.URL.Query()
	intParam := func(name string, dst **int) error {
		raw := query.Get(name)
		if raw == "" {
			return nil
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
		*dst = &value
		return nil
	}
	boolParam := func(name string, dst **bool) error {
		raw := query.Get(name)
		if raw == "" {
			return nil
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
		*dst = &value
		return nil
	}
	checks := []error{
		intParam("age", &filter.Age),
		intParam("age_gt", &filter.AgeGT),
		intParam("age_gte", &filter.AgeGTE),
		intParam("age_lt", &filter.AgeLT),
		intParam("age_lte", &filter.AgeLTE),
		boolParam("can_be_contacted", &filter.CanBeContacted),
		boolParam("can_data_be_shared", &filter.CanDataBeShared),
	}
	for _, err := range checks {
		if err != nil {
			return repository.UserFilter{}, err
		}
	}
	return filter, nil
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, routeLabel(req.URL.Path), status, duration)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

// routeLabel collapses item paths so metric cardinality stays bounded.
func routeLabel(path string) string {
	for _, prefix := range []string{"/users/", "/projects/", "/contributors/", "/issues/", "/comments/"} {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if strings.Trim(strings.TrimPrefix(path, prefix), "/") == "" {
			return prefix
		}
		return prefix + "{id}"
	}
	return path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
