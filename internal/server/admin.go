package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/connector"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
)

const APIv1Prefix = "/api/v1/"

// AdminServerOpts параметры для настройки административного сервера.
type AdminServerOpts struct {
	Address             string `mapstructure:"address" validate:"required"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" validate:"min=0"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" validate:"min=0"`
	IdleTimeoutSeconds  int    `mapstructure:"idle_timeout_seconds" validate:"min=0"`
}

// ConnectorAPI вызовы фасада, доступные через административный сервер.
type ConnectorAPI interface {
	Descriptor() connector.Descriptor
	TestConnection(ctx context.Context, values models.ValueSet) string
	ListProjects(ctx context.Context, values models.ValueSet) ([]models.AgileProject, error)
	ExternalWorkPlan(ctx context.Context, values models.ValueSet, hostProjectID *int64) (*models.ExternalWorkPlan, error)
	EntityTypes(ctx context.Context, values models.ValueSet, projectID string) ([]models.AgileEntityInfo, error)
	EntityFields(ctx context.Context, values models.ValueSet, projectID, entityType string) ([]models.AgileEntityFieldInfo, error)
}

// AdminServer отдаёт результаты фасада в JSON и выгрузку плана работ.
type AdminServer struct {
	logger  *slog.Logger
	opts    *AdminServerOpts
	srv     *http.Server
	api     ConnectorAPI
	reports services.ReportGenerator
	values  models.ValueSet
}

// NewAdminHandler создаёт административный сервер. reports может быть nil.
func NewAdminHandler(logger *slog.Logger, api ConnectorAPI, reports services.ReportGenerator, values models.ValueSet, opts *AdminServerOpts) *AdminServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminServer{
		logger:  logger,
		opts:    opts,
		api:     api,
		reports: reports,
		values:  values,
	}
}

// Register регистрирует маршруты административного сервера.
func (h *AdminServer) Register(mux *http.ServeMux) {
	mux.HandleFunc(withPrefix("descriptor"), h.get(h.handleDescriptor))
	mux.HandleFunc(withPrefix("test-connection"), h.get(h.handleTestConnection))
	mux.HandleFunc(withPrefix("projects"), h.get(h.handleProjects))
	mux.HandleFunc(withPrefix("workplan"), h.get(h.handleWorkPlan))
	mux.HandleFunc(withPrefix("entity-types"), h.get(h.handleEntityTypes))
	mux.HandleFunc(withPrefix("fields"), h.get(h.handleFields))
	mux.HandleFunc(withPrefix("report"), h.get(h.handleReport))
}

// Handler возвращает обработчик со всеми маршрутами.
func (h *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

// get пропускает только GET запросы.
func (h *AdminServer) get(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			h.logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (h *AdminServer) handleDescriptor(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.api.Descriptor())
}

func (h *AdminServer) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	msg := h.api.TestConnection(r.Context(), h.values)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"ok":    msg == "",
		"error": msg,
	})
}

func (h *AdminServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.api.ListProjects(r.Context(), h.values)
	if err != nil {
		h.fail(w, "List projects", err)
		return
	}
	h.writeJSON(w, http.StatusOK, projects)
}

func (h *AdminServer) handleWorkPlan(w http.ResponseWriter, r *http.Request) {
	values := h.requestValues(r)

	hostProjectID, err := optionalInt(r.URL.Query().Get("hostProjectId"))
	if err != nil {
		http.Error(w, "hostProjectId must be an integer", http.StatusBadRequest)
		return
	}

	plan, err := h.api.ExternalWorkPlan(r.Context(), values, hostProjectID)
	if err != nil {
		h.fail(w, "Build work plan", err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *AdminServer) handleEntityTypes(w http.ResponseWriter, r *http.Request) {
	project := h.requestValues(r).Get(models.KeyWPProject)

	types, err := h.api.EntityTypes(r.Context(), h.values, project)
	if err != nil {
		h.fail(w, "List entity types", err)
		return
	}
	h.writeJSON(w, http.StatusOK, types)
}

func (h *AdminServer) handleFields(w http.ResponseWriter, r *http.Request) {
	project := h.requestValues(r).Get(models.KeyWPProject)
	entityType := strings.TrimSpace(r.URL.Query().Get("type"))
	if entityType == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}

	fields, err := h.api.EntityFields(r.Context(), h.values, project, entityType)
	if err != nil {
		h.fail(w, "List entity fields", err)
		return
	}
	h.writeJSON(w, http.StatusOK, fields)
}

// handleReport строит выгрузку плана работ и отдаёт файл.
func (h *AdminServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		http.Error(w, "Reports are disabled", http.StatusNotFound)
		return
	}

	path, err := h.reports.GenerateExcelReport(r.Context())
	if err != nil {
		h.fail(w, "Generate report", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

// requestValues конфигурация с проектом из параметра project, если он передан.
func (h *AdminServer) requestValues(r *http.Request) models.ValueSet {
	project := strings.TrimSpace(r.URL.Query().Get("project"))
	if project == "" {
		return h.values
	}

	values := make(models.ValueSet, len(h.values)+1)
	for k, v := range h.values {
		if strings.EqualFold(k, models.KeyWPProject) {
			continue
		}
		values[k] = v
	}
	values[models.KeyWPProject] = project
	return values
}

func (h *AdminServer) fail(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action, "error", err)

	status := http.StatusInternalServerError
	if errors.Is(err, services.ErrMissingAccessToken) {
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *AdminServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Encode response", "error", err)
	}
}

func optionalInt(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Start запускает административный сервер.
func (h *AdminServer) Start(ctx context.Context) error {
	h.logger.Info("Starting admin server", "address", h.opts.Address)
	h.srv = &http.Server{
		Addr:         h.opts.Address,
		ReadTimeout:  time.Duration(h.opts.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(h.opts.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(h.opts.IdleTimeoutSeconds) * time.Second,
		Handler:      h.Handler(),
	}

	go func() {
		<-ctx.Done()

		h.logger.Info("Shutting down admin server (ctx canceled)")

		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			h.logger.Error("Admin server shutdown error", "error", err)
		}
	}()

	if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.logger.Error("Admin server error", "error", err)
		return err
	}

	h.logger.Info("Admin server stopped")
	return nil
}

// withPrefix добавляет префикс к пути API.
func withPrefix(postfix string) string {
	return APIv1Prefix + strings.TrimSpace(postfix)
}
