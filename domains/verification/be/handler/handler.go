package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zenGate-Global/domain-verification/domains/verification/be/service"
	platformlogging "github.com/zenGate-Global/domain-verification/platform/go/logging"
	"github.com/zenGate-Global/domain-verification/platform/go/problem"
)

const maxBodyBytes = 1 << 20

type operation string

const (
	rootOperation         operation = "root"
	registerOperation     operation = "registerDomain"
	verifyOperation       operation = "generateVerificationToken"
	checkOperation        operation = "checkDomainVerification"
	statusOperation       operation = "getDomainStatus"
	instructionsOperation operation = "getVerificationInstructions"
	logsOperation         operation = "listVerificationLogs"
)

// Defaults fill in request fields a caller may omit.
type Defaults struct {
	ServiceHost  string `env:"SERVICE_HOST"`
	TxtRecordKey string `env:"TXT_RECORD_VERIFY_KEY"`
}

// Handler maps the verification engine onto HTTP.
type Handler struct {
	svc      service.Service
	logger   *zap.Logger
	defaults Defaults
	validate *validator.Validate
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger, defaults Defaults) *Handler {
	if svc == nil {
		panic("verification service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{svc: svc, logger: logger, defaults: defaults, validate: validate}
}

// Routes mounts the domain endpoints on r, relative to /api/domains.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/push", h.RegisterDomain)
	r.Post("/verify", h.GenerateVerificationToken)
	r.Post("/check", h.CheckDomainVerification)
	r.Get("/status", h.GetDomainStatus)
	r.Get("/instructions", h.GetVerificationInstructions)
	r.Get("/logs", h.ListVerificationLogs)
}

// Root reports that the service is up and its store reachable.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.svc.Ping(ctx); err != nil {
		h.loggerFrom(ctx).Error("database connectivity check failed", zap.String("operation", string(rootOperation)), zap.Error(err))
		problem.Write(w, problem.New(http.StatusInternalServerError, problem.TypeUnavailable,
			"Service unavailable", "failed to connect to the database"))
		return
	}

	writeJSON(w, http.StatusOK, rootResponse{
		Message:       "Domain Verification Service is running",
		Documentation: "/docs",
		Endpoints: map[string]string{
			"push":         "POST /api/domains/push",
			"verify":       "POST /api/domains/verify",
			"check":        "POST /api/domains/check",
			"status":       "GET /api/domains/status",
			"instructions": "GET /api/domains/instructions",
			"logs":         "GET /api/domains/logs",
		},
	})
}

func (h *Handler) RegisterDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerDomainRequest
	if !h.decodeAndValidate(w, r, &req, registerOperation) {
		return
	}

	record, err := h.svc.RegisterDomain(ctx, req.Domain, req.IP, req.CustomerID)
	if err != nil {
		h.writeError(w, r, err, registerOperation)
		return
	}

	writeJSON(w, http.StatusOK, registerDomainResponse{
		Success: true,
		Message: "Domain registered successfully",
		Domain:  toDomainDTO(record),
	})
}

func (h *Handler) GenerateVerificationToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verificationRequest
	if !h.decodeAndValidate(w, r, &req, verifyOperation) {
		return
	}
	serviceHost, txtKey, ok := h.resolveDefaults(w, r, req.ServiceHost, req.TxtRecordVerifyKey, verifyOperation)
	if !ok {
		return
	}

	customerID := req.CustomerID
	token, err := h.svc.GenerateVerificationToken(ctx, req.Domain, &customerID)
	if err != nil {
		h.writeError(w, r, err, verifyOperation)
		return
	}

	instructions, err := h.svc.GetVerificationInstructions(ctx, req.Domain, &customerID, serviceHost, txtKey)
	if err != nil {
		h.writeError(w, r, err, verifyOperation)
		return
	}

	writeJSON(w, http.StatusOK, generateTokenResponse{
		Success:      true,
		Token:        token,
		Instructions: toInstructionsDTO(instructions),
	})
}

func (h *Handler) CheckDomainVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verificationRequest
	if !h.decodeAndValidate(w, r, &req, checkOperation) {
		return
	}
	serviceHost, txtKey, ok := h.resolveDefaults(w, r, req.ServiceHost, req.TxtRecordVerifyKey, checkOperation)
	if !ok {
		return
	}

	customerID := req.CustomerID
	verified, err := h.svc.CompleteDomainVerification(ctx, req.Domain, serviceHost, &customerID, txtKey)
	if err != nil {
		h.writeError(w, r, err, checkOperation)
		return
	}
	if !verified {
		h.writeError(w, r, fmt.Errorf("%w: domain %s was not verified", service.ErrTxtVerificationFailed, req.Domain), checkOperation)
		return
	}

	writeJSON(w, http.StatusOK, checkVerificationResponse{
		Success:  true,
		Verified: true,
		Message:  "Domain verified successfully",
		Domain:   req.Domain,
	})
}

func (h *Handler) GetDomainStatus(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseDomainQuery(w, r, statusOperation)
	if !ok {
		return
	}

	status, err := h.svc.GetDomainStatus(r.Context(), query.Domain, &query.CustomerID)
	if err != nil {
		h.writeError(w, r, err, statusOperation)
		return
	}

	writeJSON(w, http.StatusOK, domainStatusResponse{Success: true, Status: toStatusDTO(status)})
}

func (h *Handler) GetVerificationInstructions(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseDomainQuery(w, r, instructionsOperation)
	if !ok {
		return
	}
	values := r.URL.Query()
	serviceHost, txtKey, ok := h.resolveDefaults(w, r, values.Get("serviceHost"), values.Get("txtRecordVerifyKey"), instructionsOperation)
	if !ok {
		return
	}

	instructions, err := h.svc.GetVerificationInstructions(r.Context(), query.Domain, &query.CustomerID, serviceHost, txtKey)
	if err != nil {
		h.writeError(w, r, err, instructionsOperation)
		return
	}

	writeJSON(w, http.StatusOK, instructionsResponse{Success: true, Instructions: toInstructionsDTO(instructions)})
}

func (h *Handler) ListVerificationLogs(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseDomainQuery(w, r, logsOperation)
	if !ok {
		return
	}

	entries, err := h.svc.ListVerificationLogs(r.Context(), query.Domain, &query.CustomerID)
	if err != nil {
		h.writeError(w, r, err, logsOperation)
		return
	}

	writeJSON(w, http.StatusOK, logsResponse{Success: true, Logs: toLogDTOs(entries)})
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, op operation) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		detail := "request body must be a JSON object"
		if errors.Is(err, io.EOF) {
			detail = "request body is required"
		}
		h.writeProblem(w, r, problem.New(http.StatusBadRequest, problem.TypeValidation, "Invalid request body", detail), op, err)
		return false
	}
	return h.validateStruct(w, r, dst, op)
}

func (h *Handler) parseDomainQuery(w http.ResponseWriter, r *http.Request, op operation) (domainQuery, bool) {
	values := r.URL.Query()
	query := domainQuery{
		Domain:     values.Get("domain"),
		CustomerID: values.Get("customerId"),
	}
	if !h.validateStruct(w, r, &query, op) {
		return domainQuery{}, false
	}
	return query, true
}

func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, v any, op operation) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		h.writeError(w, r, err, op)
		return false
	}

	doc := problem.New(http.StatusBadRequest, problem.TypeValidation, "Validation failed", "one or more fields are invalid")
	doc.Errors = fieldErrors(validationErrs)
	h.writeProblem(w, r, doc, op, err)
	return false
}

// resolveDefaults picks the request values, falling back to the configured defaults.
func (h *Handler) resolveDefaults(w http.ResponseWriter, r *http.Request, serviceHost, txtKey string, op operation) (string, string, bool) {
	serviceHost = firstNonEmpty(serviceHost, h.defaults.ServiceHost)
	txtKey = firstNonEmpty(txtKey, h.defaults.TxtRecordKey)

	missing := map[string][]string{}
	if serviceHost == "" {
		missing["serviceHost"] = []string{"is required"}
	}
	if txtKey == "" {
		missing["txtRecordVerifyKey"] = []string{"is required"}
	}
	if len(missing) > 0 {
		doc := problem.New(http.StatusBadRequest, problem.TypeValidation, "Validation failed", "one or more fields are invalid")
		doc.Errors = missing
		h.writeProblem(w, r, doc, op, service.ErrInvalidInput)
		return "", "", false
	}
	return serviceHost, txtKey, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	h.writeProblem(w, r, problemForError(err), op, err)
}

func (h *Handler) writeProblem(w http.ResponseWriter, r *http.Request, doc problem.Details, op operation, err error) {
	logger := h.loggerFrom(r.Context())
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", doc.Status),
		zap.Error(err),
	}

	switch {
	case doc.Status >= http.StatusInternalServerError:
		logger.Error("domain verification operation failed", fields...)
	case doc.Status == http.StatusNotFound:
		logger.Info("domain not found", fields...)
	default:
		logger.Warn("domain verification request rejected", fields...)
	}

	doc.Instance = r.URL.Path
	problem.Write(w, doc)
}

func problemForError(err error) problem.Details {
	status, title, detail, problemType := classifyError(err)
	return problem.New(status, problemType, title, detail)
}

func classifyError(err error) (status int, title, detail, problemType string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "Validation failed", err.Error(), problem.TypeValidation
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "domain not found", problem.TypeNotFound
	case errors.Is(err, service.ErrNoPendingVerification):
		return http.StatusConflict, "No pending verification", "no pending verification for this domain", problem.TypeConflict
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "Conflict", "the domain record changed concurrently, retry the request", problem.TypeConflict
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusGone, "Verification token expired", "request a new verification token", problem.TypeGone
	case errors.Is(err, service.ErrTxtVerificationFailed):
		return http.StatusUnprocessableEntity, "TXT record verification failed", "the expected TXT record was not found", problem.TypeVerification
	case errors.Is(err, service.ErrCnameVerificationFailed):
		return http.StatusUnprocessableEntity, "CNAME record verification failed", "the domain does not point at the service host", problem.TypeVerification
	default:
		return http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal
	}
}

func fieldErrors(errs validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = append(out[fe.Field()], validationMessage(fe))
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
