package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"watchshop/backend/internal/cache"
	"watchshop/backend/internal/domain"
	"watchshop/backend/internal/export"
	"watchshop/backend/internal/logger"
	"watchshop/backend/internal/service"
	"watchshop/backend/internal/xid"
)

const maxTopProductsLimit = 100

type Options struct {
	AllowedOrigin    string
	LoginAttempts    cache.AttemptCounter
	LoginMaxAttempts int
	LoginWindow      time.Duration
	Logger           zerolog.Logger
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *loginLimiter
	log           zerolog.Logger
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		loginLimiter:  newLoginLimiter(opts.LoginAttempts, opts.LoginMaxAttempts, opts.LoginWindow),
		log:           opts.Logger,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	staff := []string{domain.RoleManager, domain.RoleEmployee}
	mux.HandleFunc("/api/v1/reports/revenue/summary", a.requireAuth(a.handleRevenueSummary, staff...))
	mux.HandleFunc("/api/v1/reports/revenue/breakdown", a.requireAuth(a.handleRevenueBreakdown, staff...))
	mux.HandleFunc("/api/v1/reports/customers/summary", a.requireAuth(a.handleCustomerSummary, staff...))
	mux.HandleFunc("/api/v1/reports/customers/trends", a.requireAuth(a.handleCustomerTrends, staff...))
	mux.HandleFunc("/api/v1/reports/products/top", a.requireAuth(a.handleTopProducts, staff...))
	mux.HandleFunc("/api/v1/reports/dashboard", a.requireAuth(a.handleDashboard, staff...))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, r, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, r, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With().Str("actor", actor.Username).Logger())
		next(w, r.WithContext(ctx))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	log := logger.FromContext(r.Context())
	client := clientKey(r)
	if !a.loginLimiter.Allow(r.Context(), log, client) {
		writeError(w, r, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info().Str("username", req.Username).Str("client", client).Msg("login rejected")
			writeError(w, r, http.StatusUnauthorized, err)
			return
		}
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	a.loginLimiter.Reset(r.Context(), log, client)
	writeJSON(w, http.StatusOK, resp)
}

// reportPeriod reads ?year= and ?month=. An omitted month means the whole year.
func reportPeriod(r *http.Request) (domain.PeriodSelector, error) {
	query := r.URL.Query()
	return service.ParsePeriod(query.Get("year"), query.Get("month"))
}

// parseLimit returns 0 for an omitted limit so the service default applies.
func parseLimit(raw string, max int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(trimmed)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", service.ErrValidation)
	}
	if max > 0 && limit > max {
		return max, nil
	}
	return limit, nil
}

func (a *API) handleRevenueSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	period, err := reportPeriod(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	summary, err := a.service.RevenueSummary(r.Context(), period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleRevenueBreakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	period, err := reportPeriod(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	points, err := a.service.RevenueBreakdown(r.Context(), period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "buckets": points})
}

func (a *API) handleCustomerSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	period, err := reportPeriod(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	summary, err := a.service.CustomerSummary(r.Context(), period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleCustomerTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	period, err := reportPeriod(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	points, err := a.service.CustomerTrends(r.Context(), period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "buckets": points})
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	period, err := reportPeriod(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), maxTopProductsLimit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	products, err := a.service.TopProducts(r.Context(), period, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period, "products": products})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	period, err := reportPeriod(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), maxTopProductsLimit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	dashboard, err := a.service.Dashboard(r.Context(), period, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, dashboard); err != nil {
			writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(period, "csv")))
		_, _ = w.Write(buf.Bytes())
	case "html", "pdf":
		var buf bytes.Buffer
		if err := export.WriteHTML(&buf, dashboard); err != nil {
			writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	case "", "json":
		writeJSON(w, http.StatusOK, dashboard)
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 128 {
			requestID = xid.New("req")
		}
		w.Header().Set("X-Request-ID", requestID)
		log := a.log.With().Str("request_id", requestID).Logger()
		r = r.WithContext(logger.WithContext(r.Context(), log))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		defer func() {
			if p := recover(); p != nil {
				log.Error().Interface("panic", p).Str("method", r.Method).Str("path", r.URL.Path).Msg("panic recovered")
				writeError(rec, r, http.StatusInternalServerError, errors.New("panic"))
			}
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(startedAt)).
				Msg("http request")
		}()
		next.ServeHTTP(rec, r)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrValidation) {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeError(w, r, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// 5xx bodies stay generic; the cause goes to the log only.
	msg := err.Error()
	if status >= 500 {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
