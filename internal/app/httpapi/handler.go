package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/hirewire/pipeline/internal/app"
	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/services/applications"
	"github.com/hirewire/pipeline/internal/app/storage"
)

// actorHeader carries the authenticated caller's identity. Authentication
// itself happens upstream (gateway or session layer); this API trusts the
// header and enforces per-application authorization on every operation.
const actorHeader = "X-Actor-ID"

// handler bundles HTTP endpoints for the application lifecycle services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// Config tunes the HTTP layer.
type Config struct {
	// AuditFile, when set, receives one JSON line per mutating request.
	AuditFile string
	// AuditSize bounds the in-memory audit ring. Zero means the default.
	AuditSize int
}

// NewHandler returns a mux exposing the lifecycle REST API.
func NewHandler(application *app.Application, cfg Config) (http.Handler, error) {
	sink, err := newFileAuditSink(cfg.AuditFile)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	h := &handler{app: application, audit: newAuditLog(cfg.AuditSize, sink)}
	mux := http.NewServeMux()
	mux.HandleFunc("/applications", h.applications)
	mux.HandleFunc("/applications/", h.applicationResources)
	mux.HandleFunc("/audit", h.auditEntries)
	mux.HandleFunc("/healthz", h.health)
	return h.requireActor(mux), nil
}

// requireActor rejects requests without a caller identity. Health stays open
// for probes.
func (h *handler) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if strings.TrimSpace(r.Header.Get(actorHeader)) == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("%s header is required", actorHeader))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) applications(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			JobID             string                 `json:"job_id"`
			CoverLetter       string                 `json:"cover_letter"`
			ResumeURL         string                 `json:"resume_url"`
			Documents         []application.Document `json:"documents"`
			Answers           []application.Answer   `json:"answers"`
			Experience        string                 `json:"experience"`
			Availability      string                 `json:"availability"`
			SalaryExpectation int64                  `json:"salary_expectation"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		created, err := h.app.Applications.Submit(r.Context(), applications.SubmitInput{
			JobID:             payload.JobID,
			ApplicantID:       actor,
			CoverLetter:       payload.CoverLetter,
			ResumeURL:         payload.ResumeURL,
			Documents:         payload.Documents,
			Answers:           payload.Answers,
			Experience:        payload.Experience,
			Availability:      payload.Availability,
			SalaryExpectation: payload.SalaryExpectation,
		})
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.record(r, http.StatusCreated)
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		apps, err := h.app.Applications.List(r.Context(), actor, filterFromQuery(r))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, apps)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) applicationResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/applications"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "bulk":
		if len(parts) == 2 && parts[1] == "status" {
			h.bulkStatus(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	case "statistics":
		if len(parts) == 1 {
			h.statistics(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}

	applicationID := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		found, err := h.app.Applications.Get(r.Context(), actorID(r), applicationID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
		return
	}

	switch parts[1] {
	case "status":
		h.updateStatus(w, r, applicationID)
	case "withdraw":
		h.withdraw(w, r, applicationID)
	case "notes":
		h.addNote(w, r, applicationID)
	case "rating":
		h.rate(w, r, applicationID)
	case "offer":
		if len(parts) == 3 && parts[2] == "response" {
			h.respondToOffer(w, r, applicationID)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case "interviews":
		if len(parts) == 4 && parts[3] == "feedback" {
			h.interviewFeedback(w, r, applicationID, parts[2])
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request, applicationID string) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload applications.TransitionInput
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Applications.UpdateStatus(r.Context(), actorID(r), applicationID, payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.record(r, http.StatusOK)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request, applicationID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Note string `json:"note"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Applications.Withdraw(r.Context(), actorID(r), applicationID, payload.Note)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.record(r, http.StatusOK)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) addNote(w http.ResponseWriter, r *http.Request, applicationID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Note    string `json:"note"`
		Private bool   `json:"private"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Applications.AddRecruiterNote(r.Context(), actorID(r), applicationID, payload.Note, payload.Private)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.record(r, http.StatusOK)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) rate(w http.ResponseWriter, r *http.Request, applicationID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload application.Rating
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Applications.RateApplication(r.Context(), actorID(r), applicationID, payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.record(r, http.StatusOK)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) respondToOffer(w http.ResponseWriter, r *http.Request, applicationID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Accept bool   `json:"accept"`
		Note   string `json:"note"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Applications.RespondToOffer(r.Context(), actorID(r), applicationID, payload.Accept, payload.Note)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.record(r, http.StatusOK)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) interviewFeedback(w http.ResponseWriter, r *http.Request, applicationID, interviewID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload application.InterviewFeedback
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Applications.RecordInterviewFeedback(r.Context(), actorID(r), applicationID, interviewID, payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.record(r, http.StatusOK)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		IDs []string `json:"ids"`
		applications.TransitionInput
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(payload.IDs) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("ids is required"))
		return
	}

	result, err := h.app.Applications.BulkUpdate(r.Context(), actorID(r), payload.IDs, payload.TransitionInput)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.record(r, http.StatusOK)
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) statistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.app.Applications.Statistics(r.Context(), actorID(r), filterFromQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// writeServiceError maps service errors onto the HTTP error taxonomy.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	h.record(r, status)
	writeError(w, status, err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, applications.ErrApplicationNotFound),
		errors.Is(err, applications.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, applications.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrStale),
		errors.Is(err, applications.ErrDuplicateApplication),
		errors.Is(err, applications.ErrApplicationClosed),
		errors.Is(err, applications.ErrWithdrawLocked):
		return http.StatusConflict
	case errors.Is(err, applications.ErrJobClosed),
		errors.Is(err, applications.ErrInvalidTransition),
		errors.Is(err, applications.ErrNoPendingOffer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, applications.ErrUnknownStatus),
		errors.Is(err, applications.ErrInvalidInput),
		errors.Is(err, applications.ErrResumeRequired),
		errors.Is(err, applications.ErrMissingInterviewDate),
		errors.Is(err, applications.ErrMissingSalary),
		errors.Is(err, applications.ErrInvalidRating),
		errors.Is(err, applications.ErrEmptyNote),
		errors.Is(err, applications.ErrEmptyFeedback):
		return http.StatusBadRequest
	default:
		// Anything unclassified is an infrastructure failure, not a caller
		// mistake.
		return http.StatusInternalServerError
	}
}

func (h *handler) record(r *http.Request, status int) {
	if r.Method == http.MethodGet {
		return
	}
	h.audit.add(auditEntry{
		Time:       time.Now().UTC(),
		Actor:      actorID(r),
		Path:       r.URL.Path,
		Method:     r.Method,
		Status:     status,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(actorHeader))
}

func filterFromQuery(r *http.Request) storage.ApplicationFilter {
	q := r.URL.Query()
	return storage.ApplicationFilter{
		ApplicantID: q.Get("applicant"),
		JobID:       q.Get("job"),
		CompanyID:   q.Get("company"),
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
