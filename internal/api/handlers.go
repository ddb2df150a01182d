// Package api exposes HTTP handlers for the assistant service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/babysteps/internal/assistant"
	"example.com/babysteps/internal/auth"
	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/events"
	"example.com/babysteps/internal/guidance"
	"example.com/babysteps/internal/insights"
	"example.com/babysteps/internal/search"
)

const defaultListLimit = 50

// snapshotLimit bounds how much history the analysis endpoints load.
const snapshotLimit = 500

// wellnessLookback is how many recent check-ins feed the insight engine.
const wellnessLookback = 30

// WellnessSource supplies caregiver check-ins for the insight engine.
type WellnessSource interface {
	ListWellness(ctx context.Context, babyID string, limit int) ([]domain.WellnessEntry, error)
	CreateWellness(ctx context.Context, babyID string, entry domain.WellnessEntry) error
}

// Handler coordinates HTTP requests with the assistant and the engines.
type Handler struct {
	assistant *assistant.Service
	store     domain.Store
	wellness  WellnessSource
	events    assistant.EventSink
	profile   domain.BabyProfile
	clock     func() time.Time
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithEvents attaches a sink notified on entry CRUD.
func WithEvents(sink assistant.EventSink) HandlerOption {
	return func(h *Handler) { h.events = sink }
}

// WithWellness attaches a wellness check-in source.
func WithWellness(source WellnessSource) HandlerOption {
	return func(h *Handler) { h.wellness = source }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) { h.clock = clock }
}

// NewHandler builds a Handler.
func NewHandler(svc *assistant.Service, store domain.Store, profile domain.BabyProfile, opts ...HandlerOption) *Handler {
	h := &Handler{
		assistant: svc,
		store:     store,
		profile:   profile,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/assistant/message", h.assistantMessage)
	mux.HandleFunc("/v1/entries", h.entries)
	mux.HandleFunc("/v1/entries/", h.entryByID)
	mux.HandleFunc("/v1/insights", h.insights)
	mux.HandleFunc("/v1/guidance", h.guidance)
	mux.HandleFunc("/v1/defaults", h.defaults)
	mux.HandleFunc("/v1/suggestions", h.suggestions)
	mux.HandleFunc("/v1/wellness", h.wellnessCheckIn)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) assistantMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.requireScope(w, r, auth.ScopeEntriesWrite) {
		return
	}

	var req AssistantMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "text is required")
		return
	}

	resp := h.assistant.HandleMessage(r.Context(), req.Text)

	out := AssistantMessageResponse{
		Kind:    string(resp.Kind),
		Message: resp.Message,
	}
	if resp.Entry != nil {
		view := toEntryView(*resp.Entry)
		out.Entry = &view
	}
	if resp.Search != nil {
		view := toSearchView(*resp.Search)
		out.Search = &view
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createEntry(w, r)
	case http.MethodGet:
		h.listEntries(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) entryByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/entries/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing entry id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateEntry(w, r, id)
	case http.MethodDelete:
		h.deleteEntry(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	if !h.requireScope(w, r, auth.ScopeEntriesWrite) {
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	entry, err := h.store.CreateEntry(r.Context(), domain.EntryDraft{
		BabyID:         h.profile.ID,
		Type:           domain.EntryType(req.Type),
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		QuantityML:     req.QuantityML,
		FeedingSubtype: domain.FeedingSubtype(req.FeedingSubtype),
		DiaperSubtype:  domain.DiaperSubtype(req.DiaperSubtype),
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if h.events != nil {
		h.events.PublishEntryEvent(r.Context(), events.KindEntryCreated, entry)
	}
	writeJSON(w, http.StatusCreated, toEntryView(entry))
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	if !h.requireScope(w, r, auth.ScopeEntriesRead, auth.ScopeEntriesWrite) {
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.store.ListEntries(r.Context(), h.profile.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toEntryView(entry))
	}
	writeJSON(w, http.StatusOK, ListEntriesResponse{Items: items})
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request, id string) {
	if !h.requireScope(w, r, auth.ScopeEntriesWrite) {
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	patch := domain.EntryPatch{
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		QuantityML: req.QuantityML,
		Notes:      req.Notes,
	}
	if req.FeedingSubtype != nil {
		subtype := domain.FeedingSubtype(*req.FeedingSubtype)
		patch.FeedingSubtype = &subtype
	}
	if req.DiaperSubtype != nil {
		subtype := domain.DiaperSubtype(*req.DiaperSubtype)
		patch.DiaperSubtype = &subtype
	}

	entry, err := h.store.UpdateEntry(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if h.events != nil {
		h.events.PublishEntryEvent(r.Context(), events.KindEntryUpdated, entry)
	}
	writeJSON(w, http.StatusOK, toEntryView(entry))
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request, id string) {
	if !h.requireScope(w, r, auth.ScopeEntriesWrite) {
		return
	}

	if err := h.store.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if h.events != nil {
		h.events.PublishEntryEvent(r.Context(), events.KindEntryDeleted, domain.ActivityEntry{ID: id, BabyID: h.profile.ID})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.requireScope(w, r, auth.ScopeEntriesRead, auth.ScopeEntriesWrite) {
		return
	}

	snapshot, err := h.loadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	var wellness []domain.WellnessEntry
	if h.wellness != nil {
		wellness, err = h.wellness.ListWellness(r.Context(), h.profile.ID, wellnessLookback)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
	}

	result := insights.GenerateInsights(snapshot, wellness)
	writeJSON(w, http.StatusOK, toInsightsView(result))
}

func (h *Handler) guidance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.requireScope(w, r, auth.ScopeEntriesRead, auth.ScopeEntriesWrite) {
		return
	}

	snapshot, err := h.loadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	messages := guidance.Generate(snapshot, h.profile, h.clock())
	items := make([]GuidanceMessageView, 0, len(messages))
	for _, msg := range messages {
		items = append(items, GuidanceMessageView{
			Text:      msg.Text,
			Kind:      string(msg.Kind),
			Timestamp: msg.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, GuidanceResponse{Messages: items})
}

func (h *Handler) defaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.requireScope(w, r, auth.ScopeEntriesRead, auth.ScopeEntriesWrite) {
		return
	}

	entryType := domain.EntryType(r.URL.Query().Get("type"))
	switch entryType {
	case domain.EntryFeeding, domain.EntrySleep, domain.EntryDiaper, domain.EntryPumping:
	default:
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown entry type")
		return
	}

	snapshot, err := h.loadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	now := h.clock()
	var lastEntry *domain.ActivityEntry
	if snapshot.Len() > 0 {
		lastEntry = &snapshot.Entries()[0]
	}
	defaults := guidance.CalculateDefaults(entryType, snapshot.OfType(entryType), guidance.NewTimeContext(now, lastEntry))

	writeJSON(w, http.StatusOK, DefaultsResponse{
		FeedingSubtype: string(defaults.FeedingSubtype),
		DiaperSubtype:  string(defaults.DiaperSubtype),
		QuantityML:     defaults.QuantityML,
		HasDefaults:    defaults.HasDefaults,
	})
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.requireScope(w, r, auth.ScopeEntriesRead, auth.ScopeEntriesWrite) {
		return
	}

	hour := h.clock().Hour()
	if raw := r.URL.Query().Get("hour"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 23 {
			writeError(w, http.StatusBadRequest, "validation_failed", "hour must be 0-23")
			return
		}
		hour = parsed
	}

	items := make([]SuggestionView, 0, 3)
	for _, s := range guidance.TimeBasedSuggestions(hour) {
		items = append(items, SuggestionView{
			EntryType:  string(s.EntryType),
			Confidence: s.Confidence,
			Reason:     s.Reason,
		})
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Hour: hour, Suggestions: items})
}

func (h *Handler) wellnessCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.requireScope(w, r, auth.ScopeEntriesWrite) {
		return
	}
	if h.wellness == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "wellness tracking is not configured")
		return
	}

	var req WellnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.Mood < 1 || req.Mood > 5 {
		writeError(w, http.StatusBadRequest, "validation_failed", "mood must be 1-5")
		return
	}
	if req.ParentSleepHrs < 0 || req.ParentSleepHrs > 24 {
		writeError(w, http.StatusBadRequest, "validation_failed", "parent_sleep_hours must be 0-24")
		return
	}

	date := req.Date
	if date.IsZero() {
		date = h.clock()
	}
	err := h.wellness.CreateWellness(r.Context(), h.profile.ID, domain.WellnessEntry{
		Date:           date,
		Mood:           req.Mood,
		ParentSleepHrs: req.ParentSleepHrs,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) loadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	entries, err := h.store.ListEntries(ctx, h.profile.ID, snapshotLimit)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.NewSnapshot(entries), nil
}

// requireScope checks claims and writes the error response itself; any of the
// accepted scopes passes.
func (h *Handler) requireScope(w http.ResponseWriter, r *http.Request, accepted ...string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	for _, scope := range accepted {
		if claims.HasScope(scope) {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+accepted[0]+" required")
	return false
}

// AssistantMessageRequest is the payload for POST /v1/assistant/message.
type AssistantMessageRequest struct {
	Text string `json:"text"`
}

// AssistantMessageResponse carries the assistant's reply.
type AssistantMessageResponse struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Entry   *EntryView  `json:"entry,omitempty"`
	Search  *SearchView `json:"search,omitempty"`
}

// CreateEntryRequest is the payload for POST /v1/entries.
type CreateEntryRequest struct {
	Type           string     `json:"type"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	QuantityML     *float64   `json:"quantity_ml,omitempty"`
	FeedingSubtype string     `json:"feeding_subtype,omitempty"`
	DiaperSubtype  string     `json:"diaper_subtype,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// Validate ensures request correctness.
func (r CreateEntryRequest) Validate() error {
	switch domain.EntryType(r.Type) {
	case domain.EntryFeeding, domain.EntrySleep, domain.EntryDiaper, domain.EntryPumping:
	default:
		return errors.New("type must be feeding, sleep, diaper, or pumping")
	}
	if r.StartTime.IsZero() {
		return errors.New("start_time is required")
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return errors.New("end_time must not precede start_time")
	}
	if r.QuantityML != nil && *r.QuantityML < 0 {
		return errors.New("quantity_ml must be >= 0")
	}
	return nil
}

// UpdateEntryRequest is the payload for PUT /v1/entries/{id}. Absent fields
// are left untouched.
type UpdateEntryRequest struct {
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	QuantityML     *float64   `json:"quantity_ml,omitempty"`
	FeedingSubtype *string    `json:"feeding_subtype,omitempty"`
	DiaperSubtype  *string    `json:"diaper_subtype,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// EntryView exposes full details about an entry.
type EntryView struct {
	EntryID        string     `json:"entry_id"`
	BabyID         string     `json:"baby_id"`
	Type           string     `json:"type"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	QuantityML     *float64   `json:"quantity_ml,omitempty"`
	FeedingSubtype string     `json:"feeding_subtype,omitempty"`
	DiaperSubtype  string     `json:"diaper_subtype,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ListEntriesResponse packages list results.
type ListEntriesResponse struct {
	Items []EntryView `json:"items"`
}

// SearchView summarises a search result.
type SearchView struct {
	TotalCount         int         `json:"total_count"`
	Summary            string      `json:"summary"`
	AvgDurationMinutes *float64    `json:"avg_duration_minutes,omitempty"`
	AvgQuantityML      *float64    `json:"avg_quantity_ml,omitempty"`
	Matches            []EntryView `json:"matches"`
}

// SleepPatternView mirrors the sleep analysis for JSON.
type SleepPatternView struct {
	AvgDurationMin float64    `json:"avg_duration_min"`
	LongestMin     float64    `json:"longest_min"`
	ShortestMin    float64    `json:"shortest_min"`
	TotalMin       float64    `json:"total_min"`
	EfficiencyPct  int        `json:"efficiency_pct"`
	Trend          string     `json:"trend"`
	PredictedNext  *time.Time `json:"predicted_next,omitempty"`
}

// FeedingPatternView mirrors the feeding analysis for JSON.
type FeedingPatternView struct {
	AvgIntervalHrs    float64    `json:"avg_interval_hours"`
	AvgQuantityML     float64    `json:"avg_quantity_ml"`
	MostCommonSubtype string     `json:"most_common_subtype,omitempty"`
	FrequencyPerDay   float64    `json:"frequency_per_day"`
	Trend             string     `json:"trend"`
	PredictedNext     *time.Time `json:"predicted_next,omitempty"`
}

// InsightsResponse packages pattern analysis with advisories.
type InsightsResponse struct {
	Sleep           SleepPatternView   `json:"sleep"`
	Feeding         FeedingPatternView `json:"feeding"`
	Recommendations []string           `json:"recommendations"`
	Alerts          []string           `json:"alerts"`
}

// GuidanceMessageView is one advisory message.
type GuidanceMessageView struct {
	Text      string    `json:"text"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// GuidanceResponse packages guidance messages.
type GuidanceResponse struct {
	Messages []GuidanceMessageView `json:"messages"`
}

// DefaultsResponse carries pre-fill values for a new-entry form.
type DefaultsResponse struct {
	FeedingSubtype string   `json:"feeding_subtype,omitempty"`
	DiaperSubtype  string   `json:"diaper_subtype,omitempty"`
	QuantityML     *float64 `json:"quantity_ml,omitempty"`
	HasDefaults    bool     `json:"has_defaults"`
}

// SuggestionView ranks one entry type for the hour.
type SuggestionView struct {
	EntryType  string  `json:"entry_type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// SuggestionsResponse packages time-of-day suggestions.
type SuggestionsResponse struct {
	Hour        int              `json:"hour"`
	Suggestions []SuggestionView `json:"suggestions"`
}

// WellnessRequest is the payload for POST /v1/wellness.
type WellnessRequest struct {
	Date           time.Time `json:"date,omitempty"`
	Mood           int       `json:"mood"`
	ParentSleepHrs float64   `json:"parent_sleep_hours"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toEntryView(entry domain.ActivityEntry) EntryView {
	return EntryView{
		EntryID:        entry.ID,
		BabyID:         entry.BabyID,
		Type:           string(entry.Type),
		StartTime:      entry.StartTime,
		EndTime:        entry.EndTime,
		QuantityML:     entry.QuantityML,
		FeedingSubtype: string(entry.FeedingSubtype),
		DiaperSubtype:  string(entry.DiaperSubtype),
		Notes:          entry.Notes,
		CreatedAt:      entry.CreatedAt,
		UpdatedAt:      entry.UpdatedAt,
	}
}

func toSearchView(result search.Result) SearchView {
	view := SearchView{
		TotalCount: result.TotalCount,
		Summary:    result.SummaryText,
		Matches:    make([]EntryView, 0, len(result.Matches)),
	}
	if result.Averages != nil {
		view.AvgDurationMinutes = result.Averages.DurationMinutes
		view.AvgQuantityML = result.Averages.QuantityML
	}
	for _, entry := range result.Matches {
		view.Matches = append(view.Matches, toEntryView(entry))
	}
	return view
}

func toInsightsView(result insights.PatternInsights) InsightsResponse {
	return InsightsResponse{
		Sleep: SleepPatternView{
			AvgDurationMin: result.Sleep.AvgDurationMin,
			LongestMin:     result.Sleep.LongestMin,
			ShortestMin:    result.Sleep.ShortestMin,
			TotalMin:       result.Sleep.TotalMin,
			EfficiencyPct:  result.Sleep.EfficiencyPct,
			Trend:          string(result.Sleep.Trend),
			PredictedNext:  result.Sleep.PredictedNext,
		},
		Feeding: FeedingPatternView{
			AvgIntervalHrs:    result.Feeding.AvgIntervalHrs,
			AvgQuantityML:     result.Feeding.AvgQuantityML,
			MostCommonSubtype: string(result.Feeding.MostCommonSubtype),
			FrequencyPerDay:   result.Feeding.FrequencyPerDay,
			Trend:             string(result.Feeding.Trend),
			PredictedNext:     result.Feeding.PredictedNext,
		},
		Recommendations: result.Recommendations,
		Alerts:          result.Alerts,
	}
}
