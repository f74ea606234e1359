package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
	"github.com/noah-isme/sma-roadmap-api/pkg/jobs"
)

// WarmupJobType identifies enrichment cache warm-up jobs.
const WarmupJobType = "lesson_details.warmup"

const (
	maxEnrichmentBody  = 4 << 20
	lessonDetailPrefix = "lesson-detail:"
)

// EnrichmentConfig configures the external lesson enrichment call.
type EnrichmentConfig struct {
	Enabled         bool
	URL             string
	APIKey          string
	Timeout         time.Duration
	CacheTTL        time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type lessonDetailCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string) error
	Enabled() bool
}

// EnrichmentStatus describes the upstream wiring for operators.
type EnrichmentStatus struct {
	Enabled      bool   `json:"enabled"`
	BreakerState string `json:"breakerState"`
	Cached       bool   `json:"cached"`
}

type enrichmentLesson struct {
	LessonID string `json:"lessonId"`
	Name     string `json:"name"`
	Standard string `json:"standard,omitempty"`
	Pacing   int    `json:"pacing"`
}

type enrichmentRequest struct {
	Lessons []enrichmentLesson `json:"lessons"`
}

type enrichmentItem struct {
	LessonID   string `json:"lessonId"`
	Objectives string `json:"objectives"`
	Activities string `json:"activities"`
	Assessment string `json:"assessment"`
}

// EnrichmentService fetches descriptive lesson text from an external service.
// Callers always get one detail per lesson; failures degrade to placeholders.
type EnrichmentService struct {
	cfg     EnrichmentConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]enrichmentItem]
	cache   lessonDetailCache
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEnrichmentService constructs the service. cache may be nil.
func NewEnrichmentService(cfg EnrichmentConfig, client *http.Client, cache lessonDetailCache, metrics *MetricsService, logger *zap.Logger) *EnrichmentService {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}

	svc := &EnrichmentService{cfg: cfg, client: client, cache: cache, metrics: metrics, logger: logger}
	svc.breaker = gobreaker.NewCircuitBreaker[[]enrichmentItem](gobreaker.Settings{
		Name:        "lesson-enrichment",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerState(int(to))
		},
	})
	return svc
}

// Enabled reports whether an upstream is configured.
func (s *EnrichmentService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.cfg.URL != ""
}

// BreakerState returns the breaker state name.
func (s *EnrichmentService) BreakerState() string {
	return s.breaker.State().String()
}

// Status reports whether enrichment is active and the breaker state.
func (s *EnrichmentService) Status() EnrichmentStatus {
	return EnrichmentStatus{Enabled: s.Enabled(), BreakerState: s.BreakerState(), Cached: s.cache != nil && s.cache.Enabled()}
}

// PurgeCache drops every cached lesson detail so the next lookups go upstream.
func (s *EnrichmentService) PurgeCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, lessonDetailPrefix+"*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge lesson detail cache")
	}
	s.logger.Info("lesson detail cache purged")
	return nil
}

// LessonDetails returns one detail per lesson in input order. It never fails.
func (s *EnrichmentService) LessonDetails(ctx context.Context, lessons []models.Lesson) []models.LessonDetail {
	details, err := s.resolve(ctx, lessons)
	if err != nil {
		s.logger.Warn("lesson enrichment degraded to placeholders", zap.Int("lessons", len(lessons)), zap.Error(err))
	}
	return details
}

// Warm populates the cache for lessons. Unlike LessonDetails it reports upstream
// failures so the job queue can retry.
func (s *EnrichmentService) Warm(ctx context.Context, lessons []models.Lesson) error {
	_, err := s.resolve(ctx, lessons)
	return err
}

// HandleJob is the jobs.Handler for WarmupJobType.
func (s *EnrichmentService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != WarmupJobType {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}
	lessons, ok := job.Payload.([]models.Lesson)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	if !s.Enabled() {
		return nil
	}
	return s.Warm(ctx, lessons)
}

func (s *EnrichmentService) resolve(ctx context.Context, lessons []models.Lesson) ([]models.LessonDetail, error) {
	details := make([]models.LessonDetail, len(lessons))
	var missing []int
	for i, lesson := range lessons {
		var cached models.LessonDetail
		if s.cache != nil && s.cache.Get(ctx, lessonDetailKey(lesson), &cached) {
			cached.LessonID = lesson.ID
			details[i] = cached
			continue
		}
		missing = append(missing, i)
	}
	s.metrics.RecordEnrichment(EnrichmentOutcomeCacheHit, len(lessons)-len(missing))
	if len(missing) == 0 {
		return details, nil
	}

	if !s.Enabled() {
		s.fillPlaceholders(details, lessons, missing)
		s.metrics.RecordEnrichment(EnrichmentOutcomeFallback, len(missing))
		return details, nil
	}

	request := make([]models.Lesson, len(missing))
	for j, idx := range missing {
		request[j] = lessons[idx]
	}
	items, err := s.breaker.Execute(func() ([]enrichmentItem, error) {
		return s.fetch(ctx, request)
	})
	if err != nil {
		s.fillPlaceholders(details, lessons, missing)
		outcome := EnrichmentOutcomeFallback
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = EnrichmentOutcomeOpen
		}
		s.metrics.RecordEnrichment(outcome, len(missing))
		return details, err
	}

	byID := make(map[string]enrichmentItem, len(items))
	for _, item := range items {
		if _, dup := byID[item.LessonID]; !dup {
			byID[item.LessonID] = item
		}
	}
	fetched := 0
	for _, idx := range missing {
		lesson := lessons[idx]
		item, ok := byID[lesson.ID]
		if !ok {
			details[idx] = placeholderDetail(lesson)
			continue
		}
		detail := models.LessonDetail{
			LessonID:   lesson.ID,
			Objectives: item.Objectives,
			Activities: item.Activities,
			Assessment: item.Assessment,
		}
		details[idx] = detail
		fetched++
		if s.cache != nil {
			s.cache.Set(ctx, lessonDetailKey(lesson), detail, s.cfg.CacheTTL)
		}
	}
	s.metrics.RecordEnrichment(EnrichmentOutcomeSuccess, fetched)
	s.metrics.RecordEnrichment(EnrichmentOutcomeFallback, len(missing)-fetched)
	return details, nil
}

func (s *EnrichmentService) fetch(ctx context.Context, lessons []models.Lesson) ([]enrichmentItem, error) {
	payload := enrichmentRequest{Lessons: make([]enrichmentLesson, len(lessons))}
	for i, l := range lessons {
		payload.Lessons[i] = enrichmentLesson{LessonID: l.ID, Name: l.Name, Standard: l.StandardRef, Pacing: l.Pacing}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode enrichment request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call enrichment service: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEnrichmentBody))
	if err != nil {
		return nil, fmt.Errorf("read enrichment response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("enrichment service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(truncate(raw, 200))))
	}

	var items []enrichmentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode enrichment response: %w", err)
	}
	return items, nil
}

func (s *EnrichmentService) fillPlaceholders(details []models.LessonDetail, lessons []models.Lesson, idx []int) {
	for _, i := range idx {
		details[i] = placeholderDetail(lessons[i])
	}
}

func placeholderDetail(lesson models.Lesson) models.LessonDetail {
	name := strings.TrimSpace(lesson.Name)
	if name == "" {
		name = "this lesson"
	}
	objectives := fmt.Sprintf("Students will develop their understanding of %s.", name)
	if lesson.StandardRef != "" {
		objectives = fmt.Sprintf("Students will develop their understanding of %s (%s).", name, lesson.StandardRef)
	}
	return models.LessonDetail{
		LessonID:    lesson.ID,
		Objectives:  objectives,
		Activities:  fmt.Sprintf("Guided practice and discussion on %s.", name),
		Assessment:  fmt.Sprintf("Short formative check on %s.", name),
		Placeholder: true,
	}
}

// lessonDetailKey derives a stable cache key from lesson content, so renamed
// lessons are looked up afresh and identical lessons share an entry.
func lessonDetailKey(lesson models.Lesson) string {
	content := strings.ToLower(strings.TrimSpace(lesson.Name)) + "\x00" + strings.ToLower(strings.TrimSpace(lesson.StandardRef))
	return lessonDetailPrefix + uuid.NewSHA1(uuid.NameSpaceOID, []byte(content)).String()
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
