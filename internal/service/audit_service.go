package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/pkg/jobs"
)

// Sentinels stored when the client cannot be identified.
const (
	UnknownIP        = "Desconocida"
	UnknownUserAgent = "Desconocido"
	RedactedMarker   = "[REDACTADO]"
)

var sensitiveKeys = []string{"password", "token", "secret"}

// ErrAuditPayload marks a queued job that does not carry a bitácora row.
var ErrAuditPayload = errors.New("invalid audit payload")

const auditJobType = "bitacora"

type auditWriter interface {
	Create(ctx context.Context, record *models.AuditRecord) error
}

type auditMetrics interface {
	RecordAuditFailure()
	RecordAuditDropped()
}

// AuditDispatchConfig sizes the background writer. Inline writes on the
// calling goroutine instead, which tests and one-shot tools use.
type AuditDispatchConfig struct {
	Workers    int
	BufferSize int
	JobTimeout time.Duration
	Inline     bool
}

// AuditService is the bitácora sink. Nothing it does is reported back to the
// caller: failures go to the log and the audit_write_failures_total counter.
type AuditService struct {
	repo    auditWriter
	metrics auditMetrics
	logger  *zap.Logger
	queue   *jobs.Queue
	now     func() time.Time
}

// NewAuditService constructs an AuditService and its dispatcher. Call Start
// before recording and Stop on shutdown to drain pending rows.
func NewAuditService(repo auditWriter, metrics auditMetrics, logger *zap.Logger, cfg AuditDispatchConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
	if !cfg.Inline {
		s.queue = jobs.NewQueue(auditJobType, s.handle, jobs.QueueConfig{
			Workers:    cfg.Workers,
			BufferSize: cfg.BufferSize,
			JobTimeout: cfg.JobTimeout,
			OnFailure:  s.onFailure,
			Logger:     logger,
		})
	}
	return s
}

// Start launches the dispatcher workers.
func (s *AuditService) Start() {
	if s.queue != nil {
		s.queue.Start()
	}
}

// Stop refuses new entries and waits for buffered ones to be written.
func (s *AuditService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Record persists an action event. Without an actor it does nothing.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.UsuarioID == nil {
		return
	}
	s.dispatch(ctx, entry)
}

// RecordAnonymous persists an entry whatever its actor, for login outcomes
// where the account may not exist.
func (s *AuditService) RecordAnonymous(ctx context.Context, entry models.AuditEntry) {
	s.dispatch(ctx, entry)
}

func (s *AuditService) dispatch(ctx context.Context, entry models.AuditEntry) {
	if !entry.Accion.Valid() || !entry.Modulo.Valid() {
		s.logger.Warn("audit entry rejected", zap.String("accion", string(entry.Accion)), zap.String("modulo", string(entry.Modulo)))
		s.drop()
		return
	}
	record := s.build(entry)

	if s.queue == nil {
		if err := s.repo.Create(ctx, record); err != nil {
			s.onFailure(jobs.Job{Type: auditJobType, Payload: record}, err)
		}
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: auditJobType, Payload: record}); err != nil {
		s.logger.Warn("audit entry dropped", zap.String("accion", string(record.Accion)), zap.Error(err))
		s.drop()
	}
}

func (s *AuditService) build(entry models.AuditEntry) *models.AuditRecord {
	ip := strings.TrimSpace(entry.IP)
	if ip == "" {
		ip = UnknownIP
	}
	ua := strings.TrimSpace(entry.UserAgent)
	if ua == "" {
		ua = UnknownUserAgent
	}
	return &models.AuditRecord{
		UsuarioID:       entry.UsuarioID,
		Accion:          entry.Accion,
		Modulo:          entry.Modulo,
		Descripcion:     entry.Descripcion,
		DatosAnteriores: s.encode(entry.Anterior, false),
		DatosNuevos:     s.encode(entry.Nuevo, true),
		IP:              ip,
		UserAgent:       ua,
		Fecha:           s.now().UTC(),
	}
}

func (s *AuditService) encode(v interface{}, redact bool) models.JSONB {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("audit payload not serialisable", zap.Error(err))
		return nil
	}
	if string(raw) == "null" {
		return nil
	}
	if redact {
		raw, err = RedactJSON(raw)
		if err != nil {
			s.logger.Warn("audit payload redaction failed", zap.Error(err))
			return nil
		}
	}
	return models.JSONB(raw)
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(*models.AuditRecord)
	if !ok {
		return fmt.Errorf("%w: %T", ErrAuditPayload, job.Payload)
	}
	return s.repo.Create(ctx, record)
}

func (s *AuditService) onFailure(job jobs.Job, err error) {
	fields := []zap.Field{zap.Error(err)}
	if record, ok := job.Payload.(*models.AuditRecord); ok {
		fields = append(fields, zap.String("accion", string(record.Accion)), zap.String("modulo", string(record.Modulo)))
	}
	s.logger.Error("audit write failed", fields...)
	if s.metrics != nil {
		s.metrics.RecordAuditFailure()
	}
}

func (s *AuditService) drop() {
	if s.metrics != nil {
		s.metrics.RecordAuditDropped()
	}
}

// Redact replaces, at any depth, the value of every object key containing
// password, token or secret (ignoring case) with RedactedMarker. The input
// is not modified.
func Redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if isSensitiveKey(k) {
				out[k] = RedactedMarker
				continue
			}
			out[k] = Redact(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = Redact(child)
		}
		return out
	default:
		return v
	}
}

// RedactJSON applies Redact to an encoded document.
func RedactJSON(raw []byte) ([]byte, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode audit payload: %w", err)
	}
	out, err := json.Marshal(Redact(doc))
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}
	return out, nil
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
