package extraction

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeti47/framegrab/server/core/ccc/logging"
	"github.com/yeti47/framegrab/server/core/ccc/metrics"
	"github.com/yeti47/framegrab/server/core/ccc/tracing"
	"github.com/yeti47/framegrab/server/core/clips"
	"github.com/yeti47/framegrab/server/core/history"
	"github.com/yeti47/framegrab/server/core/media"
)

const (
	snapshotFileName = "frame.png"
	snapshotMimeType = "image/png"
)

// Service extracts frames and clips from video sources
type Service interface {
	// Capture grabs one still frame and returns its PNG bytes
	Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
	// Clip cuts a clip into the clip directory and returns its file name
	Clip(ctx context.Context, req ClipRequest) (*ClipResult, error)
	// ReadClip returns the bytes of a clip previously produced by Clip
	ReadClip(filename string) ([]byte, error)
}

// DefaultMaxClipFiles is the clip cap used when Settings leaves it unset
const DefaultMaxClipFiles = 100

// Settings configures the extraction service.
type Settings struct {
	ClipsDir      string
	ClipExtension string
	// MaxClipFiles caps the clip directory, zero or less means DefaultMaxClipFiles
	MaxClipFiles int
	// TempDir is where snapshot scratch directories are created, empty means os.TempDir
	TempDir string
	// FileFallback enables the one-time re-encode of local files whose stream copy failed
	FileFallback bool
}

// Dependencies groups the collaborators of the service. Only Builder and
// Executor are required.
type Dependencies struct {
	Builder   *media.StrategyBuilder
	Executor  media.Executor
	Retention clips.RetentionManager
	Metadata  clips.MetadataExtractor
	Journal   history.Repository
	Recorder  metrics.Recorder
}

type service struct {
	logger    logging.Logger
	settings  Settings
	builder   *media.StrategyBuilder
	executor  media.Executor
	retention clips.RetentionManager
	metadata  clips.MetadataExtractor
	journal   history.Repository
	recorder  metrics.Recorder
	tracer    trace.Tracer
}

// NewService creates the extraction service
func NewService(logger logging.Logger, settings Settings, deps Dependencies) Service {
	if logger == nil {
		logger = logging.NopLogger
	}
	if deps.Builder == nil {
		deps.Builder = media.NewStrategyBuilder(media.DefaultStrategyOptions())
	}
	if deps.Executor == nil {
		deps.Executor = media.NewProcessExecutor(logger, media.DefaultExecutorSettings())
	}
	if deps.Retention == nil {
		deps.Retention = clips.NewRetentionManager(logger, nil)
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NopRecorder
	}
	if settings.ClipExtension == "" {
		settings.ClipExtension = "mp4"
	}
	if settings.MaxClipFiles <= 0 {
		settings.MaxClipFiles = DefaultMaxClipFiles
	}

	return &service{
		logger:    logger,
		settings:  settings,
		builder:   deps.Builder,
		executor:  deps.Executor,
		retention: deps.Retention,
		metadata:  deps.Metadata,
		journal:   deps.Journal,
		recorder:  deps.Recorder,
		tracer:    tracing.Tracer(),
	}
}

func (s *service) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	timestamp := valueOr(req.Timestamp, 0)
	if err := media.ValidateSnapshotParams(req.URL, timestamp); err != nil {
		return nil, err
	}

	protocol := media.Classify(req.URL)
	ctx, span := s.tracer.Start(ctx, "extraction.Capture", trace.WithAttributes(
		attribute.String("protocol", protocol.String()),
		attribute.Bool("realtime", protocol.IsRealtime()),
		attribute.Float64("timestamp", timestamp),
	))
	defer span.End()

	s.logger.Info("Capturing frame", "url", req.URL, "protocol", protocol.String(), "realtime", protocol.IsRealtime(), "timestamp", timestamp)

	started := time.Now()
	record := &history.Record{
		Operation: media.OperationSnapshot.String(),
		URL:       req.URL,
		Protocol:  protocol.String(),
	}

	image, err := s.captureToTemp(ctx, req.URL, timestamp)
	record.Elapsed = time.Since(started)
	if err != nil {
		s.fail(ctx, span, record, err)
		return nil, err
	}

	record.Size = int64(len(image))
	s.succeed(ctx, record)
	s.logger.Info("Captured frame", "url", req.URL, "size", len(image), "elapsed", record.Elapsed)

	return &CaptureResult{
		Image:    image,
		MimeType: snapshotMimeType,
		Protocol: protocol,
	}, nil
}

// captureToTemp runs the snapshot command in a private scratch directory
// which is always removed before returning
func (s *service) captureToTemp(ctx context.Context, url string, timestamp float64) ([]byte, error) {
	tempDir, err := os.MkdirTemp(s.settings.TempDir, "framegrab_snapshot_")
	if err != nil {
		return nil, media.NewIOError("failed to create temp directory", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			s.logger.Warn("Failed to remove snapshot temp directory", "dir", tempDir, "error", err)
		}
	}()

	outputPath := filepath.Join(tempDir, snapshotFileName)
	spec := s.builder.BuildSnapshot(url, timestamp, outputPath)

	if _, err := s.executor.Execute(ctx, spec); err != nil {
		return nil, err
	}

	image, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, media.NewIOError("failed to read captured frame", err)
	}
	return image, nil
}

func (s *service) Clip(ctx context.Context, req ClipRequest) (*ClipResult, error) {
	start := valueOr(req.Start, 0)
	if err := media.ValidateClipParams(req.URL, start, req.Duration); err != nil {
		return nil, err
	}

	protocol := media.Classify(req.URL)
	ctx, span := s.tracer.Start(ctx, "extraction.Clip", trace.WithAttributes(
		attribute.String("protocol", protocol.String()),
		attribute.Bool("realtime", protocol.IsRealtime()),
		attribute.Float64("start", start),
		attribute.Float64("duration", req.Duration),
	))
	defer span.End()

	filename := clips.NewClipName(s.settings.ClipExtension)
	outputPath := filepath.Join(s.settings.ClipsDir, filename)

	s.logger.Info("Creating clip", "url", req.URL, "protocol", protocol.String(), "start", start, "duration", req.Duration, "filename", filename)

	started := time.Now()
	record := &history.Record{
		Operation: media.OperationClip.String(),
		URL:       req.URL,
		Protocol:  protocol.String(),
		Filename:  filename,
	}

	spec := s.builder.BuildClip(req.URL, start, req.Duration, outputPath)
	fallbackUsed, err := s.runClip(ctx, spec)
	record.Elapsed = time.Since(started)
	record.FallbackUsed = fallbackUsed
	if err != nil {
		s.removePartial(outputPath)
		s.fail(ctx, span, record, err)
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		err = media.NewIOError("failed to stat clip", err)
		s.fail(ctx, span, record, err)
		return nil, err
	}
	record.Size = info.Size()

	s.enforceRetention()

	result := &ClipResult{
		Filename:     filename,
		Path:         outputPath,
		Size:         info.Size(),
		Protocol:     protocol,
		FallbackUsed: fallbackUsed,
	}
	if s.metadata != nil {
		if meta, err := s.metadata.ExtractMetadata(outputPath); err != nil {
			s.logger.Warn("Failed to read clip metadata", "filename", filename, "error", err)
		} else {
			result.Metadata = meta
		}
	}

	s.succeed(ctx, record)
	s.logger.Info("Created clip", "filename", filename, "size", result.Size, "elapsed", record.Elapsed, "fallback", fallbackUsed)
	return result, nil
}

// runClip executes the clip command and, for local files whose stream copy
// failed, the re-encode fallback. It reports whether the fallback ran.
func (s *service) runClip(ctx context.Context, spec media.CommandSpec) (bool, error) {
	_, err := s.executor.Execute(ctx, spec)
	if err == nil {
		return false, nil
	}
	if spec.Fallback == nil || !s.settings.FileFallback || !media.IsKind(err, media.KindExecutionFailed) {
		return false, err
	}

	s.logger.Warn("Stream copy failed, re-encoding clip", "output", spec.OutputPath, "error", err)
	s.recorder.ObserveFallback()
	s.removePartial(spec.OutputPath)

	_, err = s.executor.Execute(ctx, *spec.Fallback)
	return true, err
}

// enforceRetention prunes the clip directory; failures never reach the caller
func (s *service) enforceRetention() {
	removed, err := s.retention.EnforceCap(s.settings.ClipsDir, s.settings.ClipExtension, s.settings.MaxClipFiles)
	if err != nil {
		s.logger.Error("Retention pass failed", "dir", s.settings.ClipsDir, "error", err)
		return
	}
	if len(removed) > 0 {
		s.logger.Info("Retention pass removed clips", "count", len(removed), "max_files", s.settings.MaxClipFiles)
	}
}

func (s *service) removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove partial clip", "path", path, "error", err)
	}
}

func (s *service) ReadClip(filename string) ([]byte, error) {
	path, err := clips.ResolveClipPath(s.settings.ClipsDir, filename)
	if err != nil {
		return nil, media.NewValidationError(err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, media.NewIOError("failed to read clip", err)
	}
	return data, nil
}

func (s *service) succeed(ctx context.Context, record *history.Record) {
	record.Status = history.StatusSuccess
	s.recorder.ObserveExtraction(record.Operation, record.Protocol, record.Status, record.Elapsed.Seconds())
	s.journalAdd(ctx, record)
}

func (s *service) fail(ctx context.Context, span trace.Span, record *history.Record, err error) {
	record.Status = history.StatusFailed
	record.ErrorKind = media.KindOf(err).String()
	record.Message = err.Error()

	span.RecordError(err)
	span.SetStatus(codes.Error, record.ErrorKind)

	s.logger.Error("Extraction failed", "operation", record.Operation, "url", record.URL, "kind", record.ErrorKind, "error", err)
	s.recorder.ObserveExtraction(record.Operation, record.Protocol, record.ErrorKind, record.Elapsed.Seconds())
	s.journalAdd(ctx, record)
}

// journalAdd stores the record without letting journal failures affect the request
func (s *service) journalAdd(ctx context.Context, record *history.Record) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Add(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Warn("Failed to record extraction", "operation", record.Operation, "error", err)
	}
}
