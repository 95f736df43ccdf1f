// Package sweep walks every Chatwork room once and moves each eligible
// room's read pointer to the message chosen by the Selector.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/chatwork-autoread/internal/chatwork"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flemzord/chatwork-autoread/internal/sweep"

// API is the subset of the Chatwork client a sweep needs.
type API interface {
	FetchRooms(ctx context.Context) ([]chatwork.Room, error)
	FetchMessages(ctx context.Context, roomID int64) ([]chatwork.Message, error)
	MarkMessageAsRead(ctx context.Context, roomID int64, messageID string) (chatwork.ReadStatus, error)
}

// Compile-time interface check.
var _ API = (*chatwork.Client)(nil)

// Recorder receives sweep events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RoomOutcome(o Outcome)
	SweepFinished(d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RoomOutcome(Outcome)                 {}
func (nopRecorder) SweepFinished(time.Duration, error) {}

// Config holds the operator's exclusions.
type Config struct {
	// ExcludeAccountIDs are accounts whose mentions stop the read pointer.
	ExcludeAccountIDs []string
	// ExcludeRoomIDs are rooms never touched.
	ExcludeRoomIDs []int64
	// DryRun selects targets without marking anything as read.
	DryRun bool
}

// Processor runs sweeps. It keeps no state between sweeps.
type Processor struct {
	api          API
	selector     *Selector
	excludeRooms map[int64]struct{}
	dryRun       bool
	logger       *slog.Logger
	recorder     Recorder
	tracer       trace.Tracer
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithLogger injects a structured logger. When omitted, log output is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder injects a metrics sink for sweep events.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithTracerProvider sets the provider used for sweep spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Processor) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewProcessor creates a Processor over api.
func NewProcessor(api API, cfg Config, opts ...Option) *Processor {
	rooms := make(map[int64]struct{}, len(cfg.ExcludeRoomIDs))
	for _, id := range cfg.ExcludeRoomIDs {
		rooms[id] = struct{}{}
	}

	p := &Processor{
		api:          api,
		selector:     NewSelector(cfg.ExcludeAccountIDs),
		excludeRooms: rooms,
		dryRun:       cfg.DryRun,
		logger:       slog.New(slog.DiscardHandler),
		recorder:     nopRecorder{},
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessAllRooms fetches the room list once and processes each room in API
// order. It fails only when the room list cannot be fetched or ctx ends
// mid-sweep; per-room failures are logged, counted and skipped over.
func (p *Processor) ProcessAllRooms(ctx context.Context) (Report, error) {
	start := time.Now()
	sweepID := uuid.NewString()
	logger := p.logger.With("sweep_id", sweepID)

	ctx, span := p.tracer.Start(ctx, "sweep.process_all_rooms",
		trace.WithAttributes(
			attribute.String("sweep.id", sweepID),
			attribute.Bool("sweep.dry_run", p.dryRun),
		),
	)
	defer span.End()

	report, err := p.run(ctx, logger)

	p.recorder.SweepFinished(time.Since(start), err)
	span.SetAttributes(
		attribute.Int("sweep.rooms", report.Rooms),
		attribute.Int("sweep.marked", report.Marked),
		attribute.Int("sweep.failed", report.Failed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return report, err
}

func (p *Processor) run(ctx context.Context, logger *slog.Logger) (Report, error) {
	rooms, err := p.api.FetchRooms(ctx)
	if err != nil {
		logger.Error("sweep: fetching rooms failed", "error", err)
		return Report{}, fmt.Errorf("sweep: fetch rooms: %w", err)
	}
	logger.Info("sweep: rooms to process", "count", len(rooms))

	report := Report{Rooms: len(rooms)}

	for i, room := range rooms {
		if err := ctx.Err(); err != nil {
			logger.Warn("sweep: interrupted", "done", i, "total", len(rooms), "error", err)
			return report, fmt.Errorf("sweep: interrupted after %d of %d rooms: %w", i, len(rooms), err)
		}

		roomLogger := logger.With("room_id", room.RoomID)
		roomLogger.Info("sweep: processing room", "index", i+1, "total", len(rooms), "name", room.Name)

		outcome, skipped := p.skipReason(room)
		if skipped {
			roomLogger.Info("sweep: skipping room",
				"reason", outcome,
				"unread", room.UnreadNum,
				"mentions", room.MentionNum,
			)
		} else {
			outcome, err = p.processRoom(ctx, roomLogger, room)
			if err != nil {
				roomLogger.Warn("sweep: room failed", "error", err)
				outcome = OutcomeFailed
			}
		}

		report.record(outcome)
		p.recorder.RoomOutcome(outcome)
	}

	logger.Info("sweep: completed", "report", report)
	return report, nil
}

// skipReason applies the skip predicates in order; the first match wins.
func (p *Processor) skipReason(room chatwork.Room) (Outcome, bool) {
	if _, ok := p.excludeRooms[room.RoomID]; ok {
		return OutcomeSkippedExcluded, true
	}
	if room.UnreadNum == 0 {
		return OutcomeSkippedNoUnread, true
	}
	if room.MentionNum > 0 {
		return OutcomeSkippedMentioned, true
	}
	return "", false
}

func (p *Processor) processRoom(ctx context.Context, logger *slog.Logger, room chatwork.Room) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "sweep.room",
		trace.WithAttributes(attribute.Int64("chatwork.room_id", room.RoomID)),
	)
	defer span.End()

	messages, err := p.api.FetchMessages(ctx, room.RoomID)
	if err != nil {
		span.SetStatus(codes.Error, "fetch messages")
		return "", fmt.Errorf("fetch messages: %w", err)
	}

	logger.Info("sweep: searching target message", "messages", len(messages))
	target, ok := p.selector.Select(messages)
	if !ok {
		logger.Info("sweep: no target message")
		return OutcomeNoTarget, nil
	}

	if p.dryRun {
		logger.Info("sweep: dry run, would mark as read", "message_id", target.MessageID)
		return OutcomeDryRun, nil
	}

	status, err := p.api.MarkMessageAsRead(ctx, room.RoomID, target.MessageID)
	if err != nil {
		span.SetStatus(codes.Error, "mark as read")
		return "", fmt.Errorf("mark message %s as read: %w", target.MessageID, err)
	}

	logger.Info("sweep: marked as read",
		"message_id", target.MessageID,
		"unread_after", status.UnreadNum,
		"mentions_after", status.MentionNum,
	)
	return OutcomeMarked, nil
}
