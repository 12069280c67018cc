package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"light_control/internal/models"
	"light_control/internal/repository"
)

var (
	// ErrNoJournal is returned by List when the service runs without a journal.
	ErrNoJournal = errors.New("command journal is disabled")
	// ErrInvalidTimeRange is returned when From is after To.
	ErrInvalidTimeRange = errors.New("invalid time range: from must not be after to")
	// ErrUnknownEventType is returned for a Type that is not a journal event type.
	ErrUnknownEventType = errors.New("unknown event type")
)

// LogFilter selects journal entries. Zero fields match everything.
type LogFilter struct {
	From  time.Time      // inclusive
	To    time.Time      // inclusive
	Type  string         // journal event type, case-insensitive
	Relay models.RelayID // entries whose metadata names this relay
}

// normalize returns f with UTC bounds and an upper-case type, or the reason
// f can never match.
func (f LogFilter) normalize() (LogFilter, error) {
	if !f.From.IsZero() {
		f.From = f.From.UTC()
	}
	if !f.To.IsZero() {
		f.To = f.To.UTC()
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, ErrInvalidTimeRange
	}

	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	if f.Type != "" && !models.KnownEventType(f.Type) {
		return f, fmt.Errorf("%w: %q", ErrUnknownEventType, f.Type)
	}
	if f.Relay != 0 && !f.Relay.Valid() {
		return f, fmt.Errorf("%w: %d", ErrUnknownRelay, f.Relay)
	}
	return f, nil
}

// EventLogService reads back what the dispatcher and poller journaled.
type EventLogService struct {
	journal repository.EventRepo
}

func NewEventLogService(journal repository.EventRepo) *EventLogService {
	return &EventLogService{journal: journal}
}

// List returns journal entries matching f, oldest first. Time and type are
// filtered by the journal; the relay is matched on entry metadata.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.CommandEvent, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}

	events, err := s.journal.List(ctx, f.From, f.To, f.Type)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	if f.Relay == 0 {
		return events, nil
	}

	out := make([]models.CommandEvent, 0, len(events))
	for _, e := range events {
		if eventRelay(e) == f.Relay {
			out = append(out, e)
		}
	}
	return out, nil
}

// eventRelay returns the relay recorded in e's metadata, or 0. Metadata read
// back from SQLite carries JSON numbers; freshly appended entries carry ints.
func eventRelay(e models.CommandEvent) models.RelayID {
	meta, ok := e.Metadata.(map[string]any)
	if !ok {
		return 0
	}
	switch v := meta["relay"].(type) {
	case float64:
		return models.RelayID(v)
	case int:
		return models.RelayID(v)
	}
	return 0
}
