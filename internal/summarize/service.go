package summarize

import (
	"context"
	"errors"
	"fmt"

	"errlog/internal/logstore"

	"go.uber.org/zap"
)

var ErrEmptyLog = errors.New("the log file is empty")

// RowStore is the slice of *logstore.Store the Service needs.
type RowStore interface {
	Load(ctx context.Context) ([]logstore.Row, error)
	Get(ctx context.Context, id string) (logstore.Row, error)
	UpdateFields(ctx context.Context, id string, values map[logstore.Field]string) (logstore.Row, error)
}

// Service fills the Error_Summary and Notes_Summary columns of log rows.
type Service struct {
	store  RowStore
	model  Summarizer
	logger *zap.Logger
}

func NewService(store RowStore, model Summarizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, model: model, logger: logger}
}

// Field summarizes one text, returning placeholder without calling the
// backend when text is blank.
func (s *Service) Field(ctx context.Context, text, placeholder string) (string, error) {
	if isBlank(text) {
		return placeholder, nil
	}
	return s.model.Summarize(ctx, text, TargetLength(text))
}

// SummarizeRow computes both summaries for one row and stores them in a
// single write. On backend failure nothing is written.
func (s *Service) SummarizeRow(ctx context.Context, id string) (logstore.Row, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		return logstore.Row{}, err
	}
	return s.summarize(ctx, row)
}

func (s *Service) summarize(ctx context.Context, row logstore.Row) (logstore.Row, error) {
	errSummary, err := s.Field(ctx, row.Error, NoErrorPlaceholder)
	if err != nil {
		return logstore.Row{}, fmt.Errorf("summarize error text: %w", err)
	}
	notesSummary, err := s.Field(ctx, row.UserNotes, NoNotesPlaceholder)
	if err != nil {
		return logstore.Row{}, fmt.Errorf("summarize notes: %w", err)
	}

	updated, err := s.store.UpdateFields(ctx, row.ID, map[logstore.Field]string{
		logstore.FieldErrorSummary: errSummary,
		logstore.FieldNotesSummary: notesSummary,
	})
	if err != nil {
		return logstore.Row{}, err
	}
	s.logger.Info("row summarized", zap.String("id", row.ID))
	return updated, nil
}

// SummarizeAll walks every row in order and stops at the first failure.
// Rows finished before the failure keep their new summaries.
func (s *Service) SummarizeAll(ctx context.Context) (int, error) {
	rows, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ErrEmptyLog
	}
	done := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.summarize(ctx, row); err != nil {
			return done, fmt.Errorf("row %s: %w", row.ID, err)
		}
		done++
	}
	return done, nil
}
