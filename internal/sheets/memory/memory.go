package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"paycalc/internal/sheets"
)

// Store keeps exported sheets in memory.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]any
	order  []string
}

var _ sheets.SheetWriter = (*Store)(nil)

func New() *Store {
	return &Store{sheets: map[string][][]any{}}
}

// ReplaceSheet stores a copy of rows and returns a synthetic reference.
func (s *Store) ReplaceSheet(_ context.Context, sheet string, rows [][]any) (string, error) {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return "", errors.New("sheet name is empty")
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[sheet]; !ok {
		s.order = append(s.order, sheet)
	}
	s.sheets[sheet] = cp
	return "mem:" + sheet, nil
}

// Sheet returns the rows last written to sheet.
func (s *Store) Sheet(sheet string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	return rows, ok
}

// Names lists sheets in first-written order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
