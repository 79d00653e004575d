// Package producer supplies in-memory submission streams, such as the
// starter code of every level for a level self-check.
package producer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

// maxLevelGap bounds how many missing numbers FromLevels skips over.
const maxLevelGap = 100

// Service implements ports.SubmissionProducer over a fixed list.
type Service struct {
	mu    sync.Mutex
	subs  []execution.Submission
	index int
}

var _ ports.SubmissionProducer = (*Service)(nil)

// NewService builds a producer that yields subs in order.
func NewService(subs ...execution.Submission) *Service {
	s := &Service{}
	for _, sub := range subs {
		s.Add(sub)
	}
	return s
}

// FromLevels builds a producer with one submission per level in store,
// carrying the level's starter code.
func FromLevels(ctx context.Context, store ports.LevelStore) (*Service, error) {
	total, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count levels: %w", err)
	}

	s := &Service{}
	found := 0
	for id := 1; found < total && id <= total+maxLevelGap; id++ {
		lvl, err := store.Load(ctx, id)
		if errors.Is(err, ports.ErrLevelNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load level %d: %w", id, err)
		}
		s.Add(execution.Submission{
			ID:      "level-" + strconv.Itoa(id) + "-starter",
			LevelID: strconv.Itoa(id),
			Code:    lvl.Code,
		})
		found++
	}
	return s, nil
}

// NextSubmission returns the next queued submission or io.EOF.
func (s *Service) NextSubmission(ctx context.Context) (execution.Submission, error) {
	select {
	case <-ctx.Done():
		return execution.Submission{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.subs) {
		return execution.Submission{}, io.EOF
	}

	sub := s.subs[s.index]
	s.index++

	return sub, nil
}

// Add appends a submission, assigning an ID when it has none.
func (s *Service) Add(sub execution.Submission) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, sub)
}

// Len reports how many submissions were queued in total.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
