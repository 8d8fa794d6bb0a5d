package sources

import (
	"context"
	"strconv"
	"sync"

	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
)

// Static is an in-memory Source. It backs tests and dry runs, and can
// simulate remote failures per operation.
type Static struct {
	caps Capabilities

	mu           sync.RWMutex
	records      map[string][]records.Record
	comments     map[string]int
	listErr      error
	commentErrs  map[string]error
	commentCalls map[string]int
}

// NewStatic creates an empty Static source.
func NewStatic(caps Capabilities) *Static {
	return &Static{
		caps:         caps,
		records:      make(map[string][]records.Record),
		comments:     make(map[string]int),
		commentErrs:  make(map[string]error),
		commentCalls: make(map[string]int),
	}
}

// Capabilities implements Source.
func (s *Static) Capabilities() Capabilities {
	return s.caps
}

// SetRecords replaces the records of a container.
func (s *Static) SetRecords(container string, recs ...records.Record) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[container] = append([]records.Record(nil), recs...)
	return s
}

// UpdateRecord replaces one record in whichever container holds it.
func (s *Static) UpdateRecord(rec records.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for container, recs := range s.records {
		for i := range recs {
			if recs[i].ID == rec.ID {
				s.records[container][i] = rec
				return
			}
		}
	}
}

// SetComments sets the number of comments a record has.
func (s *Static) SetComments(recordID string, n int) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[recordID] = n
	return s
}

// FailList makes ListRecords fail with err until cleared with nil.
func (s *Static) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// FailComments makes ListComments fail for one record.
func (s *Static) FailComments(recordID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentErrs[recordID] = err
}

// CommentCalls returns how often comments were fetched for a record.
func (s *Static) CommentCalls(recordID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commentCalls[recordID]
}

// ListRecords implements Source.
func (s *Static) ListRecords(_ context.Context, container string) ([]records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	recs, ok := s.records[container]
	if !ok {
		return nil, errors.NewNotFoundError("container", container)
	}
	return append([]records.Record(nil), recs...), nil
}

// ListComments implements Source.
func (s *Static) ListComments(_ context.Context, recordID string) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentCalls[recordID]++
	if err := s.commentErrs[recordID]; err != nil {
		return nil, err
	}
	out := make([]Comment, s.comments[recordID])
	for i := range out {
		out[i] = Comment{ID: recordID + "-c" + strconv.Itoa(i)}
	}
	return out, nil
}
