package llm

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
)

// Chunk is one pull from a provider. Calls are reported once complete.
type Chunk struct {
	Text  string
	Calls []FunctionCall
}

// PullFunc returns the next chunk, or io.EOF once the response is complete.
type PullFunc func(ctx context.Context) (Chunk, error)

// Stream is an append-only token buffer in front of a PullFunc.
type Stream struct {
	mu     sync.Mutex
	pull   PullFunc
	closer func() error

	tokens []string
	calls  []FunctionCall
	done   bool
	err    error

	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps pull. closer may be nil.
func NewStream(pull PullFunc, closer func() error) *Stream {
	return &Stream{pull: pull, closer: closer}
}

var _ CompletionStream = (*Stream)(nil)

// Tokens implements CompletionStream.
func (s *Stream) Tokens(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i := 0; ; i++ {
			tok, ok, err := s.at(ctx, i)
			if err != nil {
				yield("", err)
				return
			}
			if !ok || !yield(tok, nil) {
				return
			}
		}
	}
}

// at returns the i-th token, pulling until it is buffered or the stream ends.
func (s *Stream) at(ctx context.Context, i int) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i >= len(s.tokens) {
		if s.done {
			return "", false, s.err
		}
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		chunk, err := s.pull(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.done = true
		case err != nil:
			s.done = true
			s.err = err
		default:
			s.calls = append(s.calls, chunk.Calls...)
			if chunk.Text != "" {
				s.tokens = append(s.tokens, chunk.Text)
			}
		}
	}
	return s.tokens[i], true, nil
}

// Done reports whether the provider has finished.
func (s *Stream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the provider failure, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// FunctionCalls implements CompletionStream.
func (s *Stream) FunctionCalls() []FunctionCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done || s.err != nil {
		return nil
	}
	return append([]FunctionCall(nil), s.calls...)
}

// Text implements CompletionStream.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.tokens, "")
}

// Close releases the provider connection.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer()
		}
	})
	return s.closeErr
}
