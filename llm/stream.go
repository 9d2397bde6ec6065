// Pull-based streaming. Adapters produce chunks into an unbuffered channel
// from a goroutine; the consumer drives the sequence one chunk at a time, so
// an unread stream exerts natural backpressure on the provider connection.

package llm

import (
	"context"
	"strings"
)

// streamEnd carries the producer's terminal state.
type streamEnd struct {
	usage *TokenUsage
	err   error
}

// Stream is a finite, non-restartable sequence of text chunks from one
// streamed chat completion. Chunks arrive in the exact order the provider
// emitted them. A Stream is single-consumer: it must not be iterated from
// multiple goroutines.
//
// Typical use:
//
//	stream, err := provider.Stream(ctx, messages, nil)
//	if err != nil { ... }
//	defer stream.Close()
//	for stream.Next() {
//		fmt.Print(stream.Current())
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	cancel context.CancelFunc
	chunks <-chan string
	end    <-chan streamEnd

	cur   string
	err   error
	done  bool
	full  strings.Builder
	usage *TokenUsage

	onChunk    func(string)
	onComplete func(string)
	onError    func(error)
}

// NewStream runs produce in a goroutine and returns the consumer side.
// produce must emit every chunk through emit and return when the provider
// stream ends; emit blocks until the consumer pulls the chunk or the stream
// context is cancelled, in which case it returns the context error and
// produce should abandon the call. Optional callbacks in opts are invoked
// from the consumer's goroutine, each terminal callback exactly once.
func NewStream(ctx context.Context, opts *StreamOptions, produce func(ctx context.Context, emit func(string) error) (*TokenUsage, error)) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	chunks := make(chan string)
	end := make(chan streamEnd, 1)

	emit := func(chunk string) error {
		select {
		case chunks <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		usage, err := produce(ctx, emit)
		close(chunks)
		end <- streamEnd{usage: usage, err: err}
	}()

	s := &Stream{cancel: cancel, chunks: chunks, end: end}
	if opts != nil {
		s.onChunk = opts.OnChunk
		s.onComplete = opts.OnComplete
		s.onError = opts.OnError
	}
	return s
}

// Next advances to the next chunk. It returns false when the stream has
// ended, either normally or with an error; check Err afterwards.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	chunk, ok := <-s.chunks
	if ok {
		s.cur = chunk
		s.full.WriteString(chunk)
		if s.onChunk != nil {
			s.onChunk(chunk)
		}
		return true
	}

	e := <-s.end
	s.done = true
	s.usage = e.usage
	s.err = e.err
	if s.err != nil {
		if s.onError != nil {
			s.onError(s.err)
		}
	} else if s.onComplete != nil {
		s.onComplete(s.full.String())
	}
	return false
}

// Current returns the most recent chunk yielded by Next.
func (s *Stream) Current() string { return s.cur }

// Err returns the terminal error, if the stream ended with one.
func (s *Stream) Err() error { return s.err }

// Text returns the concatenation of all chunks yielded so far.
func (s *Stream) Text() string { return s.full.String() }

// Usage returns token usage reported by the provider, available once the
// stream has ended. May be nil when the provider reported none.
func (s *Stream) Usage() *TokenUsage { return s.usage }

// Collect drains the remaining chunks and returns the full text. On failure
// it returns whatever text accumulated before the error.
func (s *Stream) Collect() (string, error) {
	for s.Next() {
	}
	return s.full.String(), s.err
}

// Close cancels the underlying provider request and drains the stream so the
// producer goroutine exits and terminal callbacks still fire. Safe to call
// after normal completion.
func (s *Stream) Close() error {
	s.cancel()
	for s.Next() {
	}
	return nil
}
