package provider

import (
	"bytes"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	// deltaPath is where OpenAI-style streaming frames carry their text.
	deltaPath = "choices.0.delta.content"
)

// SSEStream normalizes a `data: {...}` line-framed streaming response into a
// plain UTF-8 text stream. Lines without the data prefix are discarded, the
// [DONE] sentinel ends the stream immediately (any buffered remainder is
// dropped), and a malformed frame is skipped without aborting the stream.
// Frames may be split across arbitrary read boundaries; the decoder buffers
// until a full line is available.
type SSEStream struct {
	src     io.ReadCloser
	buf     []byte
	out     []byte
	scratch [4096]byte
	done    bool
}

// NewSSEStream wraps a raw SSE response body in a normalizing reader.
func NewSSEStream(src io.ReadCloser) *SSEStream {
	return &SSEStream{src: src}
}

// Read implements io.Reader, emitting decoded text fragments in receipt order.
func (s *SSEStream) Read(p []byte) (int, error) {
	for len(s.out) == 0 && !s.done {
		n, err := s.src.Read(s.scratch[:])
		if n > 0 {
			s.buf = append(s.buf, s.scratch[:n]...)
			s.decodeLines()
		}
		if err == io.EOF {
			// An unterminated partial line at EOF is an incomplete frame;
			// there is nothing recoverable in it.
			s.done = true
			break
		}
		if err != nil {
			return 0, err
		}
	}

	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		return n, nil
	}
	return 0, io.EOF
}

// Close closes the underlying response body.
func (s *SSEStream) Close() error {
	return s.src.Close()
}

func (s *SSEStream) decodeLines() {
	for {
		idx := bytes.IndexByte(s.buf, '\n')
		if idx < 0 {
			return
		}
		line := strings.TrimSpace(string(s.buf[:idx]))
		s.buf = s.buf[idx+1:]

		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == doneSentinel {
			s.done = true
			s.buf = nil
			return
		}
		if !gjson.Valid(payload) {
			// Non-fatal parse error: drop the frame, keep the stream alive.
			continue
		}
		if content := gjson.Get(payload, deltaPath); content.Type == gjson.String && content.Str != "" {
			s.out = append(s.out, content.Str...)
		}
	}
}

// FragmentFunc yields the next text fragment of a natively-iterable upstream
// stream. It returns io.EOF when the source iterator completes.
type FragmentFunc func() (string, error)

// fragmentStream adapts a pull-based fragment iterator to io.ReadCloser,
// forwarding each non-empty fragment as it arrives. stop releases the
// underlying iterator when the stream is abandoned before exhaustion.
type fragmentStream struct {
	next    FragmentFunc
	stop    func()
	pending []byte
	done    bool
}

// NewFragmentStream wraps an iterator-style upstream in a byte stream.
// stop may be nil when the iterator needs no explicit release.
func NewFragmentStream(next FragmentFunc, stop func()) io.ReadCloser {
	return &fragmentStream{next: next, stop: stop}
}

func (f *fragmentStream) Read(p []byte) (int, error) {
	for len(f.pending) == 0 {
		if f.done {
			return 0, io.EOF
		}
		text, err := f.next()
		if err == io.EOF {
			f.done = true
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		f.pending = append(f.pending, text...)
	}

	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fragmentStream) Close() error {
	f.done = true
	if f.stop != nil {
		f.stop()
	}
	return nil
}
