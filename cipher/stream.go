package cipher

import "io"

// Reader wraps an io.Reader, decrypting every byte read through it.
type Reader struct {
	r      io.Reader
	stream *Stream
}

// NewReader returns a Reader that decrypts bytes read from r using s.
func NewReader(r io.Reader, s *Stream) *Reader { return &Reader{r: r, stream: s} }

func (c *Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.stream.Decrypt(p[:n])
	}
	return n, err
}

// Writer wraps an io.Writer, encrypting every byte written through it.
type Writer struct {
	w      io.Writer
	stream *Stream
}

// NewWriter returns a Writer that encrypts bytes before writing them to w.
func NewWriter(w io.Writer, s *Stream) *Writer { return &Writer{w: w, stream: s} }

func (c *Writer) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	c.stream.Encrypt(buf)
	return c.w.Write(buf)
}
