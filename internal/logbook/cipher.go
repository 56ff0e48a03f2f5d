package logbook

import "io"

// The logbook file is obfuscated end to end with a byte-feedback XOR stream:
// each byte is XORed with a repeating master key and with the previous
// ciphertext byte. Feeding the ciphertext (not the plaintext) back into the
// register makes the transform self-synchronizing and makes encode and decode
// exact inverses. This is obfuscation, not cryptography.
var masterKey = []byte("Falcon is your Master")

// initialState seeds the feedback register at stream start.
const initialState = 0x58

// keystream is the per-operation cipher state. Every decode or encode owns its
// own keystream; nothing is shared or global.
type keystream struct {
	state byte
	pos   int
}

func newKeystream() *keystream {
	return &keystream{state: initialState}
}

// decode transforms one ciphertext byte to plaintext and advances the stream.
func (k *keystream) decode(c byte) byte {
	p := c ^ k.state ^ masterKey[k.pos%len(masterKey)]
	k.state = c
	k.pos++
	return p
}

// encode transforms one plaintext byte to ciphertext and advances the stream.
func (k *keystream) encode(p byte) byte {
	c := p ^ masterKey[k.pos%len(masterKey)] ^ k.state
	k.state = c
	k.pos++
	return c
}

// cipherReader de-obfuscates every byte read from the underlying source. The
// byte offset it tracks is the authority for the layout's alignment
// checkpoints.
type cipherReader struct {
	inner io.Reader
	ks    *keystream
}

func newCipherReader(r io.Reader) *cipherReader {
	return &cipherReader{inner: r, ks: newKeystream()}
}

func (r *cipherReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	for i := 0; i < n; i++ {
		p[i] = r.ks.decode(p[i])
	}
	return n, err
}

func (r *cipherReader) offset() int { return r.ks.pos }

// cipherWriter obfuscates every byte before it reaches the underlying sink.
type cipherWriter struct {
	inner io.Writer
	ks    *keystream
}

func newCipherWriter(w io.Writer) *cipherWriter {
	return &cipherWriter{inner: w, ks: newKeystream()}
}

func (w *cipherWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	for i, b := range p {
		buf[i] = w.ks.encode(b)
	}
	n, err := w.inner.Write(buf)
	if n < len(p) && err == nil {
		err = io.ErrShortWrite
	}
	return n, err
}

func (w *cipherWriter) offset() int { return w.ks.pos }
