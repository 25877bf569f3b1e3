// Package cipher implements the AES-128 CFB-8 stream cipher used to
// encrypt a connection once the client has completed key exchange
// (spec.md §4.5). Key exchange itself (RSA handshake, session-server
// verification) is out of scope here; this package only installs the
// shared secret once a collaborator has negotiated one.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// ErrBadKeyLength is returned when the shared secret is not exactly
// 16 bytes, the only key size the Java protocol's handshake produces.
var ErrBadKeyLength = errors.New("cipher: shared secret must be 16 bytes")

const blockSize = 16

// Stream implements 8-bit CFB encryption and decryption over a single
// AES-128 block cipher, matching the reference implementation's
// feedback-shift-register construction byte by byte rather than using
// stdlib crypto/cipher's block-at-a-time CFB mode.
type Stream struct {
	block        cipher.Block
	encryptShift [blockSize]byte
	decryptShift [blockSize]byte
}

// New installs encryption on a connection given the 16-byte shared
// secret negotiated during the handshake. The same secret seeds both
// the encrypt and decrypt feedback registers, matching the Java
// protocol's use of the shared secret as the initial IV in both
// directions.
func New(sharedSecret []byte) (*Stream, error) {
	if len(sharedSecret) != blockSize {
		return nil, ErrBadKeyLength
	}
	block, err := aes.NewCipher(sharedSecret)
	if err != nil {
		return nil, err
	}
	s := &Stream{block: block}
	copy(s.encryptShift[:], sharedSecret)
	copy(s.decryptShift[:], sharedSecret)
	return s, nil
}

// Encrypt transforms plaintext into ciphertext in place.
func (s *Stream) Encrypt(data []byte) {
	var temp [blockSize]byte
	for i, plainByte := range data {
		s.block.Encrypt(temp[:], s.encryptShift[:])
		cipherByte := temp[0] ^ plainByte
		data[i] = cipherByte
		shiftLeft(&s.encryptShift, cipherByte)
	}
}

// Decrypt transforms ciphertext into plaintext in place.
func (s *Stream) Decrypt(data []byte) {
	var temp [blockSize]byte
	for i, cipherByte := range data {
		s.block.Encrypt(temp[:], s.decryptShift[:])
		plainByte := temp[0] ^ cipherByte
		shiftLeft(&s.decryptShift, cipherByte)
		data[i] = plainByte
	}
}

// shiftLeft drops buf[0], shifts the remaining bytes down one slot
// and appends last, implementing the CFB-8 feedback register update.
func shiftLeft(buf *[blockSize]byte, last byte) {
	copy(buf[:blockSize-1], buf[1:])
	buf[blockSize-1] = last
}
