// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned by the borsh reader when data ends before a
// field can be fully decoded.
var ErrShortBuffer = errors.New("chain: unexpected end of account data")

// anchorDiscriminator reproduces Anchor's account discriminator: the first
// eight bytes of sha256("account:<Name>"). The on-chain program is out of
// scope for this client (spec §1 "Out of scope: collaborators only"), but
// its account framing follows the same Anchor convention every other
// program in this ecosystem uses, so the executor can identify account
// kinds without a full IDL.
func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// Discriminator returns the leading 8 bytes of data, or the zero value if
// data is too short to carry one.
func Discriminator(data []byte) [8]byte {
	var d [8]byte
	if len(data) >= 8 {
		copy(d[:], data[:8])
	}
	return d
}

// borshWriter appends little-endian, Borsh-style fields to an internal
// buffer: fixed-width integers as-is, Vec<T>/String as a u32 length prefix
// followed by elements, Option<T> as a one-byte presence tag.
type borshWriter struct {
	buf []byte
}

func (w *borshWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *borshWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}
func (w *borshWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *borshWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *borshWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *borshWriter) i64(v int64) { w.u64(uint64(v)) }
func (w *borshWriter) bytes(v []byte) {
	w.u32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}
func (w *borshWriter) str(v string) { w.bytes([]byte(v)) }
func (w *borshWriter) fixed(v []byte) { w.buf = append(w.buf, v...) }

// borshReader consumes fields from a fixed buffer in the same order
// borshWriter appends them, returning ErrShortBuffer on truncation rather
// than panicking — account data can be observed mid-realloc by the
// on-chain program, so a short read must be a recoverable error.
type borshReader struct {
	buf []byte
	pos int
}

func (r *borshReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return ErrShortBuffer
	}
	return nil
}

func (r *borshReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *borshReader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *borshReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *borshReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *borshReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *borshReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *borshReader) bytesN(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, r.buf[r.pos:r.pos+n])
	r.pos += n
	return v, nil
}

func (r *borshReader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	return r.bytesN(int(n))
}

func (r *borshReader) str() (string, error) {
	b, err := r.bytes()
	return string(b), err
}
