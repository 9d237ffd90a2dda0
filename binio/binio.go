// Package binio reads and writes little-endian integers in byte buffers and streams.
//
// Buffer helpers take an explicit offset; the caller guarantees capacity and an
// out-of-range offset panics.
package binio

import (
	"encoding/binary"
	"io"
)

var le = binary.LittleEndian

func PutUint16(b []byte, off int, v uint16) { le.PutUint16(b[off:off+2], v) }
func PutUint32(b []byte, off int, v uint32) { le.PutUint32(b[off:off+4], v) }
func PutInt32(b []byte, off int, v int32)   { le.PutUint32(b[off:off+4], uint32(v)) }
func PutUint64(b []byte, off int, v uint64) { le.PutUint64(b[off:off+8], v) }

func Uint16(b []byte, off int) uint16 { return le.Uint16(b[off : off+2]) }
func Uint32(b []byte, off int) uint32 { return le.Uint32(b[off : off+4]) }
func Int32(b []byte, off int) int32   { return int32(le.Uint32(b[off : off+4])) }
func Uint64(b []byte, off int) uint64 { return le.Uint64(b[off : off+8]) }

func WriteUint16(w io.Writer, v uint16) error {
	var b [2]byte
	le.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	le.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func WriteInt32(w io.Writer, v int32) error {
	return WriteUint32(w, uint32(v))
}

func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	le.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// ReadUint16 reads exactly two bytes. A short read is io.ErrUnexpectedEOF.
func ReadUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return le.Uint16(b[:]), nil
}

func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return le.Uint32(b[:]), nil
}

func ReadInt32(r io.Reader) (int32, error) {
	v, err := ReadUint32(r)
	return int32(v), err
}

func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return le.Uint64(b[:]), nil
}
