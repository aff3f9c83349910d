package gldf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the codec for undo history snapshots.
type Compression uint8

const (
	CompNone Compression = iota
	CompFlate
	CompZSTD
	CompLZ4
	CompBR
)

// String returns the codec name, e.g. "zstd".
func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompFlate:
		return "flate"
	case CompZSTD:
		return "zstd"
	case CompLZ4:
		return "lz4"
	case CompBR:
		return "brotli"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// Snapshot blob layout: 1 codec byte, 8-byte little-endian uncompressed
// length, compressed payload. The length prefix bounds decompression.
const snapshotHeaderSize = 9

// compressSnapshot encodes data into a self-describing snapshot blob.
func compressSnapshot(comp Compression, data []byte) ([]byte, error) {
	var compressed []byte
	var err error
	switch comp {
	case CompNone:
		compressed = data
	case CompFlate:
		compressed, err = flateCompress(data)
	case CompZSTD:
		compressed, err = zstdCompress(data)
	case CompLZ4:
		compressed, err = lz4Compress(data)
	case CompBR:
		compressed, err = brotliCompress(data)
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrValidation, comp)
	}
	if err != nil {
		return nil, err
	}
	blob := make([]byte, snapshotHeaderSize, snapshotHeaderSize+len(compressed))
	blob[0] = byte(comp)
	binary.LittleEndian.PutUint64(blob[1:9], uint64(len(data)))
	return append(blob, compressed...), nil
}

// decompressSnapshot decodes a snapshot blob, enforcing maxSize against the
// declared uncompressed length and the actual decoder output.
func decompressSnapshot(blob []byte, maxSize uint64) ([]byte, error) {
	if len(blob) < snapshotHeaderSize {
		return nil, fmt.Errorf("%w: snapshot too short", ErrValidation)
	}
	comp := Compression(blob[0])
	declared := binary.LittleEndian.Uint64(blob[1:9])
	if declared > maxSize {
		return nil, fmt.Errorf("%w: snapshot declares %d bytes", ErrLimitExceeded, declared)
	}
	payload := blob[snapshotHeaderSize:]

	var out []byte
	var err error
	switch comp {
	case CompNone:
		out = payload
	case CompFlate:
		out, err = boundedReadAll(flate.NewReader(bytes.NewReader(payload)), declared)
	case CompZSTD:
		out, err = zstdDecompress(payload, declared)
	case CompLZ4:
		out, err = boundedReadAll(lz4.NewReader(bytes.NewReader(payload)), declared)
	case CompBR:
		out, err = boundedReadAll(brotli.NewReader(bytes.NewReader(payload)), declared)
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrValidation, comp)
	}
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != declared {
		return nil, fmt.Errorf("%w: snapshot length %d != declared %d", ErrValidation, len(out), declared)
	}
	return out, nil
}

// boundedReadAll reads at most expected bytes and fails if the stream
// expands beyond that.
func boundedReadAll(r io.Reader, expected uint64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, int64(expected)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > expected {
		return nil, fmt.Errorf("%w: snapshot expanded beyond declared size", ErrValidation)
	}
	return b, nil
}

func flateCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(in); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zstdCompress(in []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

func zstdDecompress(in []byte, expected uint64) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(in, nil)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) > expected {
		return nil, fmt.Errorf("%w: snapshot expanded beyond declared size", ErrValidation)
	}
	return out, nil
}

func lz4Compress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(in); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func brotliCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(in); err != nil {
		_ = bw.Close()
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
