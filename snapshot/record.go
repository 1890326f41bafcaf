// Package snapshot frames opaque core state blobs into versioned, checksummed
// records. A record is the unit of rewind history and of on-disk save states;
// its binary layout is the only durable format the host layer defines. The
// blob inside stays private to the core that produced it.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"meru/core"
)

// Record framing, little-endian:
//
//	magic     [4]byte "MRST"
//	verMajor  uint8
//	verMinor  uint8
//	platform  uint8
//	reserved  uint8
//	frame     uint64
//	blobLen   uint32
//	blob      [blobLen]byte
//	checksum  uint32   crc32(IEEE) over platform | frame | blob
//
// Records with the same major version decode regardless of minor version;
// a higher major version fails closed with ErrUnsupportedVersion.
const (
	Magic = "MRST"

	VersionMajor = 1
	VersionMinor = 0

	headerSize  = 20
	trailerSize = 4
)

var (
	// ErrCorrupt is returned by Decode for bad magic, truncated data or a
	// checksum mismatch. No partial record is ever returned.
	ErrCorrupt = errors.New("snapshot record corrupt")

	// ErrUnsupportedVersion is returned for records written by a newer
	// incompatible format version. Decoding fails closed, never best-effort.
	ErrUnsupportedVersion = errors.New("snapshot record version unsupported")
)

// Record is one captured machine state plus the host-side metadata needed to
// validate and order it.
type Record struct {
	VerMajor   uint8
	VerMinor   uint8
	Platform   core.Platform
	FrameIndex uint64
	Blob       []byte
	Checksum   uint32
}

// Encode builds a record around blob, stamping the current format version
// and the integrity checksum. The blob is not copied; callers hand over
// ownership.
func Encode(platform core.Platform, frameIndex uint64, blob []byte) *Record {
	return &Record{
		VerMajor:   VersionMajor,
		VerMinor:   VersionMinor,
		Platform:   platform,
		FrameIndex: frameIndex,
		Blob:       blob,
		Checksum:   checksum(platform, frameIndex, blob),
	}
}

func checksum(platform core.Platform, frameIndex uint64, blob []byte) uint32 {
	var meta [9]byte
	meta[0] = byte(platform)
	binary.LittleEndian.PutUint64(meta[1:], frameIndex)

	crc := crc32.Update(0, crc32.IEEETable, meta[:])
	return crc32.Update(crc, crc32.IEEETable, blob)
}

// Valid reports whether the record's checksum matches its contents.
func (r *Record) Valid() bool {
	return r.Checksum == checksum(r.Platform, r.FrameIndex, r.Blob)
}

// MarshalBinary serializes the record into the durable wire layout.
func (r *Record) MarshalBinary() ([]byte, error) {
	if len(r.Blob) > 1<<31-1 {
		return nil, fmt.Errorf("blob too large: %d bytes", len(r.Blob))
	}

	buf := make([]byte, headerSize+len(r.Blob)+trailerSize)
	copy(buf, Magic)
	buf[4] = r.VerMajor
	buf[5] = r.VerMinor
	buf[6] = byte(r.Platform)
	buf[7] = 0
	binary.LittleEndian.PutUint64(buf[8:], r.FrameIndex)
	binary.LittleEndian.PutUint32(buf[16:], uint32(len(r.Blob)))
	copy(buf[headerSize:], r.Blob)
	binary.LittleEndian.PutUint32(buf[headerSize+len(r.Blob):], r.Checksum)
	return buf, nil
}

// Decode parses and validates a serialized record. It verifies the magic,
// the format version, the framing lengths and the checksum; any failure
// yields ErrCorrupt or ErrUnsupportedVersion and no record.
func Decode(data []byte) (*Record, error) {
	if len(data) < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than framing", ErrCorrupt, len(data))
	}
	if string(data[:4]) != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	rec := &Record{
		VerMajor:   data[4],
		VerMinor:   data[5],
		Platform:   core.Platform(data[6]),
		FrameIndex: binary.LittleEndian.Uint64(data[8:]),
	}
	if rec.VerMajor != VersionMajor {
		return nil, fmt.Errorf("%w: record v%d.%d, decoder v%d.%d",
			ErrUnsupportedVersion, rec.VerMajor, rec.VerMinor, VersionMajor, VersionMinor)
	}

	blobLen := int(binary.LittleEndian.Uint32(data[16:]))
	if len(data) != headerSize+blobLen+trailerSize {
		return nil, fmt.Errorf("%w: framing says %d blob bytes, have %d",
			ErrCorrupt, blobLen, len(data)-headerSize-trailerSize)
	}

	rec.Blob = make([]byte, blobLen)
	copy(rec.Blob, data[headerSize:headerSize+blobLen])
	rec.Checksum = binary.LittleEndian.Uint32(data[headerSize+blobLen:])

	if !rec.Valid() {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return rec, nil
}
