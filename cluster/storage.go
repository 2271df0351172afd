package cluster

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

const (
	archiveMagic   uint32 = 0x524d5031 // "RMP1"
	archiveVersion uint32 = 1
	maxRecordSize  uint32 = 1 << 20
	// maxPrealloc bounds the initial slice; the header count is untrusted.
	maxPrealloc uint32 = 4096
)

var ErrBadArchive = errors.New("not a pin archive")

// SavePinsCompressed writes pins as a zstd stream: magic, version, count,
// then one length-prefixed JSON record per pin.
func SavePinsCompressed(filename string, pins PinSet) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 256*1024)
	if err := WritePins(bufWriter, pins); err != nil {
		return err
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return file.Sync()
}

// WritePins encodes pins into w in the archive format.
func WritePins(w io.Writer, pins PinSet) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	header := []uint32{archiveMagic, archiveVersion, uint32(len(pins))}
	if err := binary.Write(enc, binary.LittleEndian, header); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range pins {
		record, err := json.Marshal(p)
		if err != nil {
			enc.Close()
			return fmt.Errorf("failed to marshal pin %s: %w", p.ID, err)
		}
		if err := binary.Write(enc, binary.LittleEndian, uint32(len(record))); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write record size: %w", err)
		}
		if _, err := enc.Write(record); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	return nil
}

// LoadPinsCompressed reads an archive written by SavePinsCompressed.
func LoadPinsCompressed(filename string) (PinSet, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadPins(bufio.NewReaderSize(file, 256*1024))
}

// ReadPins decodes an archive from r.
func ReadPins(r io.Reader) (PinSet, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	var header [3]uint32
	if err := binary.Read(dec, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != archiveMagic {
		return nil, ErrBadArchive
	}
	if header[1] != archiveVersion {
		return nil, fmt.Errorf("archive version %d: %w", header[1], ErrBadArchive)
	}

	count := header[2]
	pins := make(PinSet, 0, min(count, maxPrealloc))
	buf := make([]byte, 0, 4096)

	for i := uint32(0); i < count; i++ {
		var size uint32
		if err := binary.Read(dec, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("failed to read record %d size: %w", i, err)
		}
		if size > maxRecordSize {
			return nil, fmt.Errorf("record %d is %d bytes: %w", i, size, ErrBadArchive)
		}
		if cap(buf) < int(size) {
			buf = make([]byte, size)
		}
		buf = buf[:size]
		if _, err := io.ReadFull(dec, buf); err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", i, err)
		}

		var p PropertyPin
		if err := json.Unmarshal(buf, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %d: %w", i, err)
		}
		pins = append(pins, p)
	}

	if err := pins.Validate(); err != nil {
		return nil, err
	}
	return pins, nil
}
