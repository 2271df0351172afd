package cluster

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// LoadPinsFile maps a JSON array of pins into memory and decodes it.
func LoadPinsFile(filename string) (PinSet, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	// mapping an empty file fails on most platforms
	if info.Size() == 0 {
		return PinSet{}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	defer data.Unmap()

	var pins PinSet
	if err := json.Unmarshal(data, &pins); err != nil {
		return nil, fmt.Errorf("failed to decode pins: %w", err)
	}
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	return pins, nil
}

// SavePinsFile writes pins as a JSON array through a writable mapping.
func SavePinsFile(filename string, pins PinSet) error {
	payload, err := json.Marshal(pins)
	if err != nil {
		return fmt.Errorf("failed to encode pins: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := file.Truncate(int64(len(payload))); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}

	data, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}
	copy(data, payload)

	if err := data.Flush(); err != nil {
		data.Unmap()
		return fmt.Errorf("failed to flush mapping: %w", err)
	}
	if err := data.Unmap(); err != nil {
		return fmt.Errorf("failed to unmap file: %w", err)
	}
	return nil
}
