package diag

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/aspect-build/aspect-cli/wren/wren"
)

// Log is the stored form of one run's diagnostics.
type Log struct {
	Version string               `cbor:"1,keyasint"`
	Script  string               `cbor:"2,keyasint"`
	Result  wren.InterpretResult `cbor:"3,keyasint"`
	Events  []Event              `cbor:"4,keyasint"`
}

// cborEncMode uses canonical mode so equal logs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("diag: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Log to CBOR bytes.
func Marshal(l *Log) ([]byte, error) {
	return cborEncMode.Marshal(l)
}

// Unmarshal deserializes a Log from CBOR bytes.
func Unmarshal(data []byte) (*Log, error) {
	var l Log
	if err := cbor.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("diag: unmarshal log: %w", err)
	}
	return &l, nil
}

// WriteFile stores a Log at path.
func WriteFile(path string, l *Log) error {
	data, err := Marshal(l)
	if err != nil {
		return fmt.Errorf("diag: marshal log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("diag: write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a Log stored by WriteFile.
func ReadFile(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("diag: read %s: %w", path, err)
	}
	return Unmarshal(data)
}
