package session

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrCorrupt is returned when a stored blob cannot be decoded into its record.
var ErrCorrupt = errors.New("session: corrupt record")

var jsonNull = []byte("null")

// Encode serialises a record to its persisted JSON form.
func Encode(v any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

// Decode parses a persisted blob into out. Empty input and a bare JSON null
// are treated as corrupt; the browser-era writer never stored either.
func Decode(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		return fmt.Errorf("%w: empty payload", ErrCorrupt)
	}
	if err := sonic.ConfigStd.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
