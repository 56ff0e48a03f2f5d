package logbook

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Text fields are stored as Windows-1252 bytes (the game is a Windows title)
// in fixed-width slots: W content bytes plus a guaranteed NUL terminator,
// except the squadron name which occupies exactly W bytes with no terminator.

// decodeText interprets a fixed-width slot. Content ends at the first zero
// byte; whatever follows it is slot garbage, not part of the value. Numeric
// fields sit directly behind several text slots, so trimming only a trailing
// run of zeros would let stray bytes leak into the value.
func decodeText(field string, raw []byte) (string, error) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%s: decode text: %w", field, err)
	}
	return string(s), nil
}

// encodeText lays the value into a slot of the given total width, zero-padded.
// terminated slots reserve their final byte for the NUL, so the content must
// be strictly shorter than the slot; the unterminated squadron slot may be
// filled completely.
func encodeText(field, value string, width int, terminated bool) ([]byte, error) {
	raw, err := charmap.Windows1252.NewEncoder().Bytes([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not representable: %w", field, value, err)
	}
	limit := width
	if terminated {
		limit = width - 1
	}
	if len(raw) > limit {
		return nil, fmt.Errorf("%s: %q is %d bytes, limit is %d", field, value, len(raw), limit)
	}
	slot := make([]byte, width)
	copy(slot, raw)
	return slot, nil
}
