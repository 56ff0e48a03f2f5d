package logbook

import "fmt"

// The password slot carries a second obfuscation layer on top of the stream
// cipher: a stateless, position-indexed XOR of two fixed repeating masks.
// The transform is its own inverse, so one routine serves both directions.
//
// The mask lengths are part of the format. Their combined value at the
// terminator index happens to be zero, which is what keeps the slot's NUL
// intact on disk; maskTerminatorZero verifies that property instead of
// assuming it, so a careless edit to either constant fails fast.
var (
	passwordMask1 = []byte("Check your six, pilot!")    // 22 bytes
	passwordMask2 = []byte("Fox three, splash bandit!") // 25 bytes
)

const (
	passwordLen  = 10
	passwordSlot = passwordLen + 1
)

func maskTerminatorZero() bool {
	j := passwordSlot - 1
	return passwordMask1[j%len(passwordMask1)]^passwordMask2[j%len(passwordMask2)] == 0
}

// scramblePassword XORs the combined masks over the full 11-byte slot in
// place.
func scramblePassword(slot []byte) error {
	if len(slot) != passwordSlot {
		return fmt.Errorf("password slot is %d bytes, want %d", len(slot), passwordSlot)
	}
	if !maskTerminatorZero() {
		return fmt.Errorf("password masks don't cancel at terminator index %d", passwordSlot-1)
	}
	for j := range slot {
		slot[j] ^= passwordMask1[j%len(passwordMask1)] ^ passwordMask2[j%len(passwordMask2)]
	}
	return nil
}

// decodePassword unmasks a slot already stripped of the stream cipher. A
// nonzero terminator after unmasking means the file is corrupt or was written
// with different masks.
func decodePassword(slot []byte) (string, error) {
	if err := scramblePassword(slot); err != nil {
		return "", err
	}
	if slot[passwordSlot-1] != 0 {
		return "", fmt.Errorf("password terminator is 0x%02X after unmasking, want 0", slot[passwordSlot-1])
	}
	return decodeText("password", slot)
}

// encodePassword lays out and masks the password slot; the stream cipher is
// applied by the caller when the slot is written.
func encodePassword(value string) ([]byte, error) {
	slot, err := encodeText("password", value, passwordSlot, true)
	if err != nil {
		return nil, err
	}
	if err := scramblePassword(slot); err != nil {
		return nil, err
	}
	return slot, nil
}
