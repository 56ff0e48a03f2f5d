package logbook

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Field content widths. Terminated text slots occupy width+1 bytes on disk.
const (
	nameLen         = 20
	callsignLen     = 12
	commissionedLen = 12
	filenameLen     = 32
	personalTextLen = 120
	squadronLen     = 20
)

// RecordSize is the exact on-disk size of one logbook record.
const RecordSize = 372

// The record layout is rigid: a fixed sequence of fields whose byte offsets
// the game depends on, with 4-byte alignment checkpoints scattered through it.
// Each step of the layout knows how to run in both directions, so encode and
// decode cannot drift apart. The first failing step aborts the operation.
type step struct {
	decode func(r *reader, lb *Logbook) error
	encode func(w *writer, lb *Logbook) error
}

func layout() []step {
	return []step{
		textField("pilot name", nameLen, func(lb *Logbook) *string { return &lb.Name }),
		textField("callsign", callsignLen, func(lb *Logbook) *string { return &lb.Callsign }),
		passwordField(),
		textField("commissioned", commissionedLen, func(lb *Logbook) *string { return &lb.Commissioned }),
		textField("options file", callsignLen, func(lb *Logbook) *string { return &lb.OptionsFile }),
		reserved(1),
		f32Field("flight hours", func(lb *Logbook) *float32 { return &lb.FlightHours }),
		f32Field("ace factor", func(lb *Logbook) *float32 { return &lb.AceFactor }),
		rankField(),
		checkpoint(),
		statsField("dogfight stats", func(lb *Logbook) any { return &lb.DogfightStats }),
		checkpoint(),
		statsField("campaign stats", func(lb *Logbook) any { return &lb.CampaignStats }),
		reserved(2),
		checkpoint(),
		medalsField(),
		reserved(2),
		checkpoint(),
		reserved(4), // picture resource id, unused
		textField("picture file", filenameLen, func(lb *Logbook) *string { return &lb.PictureFile }),
		reserved(3),
		checkpoint(),
		reserved(4), // patch resource id, unused
		textField("patch file", filenameLen, func(lb *Logbook) *string { return &lb.PatchFile }),
		textField("personal text", personalTextLen, func(lb *Logbook) *string { return &lb.PersonalText }),
		squadronField(),
		voiceField(),
		sentinelField(),
	}
}

// Decode reads and de-obfuscates one logbook record from src.
func Decode(src io.Reader) (*Logbook, error) {
	r := &reader{newCipherReader(src)}
	lb := &Logbook{}
	for _, s := range layout() {
		if err := s.decode(r, lb); err != nil {
			return nil, err
		}
	}
	return lb, nil
}

// Encode obfuscates and writes the record to dst. Encoding a record that was
// decoded successfully reproduces the original bytes exactly.
func Encode(dst io.Writer, lb *Logbook) error {
	w := &writer{newCipherWriter(dst)}
	for _, s := range layout() {
		if err := s.encode(w, lb); err != nil {
			return err
		}
	}
	return nil
}

type reader struct {
	*cipherReader
}

func (r *reader) bytes(field string, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.cipherReader, buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return buf, nil
}

func (r *reader) number(field string, v any) error {
	if err := binary.Read(r.cipherReader, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("read %s: %w", field, err)
	}
	return nil
}

type writer struct {
	*cipherWriter
}

func (w *writer) bytes(field string, buf []byte) error {
	if _, err := w.cipherWriter.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", field, err)
	}
	return nil
}

func (w *writer) number(field string, v any) error {
	if err := binary.Write(w.cipherWriter, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("write %s: %w", field, err)
	}
	return nil
}

func textField(name string, width int, get func(*Logbook) *string) step {
	slot := width + 1
	return step{
		decode: func(r *reader, lb *Logbook) error {
			raw, err := r.bytes(name, slot)
			if err != nil {
				return err
			}
			s, err := decodeText(name, raw)
			if err != nil {
				return err
			}
			*get(lb) = s
			return nil
		},
		encode: func(w *writer, lb *Logbook) error {
			buf, err := encodeText(name, *get(lb), slot, true)
			if err != nil {
				return err
			}
			return w.bytes(name, buf)
		},
	}
}

// squadronField is the one text slot without a terminator: exactly
// squadronLen bytes, content may fill the slot completely.
func squadronField() step {
	const name = "squadron"
	return step{
		decode: func(r *reader, lb *Logbook) error {
			raw, err := r.bytes(name, squadronLen)
			if err != nil {
				return err
			}
			s, err := decodeText(name, raw)
			if err != nil {
				return err
			}
			lb.Squadron = s
			return nil
		},
		encode: func(w *writer, lb *Logbook) error {
			buf, err := encodeText(name, lb.Squadron, squadronLen, false)
			if err != nil {
				return err
			}
			return w.bytes(name, buf)
		},
	}
}

func passwordField() step {
	const name = "password"
	return step{
		decode: func(r *reader, lb *Logbook) error {
			raw, err := r.bytes(name, passwordSlot)
			if err != nil {
				return err
			}
			s, err := decodePassword(raw)
			if err != nil {
				return err
			}
			lb.Password = s
			return nil
		},
		encode: func(w *writer, lb *Logbook) error {
			buf, err := encodePassword(lb.Password)
			if err != nil {
				return err
			}
			return w.bytes(name, buf)
		},
	}
}

func f32Field(name string, get func(*Logbook) *float32) step {
	return step{
		decode: func(r *reader, lb *Logbook) error {
			return r.number(name, get(lb))
		},
		encode: func(w *writer, lb *Logbook) error {
			return w.number(name, *get(lb))
		},
	}
}

func rankField() step {
	const name = "rank"
	return step{
		decode: func(r *reader, lb *Logbook) error {
			var v int32
			if err := r.number(name, &v); err != nil {
				return err
			}
			if !Rank(v).valid() {
				return fmt.Errorf("%d isn't a valid rank index", v)
			}
			lb.Rank = Rank(v)
			return nil
		},
		encode: func(w *writer, lb *Logbook) error {
			if !lb.Rank.valid() {
				return fmt.Errorf("%d isn't a valid rank index", int32(lb.Rank))
			}
			return w.number(name, int32(lb.Rank))
		},
	}
}

func voiceField() step {
	const name = "voice"
	check := func(v int16) error {
		if v < 0 || v > 11 {
			return fmt.Errorf("voice index %d out of range 0..11", v)
		}
		return nil
	}
	return step{
		decode: func(r *reader, lb *Logbook) error {
			var v int16
			if err := r.number(name, &v); err != nil {
				return err
			}
			if err := check(v); err != nil {
				return err
			}
			lb.Voice = v
			return nil
		},
		encode: func(w *writer, lb *Logbook) error {
			if err := check(lb.Voice); err != nil {
				return err
			}
			return w.number(name, lb.Voice)
		},
	}
}

// statsField moves a contiguous block of little-endian counters; the struct's
// declaration order is the wire order.
func statsField(name string, get func(*Logbook) any) step {
	return step{
		decode: func(r *reader, lb *Logbook) error {
			return r.number(name, get(lb))
		},
		encode: func(w *writer, lb *Logbook) error {
			return w.number(name, get(lb))
		},
	}
}

// medalsField walks the six flag bytes in enumeration order; a nonzero byte
// means the medal was earned.
func medalsField() step {
	const name = "medals"
	return step{
		decode: func(r *reader, lb *Logbook) error {
			raw, err := r.bytes(name, int(medalCount))
			if err != nil {
				return err
			}
			for i, b := range raw {
				if b != 0 {
					lb.Medals.Add(Medal(i))
				}
			}
			return nil
		},
		encode: func(w *writer, lb *Logbook) error {
			buf := make([]byte, medalCount)
			for m := Medal(0); m < medalCount; m++ {
				if lb.Medals.Has(m) {
					buf[m] = 1
				}
			}
			return w.bytes(name, buf)
		},
	}
}

// reserved skips pad bytes on decode and writes zeros on encode.
func reserved(n int) step {
	return step{
		decode: func(r *reader, lb *Logbook) error {
			_, err := r.bytes("reserved", n)
			return err
		},
		encode: func(w *writer, lb *Logbook) error {
			return w.bytes("reserved", make([]byte, n))
		},
	}
}

// sentinelField is the file's stand-in for a checksum: a trailing uint32 that
// must de-obfuscate to zero. Any other value means the key didn't line up or
// the file is corrupt.
func sentinelField() step {
	const name = "sentinel"
	return step{
		decode: func(r *reader, lb *Logbook) error {
			var v uint32
			if err := r.number(name, &v); err != nil {
				return err
			}
			if v != 0 {
				return fmt.Errorf("trailing sentinel is 0x%08X, want 0: wrong key or corrupt logbook", v)
			}
			return nil
		},
		encode: func(w *writer, lb *Logbook) error {
			return w.number(name, uint32(0))
		},
	}
}

// checkpoint asserts the running offset sits on a 4-byte boundary. A failure
// here means the layout table above drifted, and every later field would be
// misread; aborting immediately beats silently shifting the record.
func checkpoint() step {
	check := func(offset int) error {
		if offset%4 != 0 {
			return fmt.Errorf("layout drift: offset %d is not 4-byte aligned", offset)
		}
		return nil
	}
	return step{
		decode: func(r *reader, lb *Logbook) error {
			return check(r.offset())
		},
		encode: func(w *writer, lb *Logbook) error {
			return check(w.offset())
		},
	}
}
