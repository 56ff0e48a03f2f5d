package logbook

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleLogbook() *Logbook {
	lb := New("Maverick", "VIPER1", "hunter2")
	lb.OptionsFile = "viper1"
	lb.FlightHours = 1042.5
	lb.AceFactor = 1.25
	lb.Rank = Major
	lb.DogfightStats = DogfightStats{
		MatchesWon:  12,
		MatchesLost: 3,
		Kills:       40,
		Killed:      2,
	}
	lb.CampaignStats = CampaignStats{
		GamesWon:          4,
		Missions:          118,
		TotalScore:        91234,
		TotalMissionScore: 1250,
		Kills:             77,
		AirToGroundKills:  310,
		StaticKills:       45,
	}
	lb.Medals.Add(SilverStar)
	lb.Medals.Add(AirMedal)
	lb.PictureFile = "pilot.gif"
	lb.PatchFile = "56th_fs.gif"
	lb.PersonalText = "Fly low, go fast."
	lb.Squadron = "56th Fighter Sqdn"
	lb.Voice = 5
	return lb
}

// stripCipher undoes the stream obfuscation of a full record so tests can
// inspect or patch the plaintext layout, and applyCipher puts it back.
func stripCipher(wire []byte) []byte {
	ks := newKeystream()
	out := make([]byte, len(wire))
	for i, b := range wire {
		out[i] = ks.decode(b)
	}
	return out
}

func applyCipher(plain []byte) []byte {
	ks := newKeystream()
	out := make([]byte, len(plain))
	for i, b := range plain {
		out[i] = ks.encode(b)
	}
	return out
}

func encodeToBytes(t *testing.T, lb *Logbook) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, lb); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return buf.Bytes()
}

// Plaintext offsets of the fields the corruption tests patch.
const (
	rankOffset     = 80
	voiceOffset    = 366
	sentinelOffset = 368
)

func TestEncodeRecordSize(t *testing.T) {
	wire := encodeToBytes(t, sampleLogbook())
	if len(wire) != RecordSize {
		t.Fatalf("encoded record is %d bytes, want %d", len(wire), RecordSize)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	want := sampleLogbook()
	wire := encodeToBytes(t, want)
	got, err := Decode(bytes.NewReader(wire))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSquadronFillsSlot(t *testing.T) {
	lb := sampleLogbook()
	lb.Squadron = strings.Repeat("S", squadronLen)
	wire := encodeToBytes(t, lb)
	got, err := Decode(bytes.NewReader(wire))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Squadron != lb.Squadron {
		t.Fatalf("squadron = %q, want %q", got.Squadron, lb.Squadron)
	}
}

func TestEncodeSentinelIsZero(t *testing.T) {
	wire := encodeToBytes(t, sampleLogbook())
	plain := stripCipher(wire)
	tail := binary.LittleEndian.Uint32(plain[sentinelOffset:])
	if tail != 0 {
		t.Fatalf("de-obfuscated sentinel = 0x%08X, want 0", tail)
	}
}

func TestMedalFlagBytes(t *testing.T) {
	lb := sampleLogbook()
	lb.Medals = 0
	lb.Medals.Add(SilverStar)
	lb.Medals.Add(KoreaCampaign)

	plain := stripCipher(encodeToBytes(t, lb))
	const medalsOffset = 140
	flags := plain[medalsOffset : medalsOffset+int(medalCount)]
	for m := Medal(0); m < medalCount; m++ {
		earned := flags[m] != 0
		want := m == SilverStar || m == KoreaCampaign
		if earned != want {
			t.Fatalf("medal %s flag byte = %d, want earned=%v", m, flags[m], want)
		}
	}

	got, err := Decode(bytes.NewReader(encodeToBytes(t, lb)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Medals != lb.Medals {
		t.Fatalf("medals = %v, want %v", got.Medals.names(), lb.Medals.names())
	}
}

func TestDecodeRank(t *testing.T) {
	lb := sampleLogbook()
	lb.Rank = Captain
	got, err := Decode(bytes.NewReader(encodeToBytes(t, lb)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Rank != Captain || got.Rank.String() != "Captain" {
		t.Fatalf("rank = %v (ordinal %d), want Captain", got.Rank, int32(got.Rank))
	}
}

func TestDecodeInvalidRank(t *testing.T) {
	plain := stripCipher(encodeToBytes(t, sampleLogbook()))
	binary.LittleEndian.PutUint32(plain[rankOffset:], 9)
	_, err := Decode(bytes.NewReader(applyCipher(plain)))
	if err == nil {
		t.Fatalf("expected error for rank ordinal 9")
	}
	if !strings.Contains(err.Error(), "9 isn't a valid rank index") {
		t.Fatalf("error = %q, want it to cite the invalid ordinal", err)
	}
}

func TestDecodeBadSentinel(t *testing.T) {
	plain := stripCipher(encodeToBytes(t, sampleLogbook()))
	binary.LittleEndian.PutUint32(plain[sentinelOffset:], 0xDEADBEEF)
	_, err := Decode(bytes.NewReader(applyCipher(plain)))
	if err == nil {
		t.Fatalf("expected error for nonzero sentinel")
	}
	if !strings.Contains(err.Error(), "sentinel") {
		t.Fatalf("error = %q, want a sentinel diagnosis", err)
	}
}

func TestDecodeVoiceOutOfRange(t *testing.T) {
	plain := stripCipher(encodeToBytes(t, sampleLogbook()))
	binary.LittleEndian.PutUint16(plain[voiceOffset:], 12)
	_, err := Decode(bytes.NewReader(applyCipher(plain)))
	if err == nil {
		t.Fatalf("expected error for voice index 12")
	}
	if !strings.Contains(err.Error(), "voice index 12") {
		t.Fatalf("error = %q, want it to cite the voice index", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	wire := encodeToBytes(t, sampleLogbook())
	if _, err := Decode(bytes.NewReader(wire[:100])); err == nil {
		t.Fatalf("expected error for truncated record")
	}
}

func TestEncodeRejectsBadFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Logbook)
		cite   string
	}{
		{name: "name too long", mutate: func(lb *Logbook) { lb.Name = strings.Repeat("N", nameLen+1) }, cite: "pilot name"},
		{name: "name error cites limit", mutate: func(lb *Logbook) { lb.Name = strings.Repeat("N", nameLen+1) }, cite: "limit is 20"},
		{name: "callsign too long", mutate: func(lb *Logbook) { lb.Callsign = strings.Repeat("C", callsignLen+1) }, cite: "callsign"},
		{name: "password too long", mutate: func(lb *Logbook) { lb.Password = strings.Repeat("p", passwordLen+1) }, cite: "limit is 10"},
		{name: "personal text too long", mutate: func(lb *Logbook) { lb.PersonalText = strings.Repeat("t", personalTextLen+1) }, cite: "personal text"},
		{name: "squadron too long", mutate: func(lb *Logbook) { lb.Squadron = strings.Repeat("s", squadronLen+1) }, cite: "squadron"},
		{name: "voice negative", mutate: func(lb *Logbook) { lb.Voice = -1 }, cite: "voice index -1"},
		{name: "voice too high", mutate: func(lb *Logbook) { lb.Voice = 12 }, cite: "voice index 12"},
		{name: "invalid rank", mutate: func(lb *Logbook) { lb.Rank = Rank(42) }, cite: "42 isn't a valid rank index"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lb := sampleLogbook()
			tc.mutate(lb)
			var buf bytes.Buffer
			err := Encode(&buf, lb)
			if err == nil {
				t.Fatalf("expected encode error")
			}
			if !strings.Contains(err.Error(), tc.cite) {
				t.Fatalf("error = %q, want it to contain %q", err, tc.cite)
			}
		})
	}
}

func TestNewDefaultRecordRoundTrip(t *testing.T) {
	lb := New("Ace", "VIPER1", "hunter2")
	got, err := Decode(bytes.NewReader(encodeToBytes(t, lb)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Name != "Ace" || got.Callsign != "VIPER1" || got.Password != "hunter2" {
		t.Fatalf("identity fields = %q/%q/%q", got.Name, got.Callsign, got.Password)
	}
	if got.Commissioned != time.Now().Format(commissionedFormat) {
		t.Fatalf("commissioned = %q, want today's date", got.Commissioned)
	}
	if got.DogfightStats != (DogfightStats{}) || got.CampaignStats != (CampaignStats{}) {
		t.Fatalf("fresh record has nonzero statistics: %+v %+v", got.DogfightStats, got.CampaignStats)
	}
	if !got.Medals.Empty() {
		t.Fatalf("fresh record has medals: %v", got.Medals.names())
	}
	if got.Rank != SecondLt {
		t.Fatalf("fresh record rank = %v, want SecondLt", got.Rank)
	}
}

func TestCheckpointCatchesLayoutDrift(t *testing.T) {
	// A reader that is already misaligned must trip the first checkpoint.
	r := &reader{newCipherReader(bytes.NewReader(make([]byte, 16)))}
	if _, err := r.bytes("skew", 3); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	err := checkpoint().decode(r, &Logbook{})
	if err == nil || !strings.Contains(err.Error(), "layout drift") {
		t.Fatalf("checkpoint error = %v, want layout drift", err)
	}
}
