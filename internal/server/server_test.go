package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/UOAF/bms-logcat/internal/logbook"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := NewServer(Options{StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	ts := httptest.NewServer(NewRouter(s))
	t.Cleanup(ts.Close)
	return s, ts
}

func sampleRecord() *logbook.Logbook {
	lb := &logbook.Logbook{
		Name:         "Joe Pilot",
		Callsign:     "Viper",
		Password:     "hunter2",
		Commissioned: "03/15/2012",
		Rank:         logbook.Captain,
		FlightHours:  412.5,
		Squadron:     "13th Fighter Sqdn",
		Voice:        3,
	}
	lb.Medals.Add(logbook.SilverStar)
	lb.CampaignStats.Missions = 57
	return lb
}

func encodeRecord(t *testing.T, lb *logbook.Logbook) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := logbook.Encode(&buf, lb); err != nil {
		t.Fatalf("encode sample record: %v", err)
	}
	return buf.Bytes()
}

func TestHandleDecode(t *testing.T) {
	_, ts := newTestServer(t)
	raw := encodeRecord(t, sampleRecord())

	resp, err := http.Post(ts.URL+"/decode", "application/octet-stream", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var got logbook.Logbook
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Callsign != "Viper" || got.Rank != logbook.Captain {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestHandleDecodeMultipart(t *testing.T) {
	_, ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "viper.lbk")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(encodeRecord(t, sampleRecord()))
	mw.Close()

	resp, err := http.Post(ts.URL+"/decode", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got logbook.Logbook
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Callsign != "Viper" {
		t.Fatalf("callsign = %q", got.Callsign)
	}
}

func TestHandleDecodeRejectsGarbage(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/decode", "application/octet-stream", strings.NewReader("not a logbook"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("error body is not json: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("expected an error message")
	}
}

func TestHandleEncodeRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	want := sampleRecord()
	text, err := logbook.MarshalRecord(want, logbook.FormatJSON, false)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}

	resp, err := http.Post(ts.URL+"/encode", "application/json", bytes.NewReader(text))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	got, err := logbook.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode returned bytes: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestHandleEncodeRejectsOversizeField(t *testing.T) {
	_, ts := newTestServer(t)
	lb := sampleRecord()
	lb.Callsign = "CallsignFarTooLongForTheSlot"
	text, err := logbook.MarshalRecord(lb, logbook.FormatJSON, false)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	resp, err := http.Post(ts.URL+"/encode", "application/json", bytes.NewReader(text))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestHandleReportAndDownload(t *testing.T) {
	_, ts := newTestServer(t)
	raw := encodeRecord(t, sampleRecord())

	resp, err := http.Post(ts.URL+"/report", "application/octet-stream", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var rep struct {
		Callsign string      `json:"callsign"`
		Sha256   string      `json:"sha256"`
		Artifact ArtifactRef `json:"artifact"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rep.Callsign != "Viper" {
		t.Fatalf("callsign = %q", rep.Callsign)
	}
	if len(rep.Sha256) != 64 {
		t.Fatalf("sha256 = %q", rep.Sha256)
	}
	if rep.Artifact.ID == "" {
		t.Fatal("missing artifact id")
	}

	dl, err := http.Get(ts.URL + "/artifacts/" + rep.Artifact.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dl.StatusCode)
	}
	data, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("artifact is not a PDF")
	}
}

func TestHandleBatchDecode(t *testing.T) {
	_, ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	good, err := mw.CreateFormFile("files", "good.lbk")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	good.Write(encodeRecord(t, sampleRecord()))
	bad, err := mw.CreateFormFile("files", "bad.lbk")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	bad.Write([]byte("truncated"))
	mw.Close()

	resp, err := http.Post(ts.URL+"/batch-decode", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content type = %q", ct)
	}

	counts := map[string]int{}
	var summary struct {
		Decoded int `json:"decoded"`
		Failed  int `json:"failed"`
	}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("bad ndjson line %q: %v", scanner.Text(), err)
		}
		var typ string
		json.Unmarshal(obj["type"], &typ)
		counts[typ]++
		if typ == "summary" {
			if err := json.Unmarshal(scanner.Bytes(), &summary); err != nil {
				t.Fatalf("parse summary: %v", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if counts["record"] != 1 || counts["error"] != 1 || counts["summary"] != 1 {
		t.Fatalf("line counts = %v", counts)
	}
	if summary.Decoded != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
