package server

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/UOAF/bms-logcat/internal/logbook"
	"github.com/UOAF/bms-logcat/internal/report"
)

// Server coordinates HTTP handlers and manages temporary artifacts produced by
// conversion requests.
type Server struct {
	artifacts *ArtifactStore
	workDir   string
	maxBody   int64
}

// Options configures server creation.
type Options struct {
	StorageDir string
	// MaxBodyBytes caps the size of request bodies and individual uploads.
	// Zero means the default of 1 MiB, which is generous for a 372-byte
	// record format.
	MaxBodyBytes int64
}

const defaultMaxBody = 1 << 20

// Artifact represents a file generated or stored by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "logcatd-")
	if err != nil {
		return nil, err
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	s := &Server{
		artifacts: &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:   workDir,
		maxBody:   maxBody,
	}
	return s, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	id := randomID()
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

// readBody drains a size-limited request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// readRecordBody accepts a record either as the raw request body or as the
// first file of a multipart upload.
func (s *Server) readRecordBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return s.readBody(w, r)
	}
	if err := r.ParseMultipartForm(s.maxBody); err != nil {
		return nil, fmt.Errorf("parse multipart: %w", err)
	}
	for _, files := range r.MultipartForm.File {
		for _, fh := range files {
			src, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
			}
			defer src.Close()
			data, err := io.ReadAll(io.LimitReader(src, s.maxBody+1))
			if err != nil {
				return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
			}
			if int64(len(data)) > s.maxBody {
				return nil, fmt.Errorf("upload %s exceeds limit %d", fh.Filename, s.maxBody)
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("no file in multipart body")
}

// formatFromQuery picks the record text format from the "format" query
// parameter, defaulting to JSON.
func formatFromQuery(r *http.Request) (logbook.Format, error) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return logbook.FormatJSON, nil
	}
	return logbook.ParseFormat(raw)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	format, err := formatFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := s.readRecordBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lb, err := logbook.Decode(bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("decode: %v", err))
		return
	}
	out, err := logbook.MarshalRecord(lb, format, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("marshal: %v", err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	format, err := formatFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		format = logbook.FormatYAML
	}
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lb, err := logbook.UnmarshalRecord(data, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse record: %v", err))
		return
	}
	// Encode to a buffer first so a mid-record failure never leaks a
	// partial response.
	var buf bytes.Buffer
	if err := logbook.Encode(&buf, lb); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("encode: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, &buf)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lb, err := logbook.Decode(bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("decode: %v", err))
		return
	}
	digest := sha256.Sum256(data)
	pdfPath, err := s.tempPath("pilot-*.pdf")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("report temp: %v", err))
		return
	}
	src := report.Source{Sha256: hex.EncodeToString(digest[:])}
	if err := report.SavePilotPDF(lb, src, pdfPath); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("render report: %v", err))
		return
	}
	art, err := s.addArtifact(pdfPath, "pilot_logbook.pdf", "application/pdf", "report")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("register report: %v", err))
		return
	}
	resp := struct {
		Callsign string      `json:"callsign"`
		Sha256   string      `json:"sha256"`
		Artifact ArtifactRef `json:"artifact"`
	}{
		Callsign: lb.Callsign,
		Sha256:   src.Sha256,
		Artifact: toRef(art),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("open artifact: %v", err))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("stat artifact: %v", err))
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	disposition := fmt.Sprintf("attachment; filename=\"%s\"", art.Name)
	w.Header().Set("Content-Disposition", disposition)
	io.Copy(w, f)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func guessContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".ndjson":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".lbk":
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}
