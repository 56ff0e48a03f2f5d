package server

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/UOAF/bms-logcat/internal/logbook"
)

// handleBatchDecode accepts a multipart upload of logbook files and streams
// one NDJSON object per file: a decoded record or a per-file error. A summary
// object closes the stream so clients can tell a complete response from a
// severed one.
func (s *Server) handleBatchDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse multipart: %v", err))
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	writer := NewNDJSONWriter(w)
	var decoded, failed int
	for _, files := range r.MultipartForm.File {
		for _, fh := range files {
			lb, err := s.decodeUpload(fh)
			if err != nil {
				failed++
				_ = writer.WriteObject(map[string]any{
					"type":  "error",
					"file":  fh.Filename,
					"error": err.Error(),
				})
				continue
			}
			decoded++
			_ = writer.WriteObject(struct {
				Type   string           `json:"type"`
				File   string           `json:"file"`
				Record *logbook.Logbook `json:"record"`
			}{Type: "record", File: fh.Filename, Record: lb})
		}
	}
	_ = writer.WriteObject(struct {
		Type    string `json:"type"`
		Decoded int    `json:"decoded"`
		Failed  int    `json:"failed"`
	}{Type: "summary", Decoded: decoded, Failed: failed})
}

func (s *Server) decodeUpload(fh *multipart.FileHeader) (*logbook.Logbook, error) {
	if fh == nil {
		return nil, fmt.Errorf("nil file header")
	}
	if fh.Size > s.maxBody {
		return nil, fmt.Errorf("%s: %d bytes exceeds upload limit %d", fh.Filename, fh.Size, s.maxBody)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return logbook.Decode(src)
}
