package common

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// StdioPath is the CLI sentinel for standard input or output.
const StdioPath = "-"

// ReadInput slurps a source file, or standard input when path is "-". The
// source is fully consumed and closed before returning, error paths included.
func ReadInput(path string) ([]byte, error) {
	if path == StdioPath {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteOutput writes a destination file, or standard output when path is "-".
func WriteOutput(path string, data []byte) error {
	if path == StdioPath {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Sha256OfFile returns the hex digest and size of the file at path.
func Sha256OfFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), n, nil
}
