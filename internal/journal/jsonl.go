package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// jsonlFile is a mutex-guarded append-only JSON-lines file handle.
type jsonlFile struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func openJSONL(path string) (*jsonlFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &jsonlFile{file: file, enc: json.NewEncoder(file)}, nil
}

func (f *jsonlFile) encode(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(v)
}

func (f *jsonlFile) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
