package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// #region json-file-sink
// JSONFileSink rewrites one JSON document, keyed by timestep, on every flush.
type JSONFileSink struct {
	path string
}

// NewJSONFileSink creates dir if needed and returns a sink writing to
// "<dir>/<timestamp>_<task>.json", or "<dir>/<timestamp>_<task>_<id>.json"
// when id is set.
func NewJSONFileSink(dir, task, id string) (*JSONFileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.json", time.Now().Format("2006_01_02_15_04_05"), task)
	if id != "" {
		name = fmt.Sprintf("%s_%s_%s.json", time.Now().Format("2006_01_02_15_04_05"), task, id)
	}
	return &JSONFileSink{path: filepath.Join(dir, name)}, nil
}

// Path returns the file the sink writes.
func (s *JSONFileSink) Path() string { return s.path }

// Flush writes the whole trace.
func (s *JSONFileSink) Flush(_ Entry, all []Entry) error {
	data, err := MarshalDocument(all)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write trace %s: %w", s.path, err)
	}
	return nil
}
// #endregion json-file-sink

// #region document
// MarshalDocument renders entries as a timestep-keyed JSON object.
func MarshalDocument(entries []Entry) ([]byte, error) {
	doc := make(map[int]Entry, len(entries))
	for _, e := range entries {
		doc[e.Timestep] = e
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return data, nil
}

// LoadDocument reads a trace file written by JSONFileSink.
func LoadDocument(path string) (map[int]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", path, err)
	}
	var doc map[int]Entry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse trace %s: %w", path, err)
	}
	for t, e := range doc {
		e.Timestep = t
		doc[t] = e
	}
	return doc, nil
}
// #endregion document
