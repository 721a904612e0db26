package testutil

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CallLogEntry records one invocation of the helper process.
type CallLogEntry struct {
	Args      []string `yaml:"args,omitempty"`
	Dir       string   `yaml:"dir,omitempty"`
	Timestamp string   `yaml:"timestamp"`
	ExitCode  int      `yaml:"exit_code"`
}

// CallLog is the YAML document the helper process appends to.
type CallLog struct {
	Entries []CallLogEntry `yaml:"entries"`
}

// AppendCallLog adds entry to the log at path, creating it if needed.
// Helper processes run one at a time in these tests, so no locking is done.
func AppendCallLog(path string, entry CallLogEntry) error {
	log, err := ReadCallLog(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log = &CallLog{}
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().Format(time.RFC3339Nano)
	}
	log.Entries = append(log.Entries, entry)

	data, err := yaml.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshaling call log to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing call log to %s: %w", path, err)
	}

	return nil
}

// ReadCallLog reads a YAML call log file.
// A missing file is returned as an error satisfying os.IsNotExist.
func ReadCallLog(path string) (*CallLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var log CallLog
	if err := yaml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("unmarshaling call log YAML: %w", err)
	}

	return &log, nil
}

// Args returns the arguments of every entry in order.
func (log *CallLog) Args() [][]string {
	out := make([][]string, 0, len(log.Entries))
	for _, e := range log.Entries {
		out = append(out, e.Args)
	}
	return out
}
