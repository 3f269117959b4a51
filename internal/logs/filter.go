package logs

import (
	"encoding/json"
	"fmt"
	"strings"
)

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// Filter selects log records. The zero value keeps everything.
type Filter struct {
	// MinLevel is one of debug, info, warn or error.
	MinLevel string
	// JobID keeps records whose job_id starts with this prefix.
	JobID string
}

// Validate rejects unknown level names.
func (f Filter) Validate() error {
	level := strings.ToLower(strings.TrimSpace(f.MinLevel))
	if level == "" {
		return nil
	}
	if _, ok := levelRank[level]; !ok {
		return fmt.Errorf("unknown log level %q (use debug, info, warn or error)", f.MinLevel)
	}
	return nil
}

func (f Filter) empty() bool {
	return strings.TrimSpace(f.MinLevel) == "" && strings.TrimSpace(f.JobID) == ""
}

// record mirrors the fields logging writes; job_id is logging.FieldJobID.
type record struct {
	Level string `json:"level"`
	JobID string `json:"job_id"`
}

// Match reports whether line passes the filter. Lines that are not JSON
// records only pass an empty filter.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return false
	}
	if min := strings.ToLower(strings.TrimSpace(f.MinLevel)); min != "" {
		have, ok := levelRank[strings.ToLower(rec.Level)]
		if !ok || have < levelRank[min] {
			return false
		}
	}
	if job := strings.TrimSpace(f.JobID); job != "" && !strings.HasPrefix(rec.JobID, job) {
		return false
	}
	return true
}
