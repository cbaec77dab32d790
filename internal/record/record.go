// Package record defines the rows the benchmark harness persists.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DefaultTaskType is the task type of model benchmarks.
const DefaultTaskType = "model"

// BenchmarkRun is one timing record for a (model, function) pair.
//
// It is created by the timing step, persisted once and never mutated
// afterwards.
type BenchmarkRun struct {
	ID                string `json:"id"`
	TaskID            int64  `json:"taskId"`
	VersionSetID      int64  `json:"versionSetId"`
	EnvironmentInfoID int64  `json:"environmentInfoId"`

	ModelName    string `json:"modelName"`
	FunctionName string `json:"functionName"`

	BatchSize                int       `json:"batchSize"`
	NumWarmUpIterations      int       `json:"numWarmUpIterations"`
	NumBenchmarkedIterations int       `json:"numBenchmarkedIterations"`
	AverageTimeMs            float64   `json:"averageTimeMs"`
	TimesMs                  []float64 `json:"timesMs,omitempty"`
	TotalTimeMs              float64   `json:"totalTimeMs"`

	StartTs           int64 `json:"startTs"`
	EndingTimestampMs int64 `json:"endingTimestampMs"`

	ReferenceAverageTimeMs float64 `json:"referenceAverageTimeMs,omitempty"`
}

// EnvironmentInfo describes where a run executed.
type EnvironmentInfo struct {
	Type        string `json:"type"` // "browser" for reference runs, "native" for this harness
	UserAgent   string `json:"userAgent,omitempty"`
	OS          string `json:"os,omitempty"`
	OSVersion   string `json:"osVersion,omitempty"`
	Arch        string `json:"arch,omitempty"`
	GoVersion   string `json:"goVersion,omitempty"`
	CPUModel    string `json:"cpuModel,omitempty"`
	NumCPU      int    `json:"numCpu,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	Backend     string `json:"backend,omitempty"`
	BackendInfo string `json:"backendInfo,omitempty"`
}

// VersionSet records the library versions active during a run.
type VersionSet struct {
	FrameworkVersion string `json:"frameworkVersion"`
	HarnessVersion   string `json:"harnessVersion"`
	GoVersion        string `json:"goVersion"`
}

// Task identifies a (taskType, modelName, functionName) triple.
type Task struct {
	ID           int64  `json:"id"`
	TaskType     string `json:"taskType"`
	ModelName    string `json:"modelName"`
	FunctionName string `json:"functionName"`
}

// Fingerprint returns a stable content hash used for deduplication.
func (e EnvironmentInfo) Fingerprint() string { return fingerprint(e) }

// Fingerprint returns a stable content hash used for deduplication.
func (v VersionSet) Fingerprint() string { return fingerprint(v) }

func fingerprint(v any) string {
	b, _ := json.Marshal(v) // plain structs of strings and ints cannot fail
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Millis converts a time to Unix milliseconds.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// DurationMs converts a duration to fractional milliseconds.
func DurationMs(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e6 }
