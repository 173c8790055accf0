// Package simulate drives scripted evaluator conversations against a running
// bot through its webhook and checks every step's resulting state.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Token       string        // X-Bot-Token value
	Concurrency int           // Evaluators driven at once
	Timeout     time.Duration // HTTP request timeout
	Redeliver   bool          // Resend each update once and expect a duplicate
	Verbose     bool          // Log every step
}

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultConcurrency = 4
	DefaultTimeout     = 10 * time.Second
)

// Stats holds simulation statistics.
type Stats struct {
	Evaluators int
	Completed  int
	Failed     int
	Updates    int
	Duplicates int
	Failures   []Failure
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Failure is one evaluator whose conversation diverged.
type Failure struct {
	Login string
	Err   error
}
