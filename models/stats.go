package models

import (
	"errors"
	"time"

	"github.com/aukilabs/bigspace/partition"
)

// FrameStats summarizes a frame.
type FrameStats struct {
	Frame      uint64
	Moved      int
	Removed    int
	Recentered int
	Skipped    int
	Partitions partition.Report
	Stages     []Stage
	Errors     []error
}

// Stage is the duration of a step of a frame.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Err returns the errors of the frame joined, or nil.
func (s FrameStats) Err() error {
	return errors.Join(s.Errors...)
}

// StageDuration returns the duration of the named stage.
func (s FrameStats) StageDuration(name string) (time.Duration, bool) {
	for _, st := range s.Stages {
		if st.Name == name {
			return st.Duration, true
		}
	}
	return 0, false
}
