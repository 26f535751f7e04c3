package pipeline

import (
	"time"

	"github.com/kbukum/audiolens/jobs"
)

// Stage names one step of a run.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageDownload   Stage = "download"
	StageTranscribe Stage = "transcribe"
	StageSummarize  Stage = "summarize"
	StageClassify   Stage = "classify"
	StageCommit     Stage = "commit"
	StageFail       Stage = "fail"
)

// State is the working set of one run. Each stage reads what earlier stages
// filled in and adds its own output.
type State struct {
	Job         *jobs.Job
	ScratchPath string
	Transcript  string
	Summary     string
	Segments    []jobs.Segment
}

// Report describes how a run ended.
type Report struct {
	JobID    string
	Status   jobs.Status
	Skipped  bool
	Stage    Stage
	Err      error
	Segments int
	Duration time.Duration
}
