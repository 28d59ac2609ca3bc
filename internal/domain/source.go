package domain

import "time"

// Window bounds one collection run.
type Window struct {
	Since time.Time
	Until time.Time
}

// Sourced is a candidate tagged with the configured source that produced it.
type Sourced struct {
	Source    string
	Candidate Candidate
}

// SourceFailure records a source that ended with an error.
type SourceFailure struct {
	Source string
	Err    error
}

// Page is the readable content of a fetched article page.
type Page struct {
	Title string
	Text  string
}
