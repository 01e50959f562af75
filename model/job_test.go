package model

import (
	"errors"
	"testing"
)

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		allowed  bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusPending, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusCompleted, JobStatusCompleted, false},
		{JobStatusFailed, JobStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestStemSeparationPatchCompletedClearsError(t *testing.T) {
	job := &StemSeparationJob{ID: 1, ProjectID: 1, OriginalPath: "/x.wav", JobState: JobState{Status: JobStatusProcessing, Error: Ptr("stale")}}
	patch := StemSeparationJobPatch{
		JobUpdate:   JobUpdate{Status: Ptr(JobStatusCompleted)},
		OutputPaths: StemPaths{"vocals": "/out/vocals.wav"},
	}
	if err := patch.Apply(job); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if job.Error != nil {
		t.Fatalf("expected error cleared, got %q", *job.Error)
	}
	if job.OutputPaths["vocals"] != "/out/vocals.wav" {
		t.Fatalf("unexpected outputs: %#v", job.OutputPaths)
	}
}

func TestVoiceCloningPatchFailedClearsOutputs(t *testing.T) {
	job := &VoiceCloningJob{ID: 1, JobState: JobState{Status: JobStatusProcessing, Analysis: Ptr("warm")}, OutputPath: Ptr("/out/a.wav")}
	patch := VoiceCloningJobPatch{JobUpdate: JobUpdate{Status: Ptr(JobStatusFailed), Error: Ptr("boom")}}
	if err := patch.Apply(job); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if job.OutputPath != nil || job.Analysis != nil {
		t.Fatalf("expected outputs cleared, got %#v", job)
	}
	if job.Error == nil || *job.Error != "boom" {
		t.Fatalf("expected error recorded, got %#v", job.Error)
	}
}

func TestMusicGenerationPatchRejectsTerminal(t *testing.T) {
	job := &MusicGenerationJob{ID: 7, JobState: JobState{Status: JobStatusCompleted}}
	err := MusicGenerationJobPatch{JobUpdate: JobUpdate{Status: Ptr(JobStatusProcessing)}}.Apply(job)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("status changed to %s", job.Status)
	}
}

func TestCompletionRequiresOutput(t *testing.T) {
	processing := JobState{Status: JobStatusProcessing}
	cases := []struct {
		name  string
		apply func() error
	}{
		{"stem without paths", func() error {
			return StemSeparationJobPatch{JobUpdate: JobUpdate{Status: Ptr(JobStatusCompleted)}}.Apply(&StemSeparationJob{JobState: processing})
		}},
		{"stem with empty paths", func() error {
			return StemSeparationJobPatch{JobUpdate: JobUpdate{Status: Ptr(JobStatusCompleted)}, OutputPaths: StemPaths{}}.Apply(&StemSeparationJob{JobState: processing})
		}},
		{"voice without path", func() error {
			return VoiceCloningJobPatch{JobUpdate: JobUpdate{Status: Ptr(JobStatusCompleted)}}.Apply(&VoiceCloningJob{JobState: processing})
		}},
		{"music with empty path", func() error {
			return MusicGenerationJobPatch{JobUpdate: JobUpdate{Status: Ptr(JobStatusCompleted)}, OutputPath: Ptr("")}.Apply(&MusicGenerationJob{JobState: processing})
		}},
	}
	for _, tc := range cases {
		var verr *ValidationError
		if err := tc.apply(); !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}

	job := &MusicGenerationJob{JobState: processing, OutputPath: Ptr("/out/m.wav")}
	if err := (MusicGenerationJobPatch{JobUpdate: JobUpdate{Status: Ptr(JobStatusCompleted)}}).Apply(job); err != nil {
		t.Fatalf("output set earlier must satisfy completion: %v", err)
	}
}

func TestStemPathsScanValue(t *testing.T) {
	paths := StemPaths{"bass": "/b.wav"}
	value, err := paths.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	var scanned StemPaths
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned["bass"] != "/b.wav" {
		t.Fatalf("unexpected scan result: %#v", scanned)
	}

	var empty StemPaths
	if err := empty.Scan(nil); err != nil || empty != nil {
		t.Fatalf("expected nil paths for NULL, got %#v (%v)", empty, err)
	}
	if v, _ := StemPaths(nil).Value(); v != nil {
		t.Fatalf("expected NULL value for nil paths, got %#v", v)
	}
}
