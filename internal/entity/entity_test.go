package entity_test

import (
	"testing"

	"instadl/internal/entity"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want entity.ContentType
	}{
		{name: "post", url: "https://www.instagram.com/p/ABC123/", want: entity.ContentTypePost},
		{name: "reel", url: "https://www.instagram.com/reel/XYZ/", want: entity.ContentTypeReel},
		{name: "reels plural", url: "https://www.instagram.com/reels/XYZ/", want: entity.ContentTypeReel},
		{name: "igtv", url: "https://www.instagram.com/tv/QQQ/", want: entity.ContentTypeIGTV},
		{name: "story", url: "https://www.instagram.com/stories/user/123/", want: entity.ContentTypeStory},
		{name: "unknown", url: "https://example.com/watch?v=1", want: entity.ContentTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entity.DetectContentType(tt.url); got != tt.want {
				t.Errorf("DetectContentType(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestJobStatusOrdering(t *testing.T) {
	order := []entity.JobStatus{
		entity.JobStatusQueued,
		entity.JobStatusDownloading,
		entity.JobStatusProcessing,
		entity.JobStatusCompleted,
	}

	for i := range len(order) - 1 {
		if !order[i].Before(order[i+1]) {
			t.Errorf("expected %s before %s", order[i], order[i+1])
		}
		if order[i+1].Before(order[i]) {
			t.Errorf("did not expect %s before %s", order[i+1], order[i])
		}
	}

	if !entity.JobStatusProcessing.Before(entity.JobStatusFailed) {
		t.Error("expected processing before failed")
	}

	if entity.JobStatusCompleted.Before(entity.JobStatusFailed) || entity.JobStatusFailed.Before(entity.JobStatusCompleted) {
		t.Error("terminal states must not be ordered relative to each other")
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for _, s := range []entity.JobStatus{entity.JobStatusQueued, entity.JobStatusDownloading, entity.JobStatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}

	for _, s := range []entity.JobStatus{entity.JobStatusCompleted, entity.JobStatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestJobClone(t *testing.T) {
	job := entity.Job{
		ID:     "j1",
		Status: entity.JobStatusCompleted,
		Result: &entity.Result{Filename: "a.mp4", Size: 10},
	}

	clone := job.Clone()
	clone.Result.Filename = "b.mp4"

	if job.Result.Filename != "a.mp4" {
		t.Error("Clone must deep-copy the result")
	}
}
