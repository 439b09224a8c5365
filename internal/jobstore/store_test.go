package jobstore

import (
	"errors"
	"sync"
	"testing"

	"promovid/internal/domain"
)

func TestCreateAssignsIdentityAndStatus(t *testing.T) {
	store := NewMemoryStore()
	job := store.Create(domain.Job{Prompt: "orbit", Style: "rotating"})

	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("Status = %q, want %q", job.Status, domain.JobStatusProcessing)
	}
	if job.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp")
	}

	got, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Prompt != "orbit" {
		t.Fatalf("Prompt = %q, want %q", got.Prompt, "orbit")
	}
}

func TestGetUnknownJob(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMutateAppliesUnderLock(t *testing.T) {
	store := NewMemoryStore()
	job := store.Create(domain.Job{})

	err := store.Mutate(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusCompleted
		j.VideoURL = "http://localhost/videos/x.mp4"
	})
	if err != nil {
		t.Fatalf("Mutate returned error: %v", err)
	}
	got, _ := store.Get(job.ID)
	if got.Status != domain.JobStatusCompleted || got.VideoURL == "" {
		t.Fatalf("job = %+v, want completed with video url", got)
	}
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	store := NewMemoryStore()
	job := store.Create(domain.Job{})
	if err := store.Mutate(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
		j.Error = "quota exceeded"
	}); err != nil {
		t.Fatalf("Mutate returned error: %v", err)
	}

	if err := store.Mutate(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusProcessing
		j.Error = ""
	}); err != nil {
		t.Fatalf("Mutate returned error: %v", err)
	}

	got, _ := store.Get(job.ID)
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("Status = %q, want terminal failed to stick", got.Status)
	}
	if got.Error != "quota exceeded" {
		t.Fatalf("Error = %q, want %q", got.Error, "quota exceeded")
	}
}

func TestSnapshotsDoNotAliasStore(t *testing.T) {
	store := NewMemoryStore()
	job := store.Create(domain.Job{Prompt: "before"})

	snapshot, _ := store.Get(job.ID)
	snapshot.Prompt = "after"

	got, _ := store.Get(job.ID)
	if got.Prompt != "before" {
		t.Fatalf("Prompt = %q, want store unaffected by snapshot edits", got.Prompt)
	}
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	store := NewMemoryStore()
	const writers = 16

	ids := make([]string, writers)
	for i := range ids {
		ids[i] = store.Create(domain.Job{}).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Mutate(id, func(j *domain.Job) {
				j.Status = domain.JobStatusCompleted
				j.VideoURL = "http://localhost/videos/" + id + ".mp4"
			})
		}()
		go func() {
			defer wg.Done()
			_ = store.List()
			_, _ = store.Get(id)
		}()
	}
	wg.Wait()

	if got := len(store.List()); got != writers {
		t.Fatalf("List() len = %d, want %d", got, writers)
	}
	for _, id := range ids {
		job, err := store.Get(id)
		if err != nil {
			t.Fatalf("Get(%s) returned error: %v", id, err)
		}
		if job.Status != domain.JobStatusCompleted {
			t.Fatalf("job %s status = %q, want completed", id, job.Status)
		}
	}
}
