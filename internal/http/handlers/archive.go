package handlers

import (
	"net/http"
	"sort"
	"strings"

	"promovid/internal/domain"
	"promovid/pkg/zip"
)

// ArchiveJobs bundles the locally cached videos of completed jobs into one
// zip download. An optional comma-separated "ids" query narrows the batch;
// jobs whose video only exists remotely are skipped.
func (a *App) ArchiveJobs(w http.ResponseWriter, r *http.Request) {
	wanted := map[string]bool{}
	if ids := strings.TrimSpace(r.URL.Query().Get("ids")); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				wanted[id] = true
			}
		}
	}

	jobs := a.Orch.Jobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	clips := make([]zip.Clip, 0, len(jobs))
	for _, job := range jobs {
		if job.Status != domain.JobStatusCompleted {
			continue
		}
		if len(wanted) > 0 && !wanted[job.ID] {
			continue
		}
		key := job.ID + ".mp4"
		if !a.Videos.Exists(key) {
			continue
		}
		data, err := a.Videos.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("handlers: skipping unreadable video")
			continue
		}
		clips = append(clips, zip.Clip{Filename: key, Data: data})
	}
	if len(clips) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no completed videos to archive")
		return
	}

	archive, err := zip.ArchiveClips(clips)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: archive build failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="videos.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
