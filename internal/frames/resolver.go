// Package frames turns a set of uploaded reference images into the ordered,
// role-tagged frame list the video provider accepts.
package frames

import (
	"fmt"

	"promovid/internal/domain"
	"promovid/internal/storage"
)

// Role designates a reference image as the clip's opening or closing anchor.
type Role string

const (
	RoleFirst Role = "first"
	RoleLast  Role = "last"
)

// Frame pairs an uploaded image reference with its provider role.
type Frame struct {
	Ref  string
	Role Role
}

// AnchorMinDuration is the shortest continuation, in seconds, that still
// gets a closing anchor frame. Below it the provider tends to cut back to
// the anchor too abruptly.
const AnchorMinDuration = 6

// Resolver validates image references against the upload store and assigns
// frame roles.
type Resolver struct {
	uploads *storage.FileStore
}

// NewResolver creates a resolver backed by the given upload store.
func NewResolver(uploads *storage.FileStore) *Resolver {
	return &Resolver{uploads: uploads}
}

// Resolve produces the frame list for a normal generation. More than two
// images are reduced to the first and last of the input order; the clamp is
// reported through the second return value so callers can log it. Missing
// references fail eagerly with ErrImageNotFound.
func (r *Resolver) Resolve(refs []string, style domain.StyleConfig) ([]Frame, bool, error) {
	if len(refs) == 0 {
		return nil, false, fmt.Errorf("%w: at least one image is required", domain.ErrInvalidRequest)
	}
	for _, ref := range refs {
		if !r.uploads.Exists(ref) {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrImageNotFound, ref)
		}
	}

	clamped := false
	use := refs
	if len(use) > 2 {
		use = []string{refs[0], refs[len(refs)-1]}
		clamped = true
	}

	if len(use) == 1 {
		role := RoleFirst
		if style.Reveal {
			role = RoleLast
		}
		return []Frame{{Ref: use[0], Role: role}}, clamped, nil
	}
	return []Frame{
		{Ref: use[0], Role: RoleFirst},
		{Ref: use[1], Role: RoleLast},
	}, clamped, nil
}

// ResolveContinuation produces the frame list for a chained segment. The
// captured last frame of the previous segment always opens the new clip; the
// original anchor image closes it only when the segment is long enough to
// travel back to it.
func (r *Resolver) ResolveContinuation(capturedRef, anchorRef string, duration int) ([]Frame, error) {
	if capturedRef == "" {
		return nil, fmt.Errorf("%w: captured frame is required for continuation", domain.ErrInvalidRequest)
	}
	if !r.uploads.Exists(capturedRef) {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, capturedRef)
	}
	frames := []Frame{{Ref: capturedRef, Role: RoleFirst}}
	if anchorRef != "" && duration >= AnchorMinDuration {
		if !r.uploads.Exists(anchorRef) {
			return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, anchorRef)
		}
		frames = append(frames, Frame{Ref: anchorRef, Role: RoleLast})
	}
	return frames, nil
}
