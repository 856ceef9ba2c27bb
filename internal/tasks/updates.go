package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchPlaylists
	FetchTracks
	FetchLiked
	StoreTracks
	Recompute
	ExportPlaylist
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case FetchLiked:
		return "fetch_liked"
	case StoreTracks:
		return "store_tracks"
	case Recompute:
		return "recompute"
	case ExportPlaylist:
		return "export_playlist"
	case Done:
		return "done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchProfileUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchProfile, Step: 1, Total: 1, Message: "Fetching profile..."}
}

func fetchPlaylistsUpdate(found int) ProgressUpdate {
	if found < 0 {
		return ProgressUpdate{Phase: FetchPlaylists, Step: 0, Total: 1, Message: "Fetching playlists..."}
	}
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists", found),
	}
}

func fetchTracksUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching tracks of %s...", step, total, name),
	}
}

func fetchLikedUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchLiked, Step: 0, Total: 1, Message: "Fetching liked songs..."}
}

func storeTracksUpdate(step, total int, playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Stored %d/%d tracks of %s", step, total, playlistID),
	}
}

func recomputeUpdate(playlistID string, enriched bool) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Recompute,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist %s enriched: %t", playlistID, enriched),
		Data:    enriched,
	}
}

func doneUpdate(report *SyncReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: report.String(),
		Data:    report,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
