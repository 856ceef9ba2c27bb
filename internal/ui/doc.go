// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the stored library and funds enrichment from the user's credits:
//  1. [PlaylistListView] : Browse stored playlists with their enrichment state
//  2. [TrackListView] : Tracks with genre, language and an enriched marker
//  3. [ConfirmView] : Cost of enriching the remaining tracks against the balance
//  4. [EnrichView] : Spinner while the batch runs
//  5. [ResultView] : Batch report and remaining credits
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
