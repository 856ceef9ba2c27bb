// Package services implements the remote clients behind [Catalog], [TokenEndpoint] and [Oracle].
//
// # Spotify
//
// [SpotifyService] wraps an [oauth2.Config] for the authorization-code and refresh
// grants and issues plain bearer-authenticated GETs for the catalog. It never stores
// a user token; each call receives the token to present, which lets the catalog
// fetcher swap in a refreshed token mid-pagination.
//
// List calls return the raw [Paging] envelope. Limits above the documented maximum
// ([MaxPlaylistsPage], [MaxPlaylistTracksPage], [MaxSavedTracksPage]) are clamped.
//
// # Anthropic
//
// [AnthropicService] posts one user message with a system instruction to the
// Messages API through resty and returns the first text block.
//
// # Error Handling
//
// Non-2xx responses become [APIError] with the upstream status and body:
//   - status 401 unwraps to [shared.ErrUnauthorized] (the catalog retry policy keys on it)
//   - everything else unwraps to [shared.ErrAPIRequest]
//
// Token endpoint failures wrap [shared.ErrAuthFailed] or [shared.ErrRefreshFailed]
// around the [oauth2.RetrieveError] body. Oracle failures wrap [shared.ErrOracle].
package services
