// package services contains the Spotify Web API client used to load the
// authenticated profile and the shared playlist.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services
