// Package models defines the domain entities of the party queue.
//
// The package contains two categories of types:
//
// 1. Normalized catalog entities handed to clients:
//   - [Artist], [Album], [Track] : a track with its first album and ordered artists
//   - [Playlist] : playlist metadata offered as a session seed
//   - [Session] : the active listening session and its resolved playlist
//   - [CurrentTrack], [Queue], [Snapshot] : live playback views
//
// 2. Flat rows destined for the relational mirror:
//   - [Batch] : one deduplicated set of artist, album, track and link rows built by [Dedupe]
//
// Nothing in this package touches the network or the database.
package models
