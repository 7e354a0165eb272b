// Package repositories implements SQLite persistence for the playlist mirror and sessions.
//
// Every repository method that writes takes a [DBTX] so the session engine can compose several writes in one
// [Store.RunInTx] unit of work: starting a session inserts the session row, purges the previous mirror and loads
// the new one atomically.
//
// Key Implementations:
//   - [MirrorRepository] : bulk insert-or-ignore of a [models.Batch] and track purges
//   - [SessionRepository] : session rows and the "most recent wins" lookup
//   - [TrackRepository] : assembles normalized tracks from the mirror and records queueing
//
// The mirror is append-only: existing artist, album and track rows are never updated. Link tables that point at
// track carry no foreign key so purging tracks leaves orphaned links behind, which readers ignore.
package repositories
