// Package storage provides the key-value persistence port used by the journal.
//
// The storage package implements:
//   - The Store interface (get/set/delete/list by string key)
//   - An in-memory store for tests and ephemeral servers
//   - A file-backed store writing one JSON document per key
//   - A SQL store (sqlite or postgres) with embedded goose migrations
//
// Values are opaque strings. Callers store JSON documents under well-known
// keys such as "users", "entries_<user id>" and "game_scores_<user id>".
//
// Usage:
//
//	store, err := storage.Open(ctx, "sqlite", "journal.db", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := store.Set(ctx, "theme_42", "true"); err != nil {
//		log.Fatal(err)
//	}
//	value, err := store.Get(ctx, "theme_42")
//
// Missing keys are reported with ErrNotFound so callers can fall back to a
// default value with errors.Is.
package storage
