package models

import "github.com/google/uuid"

// assignID fills a missing primary key so inserts behave the same on Postgres
// (gen_random_uuid default) and SQLite (no default).
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
