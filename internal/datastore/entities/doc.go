// Package entities defines the GORM models for the review database.
//
// # Ingested Entities
//
//   - Frame: an original video still, one per (patient, filename) (table "images")
//   - Mask: an explainability overlay owned by one frame (table "masks")
//
// # Review Entities
//
//   - User: a reviewer
//   - Preference: one user's ranking of one frame's masks
//   - PreferenceEvent: a single mask's rank inside a preference
//
// Table names match the original PostgreSQL schema so an existing database
// can be opened without migration.
package entities
