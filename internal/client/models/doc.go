// Package models defines the client-side data model: medications, recurring
// schedules, dose logs, the per-scope state record, outbox events awaiting
// remote confirmation, and the denormalized row shapes exchanged with the
// remote backend.
package models
