// Package models defines the data structures of the bucket mirror: the desired item, the
// reference kept for each rendered object, and the database row items are loaded from.
package models
