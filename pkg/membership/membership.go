// Package membership defines the silo membership contract.
//
// A membership provider is the discovery backend silos use to find each
// other. This package only carries the membership table abstraction; the
// gossip/failure-detection protocol on top of it is owned by the actor
// runtime and out of scope here.
package membership

import (
	"context"
	"net/netip"
	"time"
)

// Status is the lifecycle state of a silo entry in the membership table.
type Status string

const (
	StatusJoining Status = "Joining"
	StatusActive  Status = "Active"
	StatusDead    Status = "Dead"
)

// Entry describes one silo in the membership table.
type Entry struct {
	// SiloName is a human-readable silo identifier, unique per cluster.
	SiloName string

	// Address is the silo's cluster endpoint.
	Address netip.AddrPort

	// Status is the silo's current lifecycle state.
	Status Status

	// StartedAt is when the silo process announced itself.
	StartedAt time.Time
}

// Provider is the membership table backend.
type Provider interface {
	// Announce inserts or refreshes this silo's entry.
	Announce(ctx context.Context, entry Entry) error

	// Snapshot returns all known entries for the cluster.
	Snapshot(ctx context.Context) ([]Entry, error)

	// Close releases backend resources.
	Close() error
}
