package id

import (
	"fmt"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// serverNamespace scopes name-based server IDs so they never collide with
// UUIDs derived for other purposes from the same machine ID.
var serverNamespace = uuid.MustParse("5e7a0c2e-8b1d-4c36-9f0e-6a1d2b3c4d5e")

// Generator provides server identifiers.
type Generator interface {
	NextID() uuid.UUID
}

// RandomGenerator hands out random (version 4) UUIDs.
type RandomGenerator struct{}

// NextID generates a new random server ID.
func (RandomGenerator) NextID() uuid.UUID {
	return uuid.New()
}

// FromSeed derives a stable server ID from an arbitrary seed string.
// The same seed always produces the same ID.
func FromSeed(seed string) uuid.UUID {
	return uuid.NewSHA1(serverNamespace, []byte(seed))
}

// MachineServerID returns the server ID of the local machine. It is derived
// from the host's machine ID (hashed with appID) so a restarted process keeps
// its identity.
func MachineServerID(appID string) (uuid.UUID, error) {
	mid, err := machineid.ProtectedID(appID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read machine id: %w", err)
	}
	return FromSeed(mid), nil
}
