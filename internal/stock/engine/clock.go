package engine

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. Injectable so tests can pin "today".
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies unique identifiers for batches, allocations and
// debits. Injectable so tests are deterministic.
type IDGenerator interface {
	NewID() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.New().String() }
