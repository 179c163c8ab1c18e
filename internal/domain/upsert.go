package domain

// Outcome tells a get-or-create caller whether it created the row.
type Outcome int

// Get-or-create outcomes.
const (
	Created Outcome = iota + 1
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Upserted is the resolved row of a get-or-create call.
type Upserted[T any] struct {
	Value   *T
	Outcome Outcome
}

// Created reports whether this call inserted the row.
func (u Upserted[T]) Created() bool { return u.Outcome == Created }
