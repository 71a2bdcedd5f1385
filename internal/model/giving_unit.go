package model

import "time"

// GivingUnit is a household or individual giver identified by its giver id.
// Gift timestamps span all recorded giving, not just the classification window.
type GivingUnit struct {
	FirstGiftDateTime          *time.Time
	LastGiftDateTime           *time.Time
	LastClassificationDateTime *time.Time
	GiverID                    string
}

// Person is a member of a giving unit. Classification attributes are only
// written to adults.
type Person struct {
	ID        string
	GiverID   string
	FirstName string
	LastName  string
	IsAdult   bool
}

// FullName returns the person's display name.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}
