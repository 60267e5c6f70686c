package models

// Municipality is a (state, city) reference row used to scope addresses
// and communications. Read-only from the API's perspective; rows are
// seeded out of band.
type Municipality struct {
	ID     string `json:"id" bson:"_id,omitempty"`
	State  string `json:"state" bson:"state"`
	City   string `json:"city" bson:"city"`
	Active bool   `json:"active" bson:"active"`
}
