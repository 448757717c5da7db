package model

// Doctor is the bookable practitioner. Working hours are not stored on the doctor; they
// are derived from the doctor's availability windows.
type Doctor struct {
	Base
	FirstName      string `db:"first_name" json:"first_name"`
	LastName       string `db:"last_name" json:"last_name"`
	Email          string `db:"email" json:"email"`
	Specialization string `db:"specialization" json:"specialization"`
}

func (d *Doctor) DisplayName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}
