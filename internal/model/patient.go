package model

type Patient struct {
	Base
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

func (p *Patient) DisplayName() string {
	return p.FirstName + " " + p.LastName
}
