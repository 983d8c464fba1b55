package models

import "time"

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleSupervisor    Role = "supervisor"
	RoleTableOfficial Role = "table_official"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleTableOfficial:
		return true
	}
	return false
}

// Official: учётная запись судьи, супервизора или администратора.
type Official struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
