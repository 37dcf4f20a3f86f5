package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Roles lists every role a user can hold.
var Roles = []string{RoleUser, RoleAdmin}
