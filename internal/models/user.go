package models

// User roles as assigned by the identity service.
const (
	RoleSeeker   = "seeker"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// User is owned by the identity service; the chat service only reads it.
type User struct {
	ID       int    `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Role     string `db:"role" json:"role"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// ServiceRequest names the two parties of a marketplace transaction. Owned by
// the marketplace service; read here to resolve conversation roles.
type ServiceRequest struct {
	ID         int    `db:"id" json:"id"`
	SeekerID   int    `db:"seeker_id" json:"seeker_id"`
	ProviderID int    `db:"provider_id" json:"provider_id"`
	Status     string `db:"status" json:"status"`
}
