package tenant

import "time"

type Role string

var (
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// Tenant is a service-providing professional's account. Email is stored
// lowercase and unique; inbound gateway events without a known external id
// are resolved against it.
type Tenant struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;uniqueIndex" json:"email"`
	Name      string    `gorm:"column:name" json:"name"`
	Role      Role      `gorm:"column:role;default:'professional'" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}
