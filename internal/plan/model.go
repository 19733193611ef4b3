package plan

import "time"

// Plan is a priced membership template. Members copy the computed bill date,
// so editing a plan only affects later renewals.
type Plan struct {
	ID             int       `db:"id" json:"id"`
	GymID          int       `db:"gym_id" json:"gymId"`
	Name           string    `db:"name" json:"name"`
	DurationMonths int       `db:"duration_months" json:"durationMonths"`
	Price          float64   `db:"price" json:"price"`
	Description    *string   `db:"description" json:"description,omitempty"`
	IsActive       bool      `db:"is_active" json:"isActive"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type PlanRequest struct {
	Name           string   `json:"name" binding:"required,max=255" example:"Quarterly"`
	DurationMonths int      `json:"durationMonths" binding:"required,min=1,max=120" example:"3"`
	Price          *float64 `json:"price" binding:"required,gte=0" example:"59.99"`
	Description    *string  `json:"description" example:"Three months, all classes"`
	IsActive       *bool    `json:"isActive" example:"true"`
}
