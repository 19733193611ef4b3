package member

import (
	"bytes"
	"encoding/json"
	"time"

	"gymmanager/internal/lifecycle"
)

type Member struct {
	ID               int            `db:"id" json:"id"`
	GymID            int            `db:"gym_id" json:"gymId"`
	MembershipPlanID *int           `db:"membership_plan_id" json:"membershipPlanId"`
	Name             string         `db:"name" json:"name"`
	Phone            string         `db:"phone" json:"phone"`
	Address          string         `db:"address" json:"address"`
	PhotoURL         *string        `db:"photo_url" json:"photoUrl,omitempty"`
	JoiningDate      lifecycle.Date `db:"joining_date" json:"joiningDate" swaggertype:"string" example:"2024-06-01"`
	NextBillDate     lifecycle.Date `db:"next_bill_date" json:"nextBillDate" swaggertype:"string" example:"2024-07-01"`
	IsActive         bool           `db:"is_active" json:"isActive"`
	IsPaid           bool           `db:"is_paid" json:"isPaid"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
}

func (m Member) Status(now time.Time) lifecycle.Status {
	return lifecycle.Classify(m.IsActive, m.NextBillDate, now)
}

// View is a member as returned by the API, with status computed at read time.
type View struct {
	Member
	Status       lifecycle.Status `json:"status" example:"active"`
	DaysUntilDue int              `json:"daysUntilDue" example:"12"`
}

func NewView(m Member, now time.Time) View {
	return View{
		Member:       m,
		Status:       m.Status(now),
		DaysUntilDue: lifecycle.DaysUntil(m.NextBillDate, now),
	}
}

func NewViews(members []Member, now time.Time) []View {
	views := make([]View, 0, len(members))
	for _, m := range members {
		views = append(views, NewView(m, now))
	}
	return views
}

// Filter narrows a member listing. Empty fields match everything.
type Filter struct {
	Name   string
	Phone  string
	Status lifecycle.Status
}

type Stats struct {
	TotalMembers    int `db:"total_members" json:"totalMembers"`
	JoinedThisMonth int `db:"joined_this_month" json:"joinedThisMonth"`
	ExpiringIn3Days int `db:"expiring_in_3_days" json:"expiringIn3Days"`
	ExpiringInWeek  int `db:"expiring_in_week" json:"expiringInWeek"`
	Expired         int `db:"expired" json:"expired"`
	Inactive        int `db:"inactive" json:"inactive"`
	Active          int `db:"active" json:"active"`
}

type EnrollRequest struct {
	Name             string          `json:"name" binding:"required,max=255" example:"Jane Doe"`
	Phone            string          `json:"phone" binding:"required,max=32" example:"+1 555 0100"`
	Address          string          `json:"address" binding:"required" example:"12 Main St"`
	PhotoURL         *string         `json:"photoUrl" binding:"omitempty,url"`
	JoiningDate      *lifecycle.Date `json:"joiningDate" binding:"required" swaggertype:"string" example:"2024-06-01"`
	MembershipPlanID *int            `json:"membershipPlanId" binding:"omitempty,min=1" example:"1"`
	IsActive         *bool           `json:"isActive"`
	IsPaid           bool            `json:"isPaid"`
}

// UpdateRequest is a partial update. A membershipPlanId that differs from
// the stored one recomputes the next bill date; null removes the plan.
type UpdateRequest struct {
	Name             *string         `json:"name" binding:"omitempty,max=255"`
	Phone            *string         `json:"phone" binding:"omitempty,max=32"`
	Address          *string         `json:"address"`
	PhotoURL         *string         `json:"photoUrl" binding:"omitempty,url"`
	JoiningDate      *lifecycle.Date `json:"joiningDate" swaggertype:"string"`
	NextBillDate     *lifecycle.Date `json:"nextBillDate" swaggertype:"string"`
	MembershipPlanID OptionalID      `json:"membershipPlanId" swaggertype:"integer"`
	IsActive         *bool           `json:"isActive"`
	IsPaid           *bool           `json:"isPaid"`
}

// OptionalID tells an absent JSON field apart from an explicit null.
type OptionalID struct {
	Set   bool
	Value *int
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

type RenewRequest struct {
	MembershipPlanID int   `json:"membershipPlanId" binding:"required,min=1" example:"1"`
	IsPaid           *bool `json:"isPaid" example:"true"`
}

type StatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required" example:"false"`
}

type PaymentRequest struct {
	IsPaid *bool `json:"isPaid" binding:"required" example:"true"`
}
