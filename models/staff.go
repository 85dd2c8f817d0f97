package models

type Employee struct {
	Base       `bson:",inline"`
	Name       string  `bson:"name" json:"name" validate:"required,max=100"`
	Position   string  `bson:"position" json:"position" validate:"required,max=50"`
	Phone      string  `bson:"phone,omitempty" json:"phone,omitempty" validate:"max=20"`
	Email      string  `bson:"email,omitempty" json:"email,omitempty" validate:"omitempty,email"`
	HourlyRate float64 `bson:"hourly_rate" json:"hourly_rate" validate:"gte=0"`
	HireDate   string  `bson:"hire_date,omitempty" json:"hire_date,omitempty" validate:"omitempty,yyyymmdd"`
	UserID     string  `bson:"user_id,omitempty" json:"user_id,omitempty"`
}

type Shift struct {
	Base       `bson:",inline"`
	EmployeeID string `bson:"employee_id" json:"employee_id" validate:"required"`
	ShiftDate  string `bson:"shift_date" json:"shift_date" validate:"required,yyyymmdd"`
	StartTime  string `bson:"start_time" json:"start_time" validate:"required,hhmm"`
	EndTime    string `bson:"end_time" json:"end_time" validate:"required,hhmm"`
	Station    string `bson:"station,omitempty" json:"station,omitempty" validate:"max=50"`
	Notes      string `bson:"notes,omitempty" json:"notes,omitempty" validate:"max=500"`
}

const (
	RewardKindReward  = "reward"
	RewardKindPenalty = "penalty"
)

type Reward struct {
	Base       `bson:",inline"`
	EmployeeID string  `bson:"employee_id" json:"employee_id" validate:"required"`
	Kind       string  `bson:"kind" json:"kind" validate:"oneof=reward penalty"`
	Amount     float64 `bson:"amount" json:"amount" validate:"gte=0"`
	Reason     string  `bson:"reason" json:"reason" validate:"required,max=500"`
	Date       string  `bson:"date" json:"date" validate:"required,yyyymmdd"`
}
