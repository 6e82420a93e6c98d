package domain

import "time"

const (
	DefaultLoanPeriodDays  = 14
	DefaultRenewPeriodDays = 14
)

type Settings struct {
	AppName         string    `json:"app_name" validate:"max=100"`
	LoanPeriodDays  int       `json:"loan_period_days" validate:"min=1,max=365"`
	RenewPeriodDays int       `json:"renew_period_days" validate:"min=1,max=365"`
	UpdatedOn       time.Time `json:"updated_on"`
}

func DefaultSettings() Settings {
	return Settings{
		AppName:         "Library",
		LoanPeriodDays:  DefaultLoanPeriodDays,
		RenewPeriodDays: DefaultRenewPeriodDays,
	}
}
