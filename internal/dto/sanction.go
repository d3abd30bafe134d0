package dto

// SweepRequest triggers an automatic sanction pass evaluated as of AsOf (default today).
type SweepRequest struct {
	AsOf string `json:"as_of" form:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// LiftSanctionRequest ends a sanction on EndDate (default today).
type LiftSanctionRequest struct {
	EndDate string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}
