package dto

type TriggerSOSRequest struct {
	Type        string       `json:"type" validate:"required,oneof=ACCIDENT HARASSMENT MEDICAL OTHER"`
	Description string       `json:"description,omitempty" validate:"max=1000"`
	Location    *LocationDTO `json:"location" validate:"required"`
}
