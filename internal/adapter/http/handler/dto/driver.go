package dto

type DriverOnlineRequest struct {
	VehicleClass string `json:"vehicle_class" validate:"required,oneof=ECONOMY PREMIUM XL"`
}
