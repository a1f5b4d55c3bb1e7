package types

// RideStatus — статусы жизненного цикла поездки
type RideStatus string

const (
	StatusRequested  RideStatus = "REQUESTED"
	StatusAccepted   RideStatus = "ACCEPTED"
	StatusInProgress RideStatus = "IN_PROGRESS"
	StatusCompleted  RideStatus = "COMPLETED"
	StatusCancelled  RideStatus = "CANCELLED"
)

func (s RideStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is final.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Escalatable reports whether an SOS may be triggered in this status.
func (s RideStatus) Escalatable() bool {
	return s == StatusAccepted || s == StatusInProgress
}

// Enum для классов
type VehicleClass string

const (
	EconomyClass VehicleClass = "ECONOMY"
	PremiumClass VehicleClass = "PREMIUM"
	XLClass      VehicleClass = "XL"
)

func (c VehicleClass) String() string {
	return string(c)
}

func (c VehicleClass) Valid() bool {
	switch c {
	case EconomyClass, PremiumClass, XLClass:
		return true
	default:
		return false
	}
}

// Enum для роли пользователя
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	PassengerRole UserRole = "PASSENGER"
	DriverRole    UserRole = "DRIVER"
	AdminRole     UserRole = "ADMIN"
)

// SOSType — тип инцидента, заявленный при срабатывании SOS
type SOSType string

const (
	SOSAccident   SOSType = "ACCIDENT"
	SOSHarassment SOSType = "HARASSMENT"
	SOSMedical    SOSType = "MEDICAL"
	SOSOther      SOSType = "OTHER"
)

func (t SOSType) String() string {
	return string(t)
}

func (t SOSType) Valid() bool {
	switch t {
	case SOSAccident, SOSHarassment, SOSMedical, SOSOther:
		return true
	default:
		return false
	}
}

type SOSStatus string

const (
	SOSOpen     SOSStatus = "OPEN"
	SOSResolved SOSStatus = "RESOLVED"
)
