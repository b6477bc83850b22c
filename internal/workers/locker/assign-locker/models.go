package assignlocker

type Input struct {
	BookingID  string `json:"bookingId"`
	LockerType string `json:"lockerType,omitempty"`
}

type Output struct {
	LockerID     string `json:"lockerId"`
	LockerNumber string `json:"lockerNumber"`
	Location     string `json:"location"`
	AccessCode   string `json:"accessCode"`
}
