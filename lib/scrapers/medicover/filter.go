package medicover

import (
	"strconv"
)

// portal wire values meaning "any"
const (
	anyRegion         = -2
	anySpecialization = -2
	anyClinic         = -1
	anyDoctor         = -1

	// "Konsultacja"
	bookingTypeConsultation = 2
)

// ID is an optional portal identifier. The zero value is Any.
type ID struct {
	value int
	set   bool
}

// Any is the unset ID.
var Any = ID{}

// Some returns an ID holding v. Zero is not a valid portal identifier and
// is treated as unset, matching the convention that a zero or absent
// environment variable means "no choice".
func Some(v int) ID {
	if v == 0 {
		return Any
	}
	return ID{value: v, set: true}
}

func (id ID) Get() (int, bool) {
	return id.value, id.set
}

func (id ID) IsSet() bool {
	return id.set
}

func (id ID) String() string {
	if !id.set {
		return "any"
	}
	return strconv.Itoa(id.value)
}

func (id ID) orSentinel(sentinel int) int {
	if !id.set {
		return sentinel
	}
	return id.value
}

// Filter narrows the search for free slots.
type Filter struct {
	Region         ID
	Specialization ID
	Clinic         ID
	Doctor         ID
}

// Complete reports whether every dimension of the filter was chosen.
func (f Filter) Complete() bool {
	return f.Region.IsSet() && f.Specialization.IsSet() && f.Clinic.IsSet() && f.Doctor.IsSet()
}

// wireFilter is the encoding of Filter the portal expects, it is only ever
// built right before sending a request.
type wireFilter struct {
	BookingTypeId    int `json:"bookingTypeId"`
	RegionId         int `json:"regionId"`
	SpecializationId int `json:"specializationId"`
	ClinicId         int `json:"clinicId"`
	DoctorId         int `json:"doctorId"`
}

func (f Filter) wire() wireFilter {
	return wireFilter{
		BookingTypeId:    bookingTypeConsultation,
		RegionId:         f.Region.orSentinel(anyRegion),
		SpecializationId: f.Specialization.orSentinel(anySpecialization),
		ClinicId:         f.Clinic.orSentinel(anyClinic),
		DoctorId:         f.Doctor.orSentinel(anyDoctor),
	}
}

func (w wireFilter) query() map[string]string {
	return map[string]string{
		"bookingTypeId":    strconv.Itoa(w.BookingTypeId),
		"regionId":         strconv.Itoa(w.RegionId),
		"specializationId": strconv.Itoa(w.SpecializationId),
		"clinicId":         strconv.Itoa(w.ClinicId),
		"doctorId":         strconv.Itoa(w.DoctorId),
	}
}
