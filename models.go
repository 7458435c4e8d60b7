package hospital

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Gender is the optional gender recorded on a profile
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Genders lists the accepted gender values
var Genders = []any{string(GenderMale), string(GenderFemale), string(GenderOther)}

// Account is a patient or doctor record
type Account struct {
	bun.BaseModel         `bun:"table:accounts,alias:acc"`
	ID                    uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"_id"`
	Role                  Role       `bun:"role,notnull" json:"role"`
	FirstName             string     `bun:"first_name,notnull" json:"firstName"`
	LastName              string     `bun:"last_name" json:"lastName,omitempty"`
	Email                 string     `bun:"email,notnull,unique" json:"email"`
	Phone                 string     `bun:"phone" json:"phone,omitempty"`
	Age                   *int       `bun:"age" json:"age,omitempty"`
	Gender                Gender     `bun:"gender" json:"gender,omitempty"`
	PasswordHash          string     `bun:"password_hash" json:"-"`
	IsGoogleUser          bool       `bun:"is_google_user,notnull,default:false" json:"isGoogleUser"`
	IsVerified            bool       `bun:"is_verified,notnull,default:false" json:"isVerified"`
	OTP                   *string    `bun:"otp" json:"-"`
	OTPExpiry             *time.Time `bun:"otp_expiry" json:"-"`
	IsAccountActivated    bool       `bun:"is_account_activated,notnull,default:false" json:"isAccountActivated"`
	ActivationToken       *string    `bun:"activation_token" json:"-"`
	ActivationTokenExpiry *time.Time `bun:"activation_token_expiry" json:"-"`
	CreatedAt             *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt             *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// HasPassword reports whether a local credential is set
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// FullName joins first and last name
func (a *Account) FullName() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Summary is the short account view returned alongside session tokens.
func (a *Account) Summary() map[string]any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"_id":       a.ID.String(),
		"firstName": a.FirstName,
		"lastName":  a.LastName,
		"email":     a.Email,
		"role":      string(a.Role),
	}
}

// AppointmentStatus tracks an appointment through the clinic workflow
type AppointmentStatus = string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment links a patient with a doctor at a given time
type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:apt"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"_id"`
	PatientID     uuid.UUID         `bun:"patient_id,notnull,type:uuid" json:"patientId"`
	DoctorID      uuid.UUID         `bun:"doctor_id,nullzero,type:uuid" json:"doctorId,omitempty"`
	PatientName   string            `bun:"patient_name" json:"patientName,omitempty"`
	DoctorName    string            `bun:"doctor_name" json:"doctorName,omitempty"`
	ScheduledAt   *time.Time        `bun:"scheduled_at" json:"scheduledAt,omitempty"`
	Status        AppointmentStatus `bun:"status,notnull,default:'pending'" json:"status"`
	Reason        string            `bun:"reason" json:"reason,omitempty"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
}

// PrescribedMedicine is one line of a prescription
type PrescribedMedicine struct {
	MedicineID   string `json:"medicineId,omitempty"`
	MedicineName string `json:"medicineName"`
	Dosage       string `json:"dosage,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Qty          int    `json:"qty,omitempty"`
}

// Prescription is issued by a doctor and may have a generated PDF on disk
type Prescription struct {
	bun.BaseModel `bun:"table:prescriptions,alias:rx"`
	ID            uuid.UUID            `bun:"id,pk,nullzero,type:uuid" json:"_id"`
	PatientID     uuid.UUID            `bun:"patient_id,notnull,type:uuid" json:"patientId"`
	PatientName   string               `bun:"patient_name" json:"patientName,omitempty"`
	DoctorID      uuid.UUID            `bun:"doctor_id,nullzero,type:uuid" json:"doctorId,omitempty"`
	AppointmentID uuid.UUID            `bun:"appointment_id,nullzero,type:uuid" json:"appointmentId,omitempty"`
	Diagnosis     string               `bun:"diagnosis" json:"diagnosis,omitempty"`
	Medicines     []PrescribedMedicine `bun:"medicines" json:"medicines,omitempty"`
	PDFPath       string               `bun:"pdf_path" json:"pdfPath,omitempty"`
	CreatedAt     *time.Time           `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
}
