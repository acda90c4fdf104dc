package hospital

import (
	"time"

	"github.com/uptrace/bun"
)

type Doctor struct {
	bun.BaseModel `bun:"table:doctors,alias:d"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	Name      string `bun:"name,notnull" json:"name"`
	Specialty string `bun:"specialty,notnull" json:"specialty"`
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID              int64  `bun:"id,pk,autoincrement" json:"id"`
	PatientID       string `bun:"patient_id,notnull" json:"patient_id"`
	DoctorID        int64  `bun:"doctor_id,notnull" json:"doctor_id"`
	AppointmentTime string `bun:"appointment_time,notnull" json:"appointment_time"`
}

type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	PatientID     string    `bun:"patient_id,notnull" json:"patient_id"`
	Amount        float64   `bun:"amount,notnull" json:"amount"`
	PaymentMethod string    `bun:"payment_method,notnull" json:"payment_method"`
	TransactionID string    `bun:"transaction_id,notnull,unique" json:"transaction_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// PharmacyStock is keyed by the capitalised medicine name.
type PharmacyStock struct {
	bun.BaseModel `bun:"table:hospital_pharmacy,alias:hp"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	MedicineName string `bun:"medicine_name,notnull,unique" json:"medicine_name"`
	Quantity     int    `bun:"quantity,notnull" json:"quantity"`
}
