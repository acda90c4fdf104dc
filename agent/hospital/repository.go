package hospital

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

var (
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrMedicineNotFound = errors.New("medicine not found")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrInvalidQuantity  = errors.New("quantity must not be negative")
	ErrInvalidInput     = errors.New("invalid input")
)

// Repository is the only component that talks to the hospital database.
type Repository struct {
	db  *bun.DB
	now func() time.Time
}

type Option func(*Repository)

func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRepository(db *bun.DB, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("hospital: database handle is required")
	}
	r := &Repository{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Migrate creates the tables when they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*Doctor)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create doctors table: %w", err)
	}

	if _, err := r.db.NewCreateTable().
		Model((*Appointment)(nil)).
		IfNotExists().
		ForeignKey(`("doctor_id") REFERENCES "doctors" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create appointments table: %w", err)
	}

	if _, err := r.db.NewCreateTable().
		Model((*Payment)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create payments table: %w", err)
	}

	if _, err := r.db.NewCreateTable().
		Model((*PharmacyStock)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create hospital_pharmacy table: %w", err)
	}

	return nil
}

func (r *Repository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if err := r.db.NewSelect().Model(&doctors).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (r *Repository) GetDoctor(ctx context.Context, id int64) (Doctor, error) {
	return getDoctor(ctx, r.db, id)
}

func getDoctor(ctx context.Context, db bun.IDB, id int64) (Doctor, error) {
	var doctor Doctor
	err := db.NewSelect().Model(&doctor).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Doctor{}, fmt.Errorf("%w: id=%d", ErrDoctorNotFound, id)
	}
	if err != nil {
		return Doctor{}, fmt.Errorf("get doctor %d: %w", id, err)
	}
	return doctor, nil
}

func (r *Repository) CreateDoctor(ctx context.Context, name, specialty string) (Doctor, error) {
	name = strings.TrimSpace(name)
	specialty = strings.TrimSpace(specialty)
	if name == "" || specialty == "" {
		return Doctor{}, fmt.Errorf("%w: doctor name and specialty are required", ErrInvalidInput)
	}

	doctor := Doctor{Name: name, Specialty: specialty}
	if _, err := r.db.NewInsert().Model(&doctor).Exec(ctx); err != nil {
		return Doctor{}, fmt.Errorf("insert doctor: %w", err)
	}
	return doctor, nil
}

// BookAppointment checks the doctor and inserts the appointment in one
// transaction. The returned doctor is the one the appointment references.
func (r *Repository) BookAppointment(ctx context.Context, patientID string, doctorID int64, at string) (Appointment, Doctor, error) {
	patientID = strings.TrimSpace(patientID)
	at = strings.TrimSpace(at)
	if patientID == "" || at == "" {
		return Appointment{}, Doctor{}, fmt.Errorf("%w: patient id and appointment time are required", ErrInvalidInput)
	}

	var (
		appt   Appointment
		doctor Doctor
	)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		doctor, err = getDoctor(ctx, tx, doctorID)
		if err != nil {
			return err
		}

		appt = Appointment{PatientID: patientID, DoctorID: doctor.ID, AppointmentTime: at}
		if _, err := tx.NewInsert().Model(&appt).Exec(ctx); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return Appointment{}, Doctor{}, err
	}

	log.Debug().Int64("appointment_id", appt.ID).Int64("doctor_id", doctor.ID).Msg("appointment booked")
	return appt, doctor, nil
}

func (r *Repository) CreatePayment(ctx context.Context, patientID string, amount float64, method string) (Payment, error) {
	if amount <= 0 {
		return Payment{}, ErrInvalidAmount
	}
	patientID = strings.TrimSpace(patientID)
	method = strings.TrimSpace(method)
	if patientID == "" || method == "" {
		return Payment{}, fmt.Errorf("%w: patient id and payment method are required", ErrInvalidInput)
	}

	payment := Payment{
		PatientID:     patientID,
		Amount:        amount,
		PaymentMethod: method,
		TransactionID: NewTransactionID(),
		// Second precision matches the timestamp shown to the patient.
		CreatedAt: r.now().UTC().Truncate(time.Second),
	}
	if _, err := r.db.NewInsert().Model(&payment).Exec(ctx); err != nil {
		return Payment{}, fmt.Errorf("insert payment: %w", err)
	}

	log.Debug().Str("transaction_id", payment.TransactionID).Msg("payment recorded")
	return payment, nil
}

// FindMedicine looks the name up after capitalising it.
func (r *Repository) FindMedicine(ctx context.Context, name string) (PharmacyStock, error) {
	normalized := NormalizeMedicineName(name)

	var stock PharmacyStock
	err := r.db.NewSelect().Model(&stock).Where("medicine_name = ?", normalized).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return PharmacyStock{}, fmt.Errorf("%w: %s", ErrMedicineNotFound, normalized)
	}
	if err != nil {
		return PharmacyStock{}, fmt.Errorf("find medicine %s: %w", normalized, err)
	}
	return stock, nil
}

// UpsertMedicine sets the stock level for a medicine, creating it if needed.
func (r *Repository) UpsertMedicine(ctx context.Context, name string, quantity int) (PharmacyStock, error) {
	if quantity < 0 {
		return PharmacyStock{}, ErrInvalidQuantity
	}
	normalized := NormalizeMedicineName(name)
	if normalized == "" {
		return PharmacyStock{}, fmt.Errorf("%w: medicine name is required", ErrInvalidInput)
	}

	stock := PharmacyStock{MedicineName: normalized, Quantity: quantity}
	_, err := r.db.NewInsert().
		Model(&stock).
		On("CONFLICT (medicine_name) DO UPDATE").
		Set("quantity = EXCLUDED.quantity").
		Exec(ctx)
	if err != nil {
		return PharmacyStock{}, fmt.Errorf("upsert medicine %s: %w", normalized, err)
	}
	return stock, nil
}

func (r *Repository) CountAppointments(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Appointment)(nil)).Count(ctx)
}

func (r *Repository) CountPayments(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Payment)(nil)).Count(ctx)
}

// NewTransactionID returns "TXN-" followed by 12 upper-case hex characters.
func NewTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TXN-" + strings.ToUpper(raw[:12])
}

// NormalizeMedicineName upper-cases the first letter and lower-cases the rest.
func NormalizeMedicineName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + strings.ToLower(name[size:])
}
