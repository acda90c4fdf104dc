package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Hospital-Care-Assistant/agent/contract"
	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
	hospitalx "github.com/tanpawarit/Hospital-Care-Assistant/agent/hospital"
)

const paymentTimeLayout = "2006-01-02 15:04:05"

// Records is the part of the hospital repository the catalog needs.
type Records interface {
	ListDoctors(ctx context.Context) ([]hospitalx.Doctor, error)
	BookAppointment(ctx context.Context, patientID string, doctorID int64, at string) (hospitalx.Appointment, hospitalx.Doctor, error)
	CreatePayment(ctx context.Context, patientID string, amount float64, method string) (hospitalx.Payment, error)
	FindMedicine(ctx context.Context, name string) (hospitalx.PharmacyStock, error)
}

// Advisor answers one symptom description with general guidance.
type Advisor interface {
	Advise(ctx context.Context, description string) (string, error)
}

// Catalog executes operation calls against the record store and the triage
// advisor. Every call yields exactly one textual result.
type Catalog struct {
	records Records
	advisor Advisor
}

var _ contractx.ToolGateway = (*Catalog)(nil)

func NewCatalog(records Records, advisor Advisor) (*Catalog, error) {
	if records == nil {
		return nil, errors.New("tool: records are required")
	}
	if advisor == nil {
		return nil, errors.New("tool: advisor is required")
	}
	return &Catalog{records: records, advisor: advisor}, nil
}

func (c *Catalog) Infos() []*schema.ToolInfo {
	return Infos()
}

// Execute runs the calls one after another in request order.
func (c *Catalog) Execute(ctx context.Context, calls []conversationx.ToolCall) []contractx.ToolResult {
	results := make([]contractx.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, c.executeOne(ctx, call))
	}
	return results
}

func (c *Catalog) executeOne(ctx context.Context, tc conversationx.ToolCall) contractx.ToolResult {
	result := contractx.ToolResult{CallID: tc.ID, Tool: tc.Name}

	call, err := DecodeCall(tc.Name, tc.Arguments)
	switch {
	case errors.Is(err, ErrUnknownOperation):
		log.Warn().Str("tool", tc.Name).Str("call_id", tc.ID).Msg("oracle requested unknown operation")
		result.Content = unknownOperationText(tc.Name)
		result.Failed = true
		return result
	case err != nil:
		result.Content = fmt.Sprintf("Invalid arguments for %s: %v.", tc.Name, err)
		result.Failed = true
		return result
	}

	start := time.Now()
	content, err := c.run(ctx, call)
	if err != nil {
		log.Error().
			Err(err).
			Str("tool", tc.Name).
			Str("call_id", tc.ID).
			Dur("duration", time.Since(start)).
			Msg("operation failed")
		result.Content = fmt.Sprintf("Sorry, %s failed: the hospital system is temporarily unavailable.", call.Operation())
		result.Failed = true
		return result
	}

	log.Debug().Str("tool", tc.Name).Str("call_id", tc.ID).Dur("duration", time.Since(start)).Msg("operation executed")
	result.Content = content
	return result
}

// run returns an error only for backend failures. Domain outcomes such as an
// unknown doctor are ordinary result text.
func (c *Catalog) run(ctx context.Context, call Call) (string, error) {
	switch call := call.(type) {
	case ListDoctorsCall:
		return c.listDoctors(ctx)
	case BookAppointmentCall:
		return c.bookAppointment(ctx, call)
	case PayBillCall:
		return c.payBill(ctx, call)
	case CheckMedicineCall:
		return c.checkMedicine(ctx, call)
	case SymptomCheckCall:
		return c.symptomCheck(ctx, call)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownOperation, call)
	}
}

func (c *Catalog) listDoctors(ctx context.Context) (string, error) {
	doctors, err := c.records.ListDoctors(ctx)
	if err != nil {
		return "", err
	}
	if len(doctors) == 0 {
		return "No doctors available at the moment.", nil
	}

	var b strings.Builder
	b.WriteString("Available doctors:")
	for _, d := range doctors {
		fmt.Fprintf(&b, "\nDr. %s - %s (ID: %d)", d.Name, d.Specialty, d.ID)
	}
	return b.String(), nil
}

func (c *Catalog) bookAppointment(ctx context.Context, call BookAppointmentCall) (string, error) {
	appt, doctor, err := c.records.BookAppointment(ctx, call.PatientID, call.DoctorID, call.AppointmentTime)
	if errors.Is(err, hospitalx.ErrDoctorNotFound) {
		return "Invalid doctor ID. Please check the available doctors list.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Appointment booked successfully!\nDoctor: Dr. %s\nAppointment time: %s", doctor.Name, appt.AppointmentTime), nil
}

func (c *Catalog) payBill(ctx context.Context, call PayBillCall) (string, error) {
	if call.Amount <= 0 {
		return "Invalid amount. Please enter a valid amount greater than zero.", nil
	}

	payment, err := c.records.CreatePayment(ctx, call.PatientID, call.Amount, call.PaymentMethod)
	if errors.Is(err, hospitalx.ErrInvalidAmount) {
		return "Invalid amount. Please enter a valid amount greater than zero.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Payment of $%.2f for patient ID %s has been processed successfully.\nPayment method: %s\nTransaction ID: %s\nPayment time: %s",
		payment.Amount,
		payment.PatientID,
		payment.PaymentMethod,
		payment.TransactionID,
		payment.CreatedAt.Format(paymentTimeLayout),
	), nil
}

func (c *Catalog) checkMedicine(ctx context.Context, call CheckMedicineCall) (string, error) {
	name := hospitalx.NormalizeMedicineName(call.MedicineName)

	stock, err := c.records.FindMedicine(ctx, name)
	if errors.Is(err, hospitalx.ErrMedicineNotFound) {
		return fmt.Sprintf("%s is not available in the hospital pharmacy.", name), nil
	}
	if err != nil {
		return "", err
	}
	if stock.Quantity <= 0 {
		return fmt.Sprintf("%s is currently out of stock.", name), nil
	}
	return fmt.Sprintf("%s is available in stock. Quantity: %d.", name, stock.Quantity), nil
}

func (c *Catalog) symptomCheck(ctx context.Context, call SymptomCheckCall) (string, error) {
	advice, err := c.advisor.Advise(ctx, call.Description)
	if err != nil {
		return "", err
	}
	return escalate(call.Description, advice), nil
}

func unknownOperationText(name string) string {
	names := make([]string, 0, len(Operations))
	for _, op := range Operations {
		names = append(names, string(op))
	}
	return fmt.Sprintf("Unknown operation %q. Available operations: %s.", name, strings.Join(names, ", "))
}
