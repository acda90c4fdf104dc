package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operation names one of the hospital operations the oracle may request.
type Operation string

const (
	OpListDoctors     Operation = "list_doctors"
	OpBookAppointment Operation = "book_appointment"
	OpPayBill         Operation = "pay_bill"
	OpCheckMedicine   Operation = "check_medicine"
	OpSymptomCheck    Operation = "symptom_check"
)

// Operations lists the closed set in declaration order.
var Operations = []Operation{
	OpListDoctors,
	OpBookAppointment,
	OpPayBill,
	OpCheckMedicine,
	OpSymptomCheck,
}

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidArguments = errors.New("invalid arguments")
)

func ParseOperation(name string) (Operation, error) {
	op := Operation(strings.TrimSpace(name))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// Call is a decoded operation request. The set of implementations is closed.
type Call interface {
	Operation() Operation
	sealed()
}

type ListDoctorsCall struct{}

type BookAppointmentCall struct {
	PatientID       string
	DoctorID        int64
	AppointmentTime string
}

type PayBillCall struct {
	PatientID     string
	Amount        float64
	PaymentMethod string
}

type CheckMedicineCall struct {
	MedicineName string
}

type SymptomCheckCall struct {
	Description string
}

func (ListDoctorsCall) Operation() Operation     { return OpListDoctors }
func (BookAppointmentCall) Operation() Operation { return OpBookAppointment }
func (PayBillCall) Operation() Operation         { return OpPayBill }
func (CheckMedicineCall) Operation() Operation   { return OpCheckMedicine }
func (SymptomCheckCall) Operation() Operation    { return OpSymptomCheck }

func (ListDoctorsCall) sealed()     {}
func (BookAppointmentCall) sealed() {}
func (PayBillCall) sealed()         {}
func (CheckMedicineCall) sealed()   {}
func (SymptomCheckCall) sealed()    {}

type decoder func(args arguments) (Call, error)

var decoders = map[Operation]decoder{
	OpListDoctors: func(arguments) (Call, error) {
		return ListDoctorsCall{}, nil
	},
	OpBookAppointment: func(args arguments) (Call, error) {
		patientID, err := args.text("patient_id")
		if err != nil {
			return nil, err
		}
		doctorID, err := args.integer("doctor_id")
		if err != nil {
			return nil, err
		}
		at, err := args.text("appointment_time")
		if err != nil {
			return nil, err
		}
		return BookAppointmentCall{PatientID: patientID, DoctorID: doctorID, AppointmentTime: at}, nil
	},
	OpPayBill: func(args arguments) (Call, error) {
		patientID, err := args.text("patient_id")
		if err != nil {
			return nil, err
		}
		amount, err := args.number("amount")
		if err != nil {
			return nil, err
		}
		method, err := args.text("payment_method")
		if err != nil {
			return nil, err
		}
		return PayBillCall{PatientID: patientID, Amount: amount, PaymentMethod: method}, nil
	},
	OpCheckMedicine: func(args arguments) (Call, error) {
		name, err := args.text("medicine_name")
		if err != nil {
			return nil, err
		}
		return CheckMedicineCall{MedicineName: name}, nil
	},
	OpSymptomCheck: func(args arguments) (Call, error) {
		description, err := args.text("description")
		if err != nil {
			return nil, err
		}
		return SymptomCheckCall{Description: description}, nil
	},
}

// DecodeCall resolves the operation name and decodes the raw JSON arguments
// into the matching Call variant.
func DecodeCall(name, rawArguments string) (Call, error) {
	op, err := ParseOperation(name)
	if err != nil {
		return nil, err
	}
	args, err := parseArguments(rawArguments)
	if err != nil {
		return nil, err
	}
	return decoders[op](args)
}

// ArgumentError reports a missing or malformed argument. It matches
// ErrInvalidArguments with errors.Is.
type ArgumentError struct {
	Key    string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Key == "" {
		return e.Reason
	}
	return e.Key + " " + e.Reason
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArguments
}

func argError(key, reason string) error {
	return &ArgumentError{Key: key, Reason: reason}
}

type arguments map[string]any

func parseArguments(raw string) (arguments, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return arguments{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, argError("", "arguments must be a JSON object")
	}
	if args == nil {
		return arguments{}, nil
	}
	return arguments(args), nil
}

func (a arguments) text(key string) (string, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return "", argError(key, "is required")
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	default:
		return "", argError(key, "must be a string")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", argError(key, "must not be empty")
	}
	return s, nil
}

// number accepts JSON numbers and numeric strings.
func (a arguments) number(key string) (float64, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return 0, argError(key, "is required")
	}

	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		err = errors.New("not a number")
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, argError(key, "must be a number")
	}
	return f, nil
}

func (a arguments) integer(key string) (int64, error) {
	f, err := a.number(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, argError(key, "must be an integer")
	}
	return int64(f), nil
}
