package tool

import "github.com/cloudwego/eino/schema"

var declarations = map[Operation]*schema.ToolInfo{
	OpListDoctors: {
		Name:        string(OpListDoctors),
		Desc:        "List the doctors working at the hospital with their specialty and ID.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	},
	OpBookAppointment: {
		Name: string(OpBookAppointment),
		Desc: "Book an appointment with a doctor for a patient. Use list_doctors first if the doctor ID is unknown.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"patient_id":       {Type: schema.String, Desc: "Patient identifier", Required: true},
			"doctor_id":        {Type: schema.Integer, Desc: "Doctor ID from the doctors list", Required: true},
			"appointment_time": {Type: schema.String, Desc: "Requested date and time, e.g. 2025-03-02 10:00", Required: true},
		}),
	},
	OpPayBill: {
		Name: string(OpPayBill),
		Desc: "Pay a medical bill for a patient and return the transaction details.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"patient_id":     {Type: schema.String, Desc: "Patient identifier", Required: true},
			"amount":         {Type: schema.Number, Desc: "Amount to pay, greater than zero", Required: true},
			"payment_method": {Type: schema.String, Desc: "Payment method, e.g. card, cash, insurance", Required: true},
		}),
	},
	OpCheckMedicine: {
		Name: string(OpCheckMedicine),
		Desc: "Check whether a medicine is in stock at the hospital pharmacy.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"medicine_name": {Type: schema.String, Desc: "Medicine name", Required: true},
		}),
	},
	OpSymptomCheck: {
		Name: string(OpSymptomCheck),
		Desc: "Give general, non-diagnostic guidance for symptoms the patient describes.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"description": {Type: schema.String, Desc: "The patient's symptoms in their own words", Required: true},
		}),
	},
}

// Infos returns the tool declarations handed to the oracle, one per operation.
func Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(Operations))
	for _, op := range Operations {
		out = append(out, declarations[op])
	}
	return out
}
