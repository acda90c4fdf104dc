package tool

import "strings"

const escalationNotice = "Your symptoms may need urgent attention. Please seek in-person medical care right away or call your local emergency number."

var severityCues = []string{
	"chest pain",
	"chest tightness",
	"can't breathe",
	"cannot breathe",
	"difficulty breathing",
	"shortness of breath",
	"trouble breathing",
	"face drooping",
	"slurred speech",
	"numbness on one side",
	"stroke",
	"heavy bleeding",
	"bleeding heavily",
	"won't stop bleeding",
	"unconscious",
	"passed out",
	"fainted",
	"seizure",
	"suicidal",
	"suicide",
	"kill myself",
	"overdose",
}

var inPersonCues = []string{
	"emergency",
	"in person",
	"in-person",
	"immediately",
	"right away",
	"urgent",
	"911",
	"see a doctor",
	"seek medical",
}

func hasCue(text string, cues []string) bool {
	text = strings.ToLower(text)
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

// escalate appends escalationNotice when the description looks severe and
// the advice does not already send the patient to in-person care.
func escalate(description, advice string) string {
	advice = strings.TrimSpace(advice)
	if !hasCue(description, severityCues) || hasCue(advice, inPersonCues) {
		return advice
	}
	if advice == "" {
		return escalationNotice
	}
	return advice + "\n\n" + escalationNotice
}
