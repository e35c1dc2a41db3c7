// Package prompt builds the instruction block handed to the generation
// provider. Compose is pure; all personalization comes from the profile
// passed in.
package prompt

import (
	"fmt"
	"strings"
)

// Profile is the read-only slice of the user record the composer needs.
type Profile struct {
	Name           string
	Age            int
	BloodGroup     string
	MedicalInfo    string
	MedicalHistory string
}

// Disclaimer must appear, verbatim, in every generated reply. The composer
// instructs the model to include it; it is part of the product contract.
const Disclaimer = "This is AI-generated advice. It is not a substitute for professional medical help. In a serious emergency, call your local emergency services immediately."

// Compose renders the personalized prompt. Missing optional profile fields
// render as "None" so the model cannot read absence as irrelevance.
func Compose(p Profile, question string) string {
	var b strings.Builder

	b.WriteString("You are an expert AI First Aid Assistant.\n")
	b.WriteString("Your primary goal is to provide clear, simple, and safe first-aid instructions tailored to the specific user.\n\n")

	b.WriteString("USER'S MEDICAL PROFILE:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orNone(p.Name))
	fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	fmt.Fprintf(&b, "- Blood Group: %s\n", orNone(p.BloodGroup))
	fmt.Fprintf(&b, "- Known Allergies/Conditions: %s\n", orNone(p.MedicalInfo))
	fmt.Fprintf(&b, "- Past Medical History: %s\n\n", orNone(p.MedicalHistory))

	b.WriteString("IMPORTANT: You must consider this profile in your response. For example, if the user has a known allergy, your advice must not include that allergen.\n\n")

	fmt.Fprintf(&b, "SAFETY DISCLAIMER: You must include a disclaimer in every response that says: %q\n\n", Disclaimer)

	b.WriteString("Based on the user's profile and information from reputable medical organizations, answer the following user question:\n")
	fmt.Fprintf(&b, "\"%s\"\n", question)

	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
