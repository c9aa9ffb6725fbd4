package conversation

import "fmt"

// Persona selects the system prompt fronting every model call for a
// session. It is per-session state: switching modes in one browser tab
// never affects another session.
type Persona string

const (
	PersonaCustomerService Persona = "customer_service"
	PersonaLeadGeneration  Persona = "lead_generation"
)

func ParsePersona(s string) (Persona, error) {
	switch Persona(s) {
	case PersonaCustomerService, PersonaLeadGeneration:
		return Persona(s), nil
	}
	return "", fmt.Errorf("unknown mode: %q", s)
}

const customerServicePrompt = `You are a professional call center agent. Guidelines:
1. Be friendly, concise, and helpful.
2. Ask for missing details politely.
3. Provide clear answers without rambling.
4. Offer escalation to a human agent when needed.`

const leadGenerationPrompt = `You are a professional lead-gen assistant. Guidelines:
1. Greet warmly.
2. Ask about customer needs.
3. Highlight value briefly.
4. Collect key contact details.
5. Suggest next steps.`

// SystemPrompt returns the prompt text for the persona. Anything
// unrecognized falls back to the customer service prompt.
func (p Persona) SystemPrompt() string {
	if p == PersonaLeadGeneration {
		return leadGenerationPrompt
	}
	return customerServicePrompt
}
