package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

const persona = "You are Helix, an AI recruiter that helps companies hire software engineers."

func extractionInstruction(fields RequiredFields, recent []ports.PromptMessage) string {
	current, _ := json.Marshal(fields)
	history, _ := json.Marshal(recent)

	var b strings.Builder
	b.WriteString("Analyze the conversation history and extract structured hiring details.\n")
	b.WriteString("Fill in missing fields. Do NOT overwrite values that are already stored.\n\n")
	fmt.Fprintf(&b, "Current Data: %s\n", current)
	fmt.Fprintf(&b, "Conversation History: %s\n\n", history)
	b.WriteString("Reply with JSON only, in this format:\n")
	b.WriteString(`{
  "job_role": "Extracted job role",
  "technologies": "Extracted relevant skills",
  "company_description": "Company details",
  "location": "Mentioned location",
  "benefits": "Any perks, salary, or compensation details"
}`)
	return b.String()
}

func generateInstruction(fields RequiredFields) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nGenerate a JSON outreach sequence to attract and hire top talent.\n\n")
	b.WriteString("Each step must include:\n")
	b.WriteString("  - `id`: step number\n")
	b.WriteString("  - `description`: short description of the step\n")
	b.WriteString("  - `message`: an object with `subject` and `body` fields\n\n")
	b.WriteString("Reply with valid JSON only, shaped like this:\n")
	b.WriteString(`{
  "tasks": [
    {"id": 1, "description": "Step 1: Initial outreach email",
     "message": {"subject": "Email Subject", "body": "Email Body"}},
    {"id": 2, "description": "Step 2: Follow-up email",
     "message": {"subject": "Follow-up Subject", "body": "Follow-up Body"}},
    {"id": 3, "description": "Step 3: Final email",
     "message": {"subject": "Final Email Subject", "body": "Final Email Body"}}
  ],
  "final_sequence": "A structured 3-step outreach sequence to hire the best candidates."
}`)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Job Role: %s\n", fields.Get("job_role"))
	fmt.Fprintf(&b, "Technologies: %s\n", fields.Get("technologies"))
	fmt.Fprintf(&b, "Company: %s\n", fields.Get("company_description"))
	fmt.Fprintf(&b, "Location: %s\n", fields.Get("location"))
	fmt.Fprintf(&b, "Benefits: %s\n", fields.Get("benefits"))
	return b.String()
}

func appendInstruction(current *Workspace, request string) string {
	existing, _ := json.Marshal(current)

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nAdd ONLY ONE new step to the existing outreach sequence based on the user's request.\n")
	b.WriteString("Do NOT modify or remove existing steps; repeat them exactly as they are.\n\n")
	fmt.Fprintf(&b, "EXISTING SEQUENCE:\n%s\n\n", existing)
	fmt.Fprintf(&b, "USER REQUEST:\n%s\n\n", request)
	b.WriteString("Reply with the full sequence including the added step:\n")
	b.WriteString(`{
  "tasks": [
    {"id": 1, "description": "Existing Step 1", "message": {"subject": "...", "body": "..."}},
    {"id": 2, "description": "Existing Step 2", "message": {"subject": "...", "body": "..."}},
    {"id": 3, "description": "Existing Step 3", "message": {"subject": "...", "body": "..."}},
    {"id": 4, "description": "New Step Added", "message": {"subject": "...", "body": "..."}}
  ],
  "final_sequence": "Updated outreach sequence including new step."
}`)
	return b.String()
}

func editInstruction(current *Workspace, request string) string {
	existing, _ := json.MarshalIndent(current, "", "  ")

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nModify ONLY the relevant step based on the user's request. Do NOT create a new sequence.\n")
	b.WriteString("Do NOT remove steps that are not mentioned.\n\n")
	fmt.Fprintf(&b, "EXISTING SEQUENCE:\n%s\n\n", existing)
	fmt.Fprintf(&b, "USER REQUEST:\n%s\n\n", request)
	b.WriteString("Reply with JSON only, in this exact format:\n")
	b.WriteString(`{
  "tasks": [
    {"id": 1, "description": "Step 1: Updated initial outreach email",
     "message": {"subject": "Updated Email Subject", "body": "Updated Email Content"}},
    {"id": 2, "description": "Existing Step 2",
     "message": {"subject": "Existing Subject", "body": "Existing Body"}},
    {"id": 3, "description": "Existing Step 3",
     "message": {"subject": "Existing Subject", "body": "Existing Body"}}
  ],
  "final_sequence": "Updated outreach sequence including modified step."
}`)
	return b.String()
}
