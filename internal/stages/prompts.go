package stages

import (
	"fmt"
	"strings"
)

const purposePrompt = `Return a JSON object with a single "summary" field containing a 3-6 sentence summary of the contract's primary purpose, scope, and deliverables. Example: {"summary": "This contract establishes..."}. Do not include any other text outside the JSON object.

Contract:
%s`

const commercialPrompt = `Extract commercial clauses only. Return a JSON array only (no prose).
Each item must have at least: {"clause": "title or section name", "summary": "what it specifies"}.
Optional fields you may include when present: amounts, currency, dates, parties, obligations, payment_terms, pricing_model, quantities.
MANDATORY: Return 5-15 items. Do NOT return an empty array. Use exact figures/dates from the contract where available.

Contract:
%s`

const legalRisksPrompt = `MANDATORY: Identify at least 3-8 legal risks from this contract. Even if terms seem balanced, analyze potential risks. Return a JSON array only. Each item must have: {"clause": "specific clause/section", "risk": "what could go wrong", "description": "why this is a legal risk (cite clause language)", "fairness": "fair|unfair", "favours": "buyer|supplier|equal", "severity": "low|medium|high"}.

Focus on: liability, indemnification, termination, IP ownership, payment terms, warranties, force majeure, governing law, dispute resolution.
Do NOT return an empty array. If the contract seems simple, identify at least basic risks like payment delays or termination conditions.

Strictly output JSON only inside a single ` + "```json" + ` fenced block. No prose, no markdown outside the fence.

Contract:
%s`

const mitigationsPrompt = `MANDATORY: Suggest at least 3-8 practical mitigations for contract risks. Return a JSON array only. Each item must have: {"clause": "clause/section being addressed", "mitigation": "specific action to reduce risk", "negotiation_points": "what to negotiate"}.

Focus on common mitigations: liability caps, termination notice periods, IP protections, payment security, warranty limits, dispute procedures.
Do NOT return an empty array. Even for simple contracts, suggest basic protections.

Contract:
%s`

const plainPrompt = `Explain this specific contract in bullet points only, based strictly on the contract text. Do NOT define what a contract is. Keep legal nuances intact: do not oversimplify; include what each clause does and why it matters. If a legal term appears, add a plain meaning in brackets (e.g., indemnity [who pays for harm]).
Requirements:
- 10-14 bullets; length per bullet can be longer if needed to preserve nuance.
- Start each line with You:, They:, Both:, or Watch out:.
- Use exact party names and figures/dates from the contract when present.
- If something is not stated, write 'Not stated'.
- No intro/outro. No headings. No 'Answer' text.

Contract:
%s`

const chatPromptTemplate = `Answer strictly from the contract. If not stated, reply: Not stated in the contract.
Rules:
- Line 1: Direct answer (<=20 words). If yes/no, start with Yes. or No. No markdown, no headings.
- Line 2: Reason with clause ref(s) in parentheses, e.g., (Clause 5, Termination).
- Keep total under 100 words. No 'Final Answer', no banners, no markdown.

Contract:
%s

Analysis:
%s

Question:
%s`

// stagePrompt builds the per-chunk prompt for a stage.
func stagePrompt(label, contract string) string {
	switch label {
	case LabelPurpose:
		return fmt.Sprintf(purposePrompt, contract)
	case LabelCommercial:
		return fmt.Sprintf(commercialPrompt, contract)
	case LabelLegalRisks:
		return fmt.Sprintf(legalRisksPrompt, contract)
	case LabelMitigations:
		return fmt.Sprintf(mitigationsPrompt, contract)
	case LabelPlain:
		return fmt.Sprintf(plainPrompt, contract)
	default:
		return contract
	}
}

// combinePrompt merges partial outputs of a chunked scalar stage into one
// final prompt.
func combinePrompt(label string, parts []string) string {
	var b strings.Builder
	switch label {
	case LabelPlain:
		b.WriteString("Combine these partial plain-language notes into a single simple summary for non-lawyers. ")
		b.WriteString("Write 10-14 bullet points only (no intro/outro). Start lines with You:, They:, Both:, or Watch out:. ")
		b.WriteString("Keep key points, remove duplicates, and keep wording very simple.\n")
	default:
		fmt.Fprintf(&b, "Combine and compress the following partial %s results into a single concise result. ", label)
		b.WriteString("Keep all key points; remove duplicates. Keep under 80 words. Use 2-3 short sentences. ")
		b.WriteString("Return the same format as the parts.\n")
	}
	for i, p := range parts {
		fmt.Fprintf(&b, "\nPart %d:\n%s\n", i+1, p)
	}
	return b.String()
}

// ChatPrompt builds the follow-up question prompt from the contract text,
// the serialized analysis bundle, and the user's question.
func ChatPrompt(contract, analysis, question string) string {
	return fmt.Sprintf(chatPromptTemplate, contract, analysis, question)
}
