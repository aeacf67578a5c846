package core

// Prompt templates sent to the generator. Each asks for a single JSON object.
const (
	structureRFPPrompt = `Convert the following procurement request into structured JSON:

{
  "title": string,
  "items": [{"name": string, "qty": number, "specs": string}],
  "budget": number or null,
  "delivery_timeline": string,
  "payment_terms": string,
  "notes": string
}

Text: %s

Respond only with the JSON object and nothing else.`

	extractProposalPrompt = `Extract vendor proposal information from the email below and return valid JSON:

{
  "price": number,
  "delivery_days": number,
  "warranty": string,
  "terms": string,
  "notes": string
}

Email:
%s

Respond only with the JSON object and nothing else.`

	summarizeProposalPrompt = `Summarize this vendor proposal in 1-2 sentences highlighting key points (price, delivery, warranty):

%s

Return JSON: {"summary": "..."}`

	compareProposalsPrompt = `Given these vendor proposals for the RFP "%s":

%s

Recommend the best vendor based on:
- price
- delivery speed
- warranty
- commercial terms
- clarity and risk

The winner must be one of the vendor_id values above.

Return JSON:
{
  "winner": number,
  "explanation": string
}`
)
