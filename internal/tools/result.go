package tools

import (
	"encoding/json"

	"asic-advisor/internal/domain"
)

// RetrievedDataKey is the key a successful retrieval is reported under.
const RetrievedDataKey = "Retrieved Data"

// Result is the outcome of a data-access tool: either records or an error,
// never both. It marshals to {"Retrieved Data": [...]} or {"error": "..."}.
type Result struct {
	Records []domain.Record
	Err     error
}

// OK reports whether the result carries records.
func (r Result) OK() bool { return r.Err == nil }

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(map[string]string{"error": r.Err.Error()})
	}
	records := r.Records
	if records == nil {
		records = []domain.Record{}
	}
	return json.Marshal(map[string][]domain.Record{RetrievedDataKey: records})
}

// String renders the result as the JSON text handed back to the model.
func (r Result) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return string(b)
}
