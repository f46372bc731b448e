package domain

import "encoding/json"

// Record is one opaque dataset entry (a seller listing or a buyer request).
// No schema is enforced beyond being valid JSON.
type Record = json.RawMessage
