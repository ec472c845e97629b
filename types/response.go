package types

// SuggestionResponse is returned by the AI packing-suggestion endpoint.
type SuggestionResponse struct {
	ChecklistID string   `json:"checklistId"`
	Items       []string `json:"items"`
}
