package models

// PointerEventMessage is an inbound websocket pointer event from a
// chart client, coalesced by the cursor debouncer before dispatch.
type PointerEventMessage struct {
	Type    string  `json:"type"` // "enter", "leave" or "move"
	PanelID string  `json:"panel_id"`
	X       float64 `json:"x"` // screen coordinates
	Y       float64 `json:"y"`
}

// WSMessage is a generic outbound websocket envelope
type WSMessage struct {
	Type    string      `json:"type"`
	Symbol  string      `json:"symbol,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}
