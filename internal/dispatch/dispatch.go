// Package dispatch defines the uniform result shape the message
// dispatcher (spec.md §4.7) produces regardless of which MLS content
// type an inbound message carried.
package dispatch

// ProcessedMessage is the uniform result of process_group_message.
type ProcessedMessage struct {
	MessageType    string `json:"messageType"`
	Plaintext      []byte `json:"plaintext"`
	SenderIdentity []byte `json:"senderIdentity"`
}

// Message type tags, exactly as named in spec.md §4.5's content table.
const (
	TypeApplication      = "application"
	TypeCommit           = "commit"
	TypeProposal         = "proposal"
	TypeExternalProposal = "external_proposal"
)
