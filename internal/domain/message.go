package domain

type MessageKind string

const (
	KindText MessageKind = "text"
	KindFile MessageKind = "file"
)

func (k MessageKind) Valid() bool {
	return k == KindText || k == KindFile
}

// Message is one immutable chat entry. SenderName is captured at write time.
type Message struct {
	Sender     SessionID   `json:"sender"`
	SenderName string      `json:"senderUsername"`
	Body       string      `json:"message"`
	Kind       MessageKind `json:"kind"`
}
