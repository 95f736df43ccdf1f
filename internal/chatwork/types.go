package chatwork

// Room is an element of GET /rooms.
type Room struct {
	RoomID     int64  `json:"room_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	UnreadNum  int    `json:"unread_num"`
	MentionNum int    `json:"mention_num"`
}

// Account identifies the sender of a message.
type Account struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
}

// Message is an element of GET /rooms/{room_id}/messages.
// The API returns messages oldest first.
type Message struct {
	MessageID string  `json:"message_id"`
	Account   Account `json:"account"`
	Body      string  `json:"body"`
	SendTime  int64   `json:"send_time"`
}

// ReadStatus is returned by PUT /rooms/{room_id}/messages/read and carries the
// room counters after the read pointer moved.
type ReadStatus struct {
	UnreadNum  int `json:"unread_num"`
	MentionNum int `json:"mention_num"`
}
