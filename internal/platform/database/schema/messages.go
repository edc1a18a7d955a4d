// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// MessageTable represents the 'messages' table
type MessageTable struct {
	Table        string
	ID           string
	FromUsername string
	ToUsername   string
	Body         string
	SentAt       string
	ReadAt       string
}

// Message is the schema definition for messages
var Message = MessageTable{
	Table:        "messages",
	ID:           "id",
	FromUsername: "from_username",
	ToUsername:   "to_username",
	Body:         "body",
	SentAt:       "sent_at",
	ReadAt:       "read_at",
}

// Columns returns all standard column names
func (t MessageTable) Columns() []string {
	return []string{t.ID, t.FromUsername, t.ToUsername, t.Body, t.SentAt, t.ReadAt}
}
