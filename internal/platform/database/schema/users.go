// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns created by data/migrations.
package schema

// UserTable represents the 'users' table
type UserTable struct {
	Table        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	JoinedAt     string
	LastLoginAt  string
}

// User is the schema definition for users
var User = UserTable{
	Table:        "users",
	Username:     "username",
	PasswordHash: "password",
	FirstName:    "first_name",
	LastName:     "last_name",
	Phone:        "phone",
	JoinedAt:     "join_at",
	LastLoginAt:  "last_login_at",
}

// Columns returns all standard column names
func (t UserTable) Columns() []string {
	return []string{
		t.Username, t.PasswordHash, t.FirstName, t.LastName,
		t.Phone, t.JoinedAt, t.LastLoginAt,
	}
}

// PublicColumns returns the columns safe to expose to other users
func (t UserTable) PublicColumns() []string {
	return []string{t.Username, t.FirstName, t.LastName, t.Phone}
}
