// engforum/models/models.go
package models

import (
	"database/sql"
	"time"
)

// --- Core Data Models ---

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	Major        string
	Created      time.Time
}

type Thread struct {
	ID              string
	Author          string
	CategoryID      string
	Title           string
	Content         string
	IsViolation     bool
	ViolationReason sql.NullString
	ViolationBy     sql.NullString
	Created         time.Time
	Replies         []Reply
}

type Reply struct {
	ID          string
	ThreadID    string
	Author      string
	Content     string
	IsViolation bool
	Created     time.Time
}

type Category struct {
	ID          string
	Name        string
	Icon        string
	Description string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Major    string
}

// Categories is the site's fixed category table. It is never persisted
// or user-mutable.
var Categories = []Category{
	{ID: "general", Name: "General Discussion", Icon: "💬", Description: "Talk about anything"},
	{ID: "education", Name: "Education", Icon: "📚", Description: "Learning and academic topics"},
	{ID: "science", Name: "Science & Technology", Icon: "🔬", Description: "Scientific discoveries and tech innovations"},
	{ID: "entertainment", Name: "Entertainment", Icon: "🎬", Description: "Movies, TV, music, and more"},
	{ID: "sports", Name: "Sports & Fitness", Icon: "⚽", Description: "Athletic activities and health"},
	{ID: "gaming", Name: "Gaming", Icon: "🎮", Description: "Video games and esports"},
	{ID: "programming", Name: "Programming", Icon: "💻", Description: "Coding and software development"},
	{ID: "arts", Name: "Arts & Creativity", Icon: "🎨", Description: "Art, design, and creative projects"},
}

// CategoryByID looks up a category in the static table.
func CategoryByID(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// MailService is the outbound notification contract. Delivery is
// best-effort: implementations report failure as false, never as a
// panic or an error value.
type MailService interface {
	SendWelcomeEmail(toEmail, username, major string) bool
	SendEmail(toEmail, subject, bodyHTML string) bool
}
