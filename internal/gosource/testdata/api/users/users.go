package users

import "time"

type Role string

type Base struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	Base
	Email    string          `json:"email"`
	Name     *string         `json:"name"`
	Tags     []string        `json:"tags,omitempty"`
	Avatar   []byte          `json:"avatar,omitempty"`
	Role     Role            `json:"role"`
	Meta     map[string]any  `json:"meta"`
	Scores   map[int]float64 `json:"scores"`
	Password string          `json:"-"`
	internal string
	Manager  *User       `json:"manager,omitempty"`
	Raw      interface{} `json:"raw"`
	Events   chan string
	Plain    bool
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type UserPage = Page[User]

type Shadowed struct {
	Base
	ID string `json:"id"`
}

type Tree []Tree
