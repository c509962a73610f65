package trudesk

// Wire shapes of the helpdesk REST API. Only the fields read here are mapped.

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
	Error       string `json:"error,omitempty"`
}

// Priority is a ticket priority as returned by the helpdesk.
type Priority struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// TicketType is a ticket type with its priorities.
type TicketType struct {
	ID         string     `json:"_id"`
	Name       string     `json:"name"`
	Priorities []Priority `json:"priorities"`
}

// Group is a customer group.
type Group struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type groupsResponse struct {
	Success bool    `json:"success"`
	Groups  []Group `json:"groups"`
	Error   string  `json:"error,omitempty"`
}

// Role is the role attached to a helpdesk user.
type Role struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	IsAgent bool   `json:"isAgent"`
	IsAdmin bool   `json:"isAdmin"`
}

// User is a helpdesk account. Role may be absent on some installs.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Role     *Role  `json:"role"`
}

// IsAgent reports whether the user can be assigned tickets.
func (u User) IsAgent() bool {
	return u.Role != nil && u.Role.IsAgent
}
