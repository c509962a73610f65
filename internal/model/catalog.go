package model

// NamedRef is an {id, name} pair as exposed to the builder UI.
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TicketType is a helpdesk ticket type with its allowed priorities.
type TicketType struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Priorities []NamedRef `json:"priorities"`
}

// TicketCatalog is the normalized set of options used to configure a
// ticket block: types with priorities, groups and agent users.
type TicketCatalog struct {
	Types  []TicketType `json:"types"`
	Groups []NamedRef   `json:"groups"`
	Users  []NamedRef   `json:"users"`
}
