package ticketing

import (
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/trudesk"
)

// normalize maps helpdesk shapes onto the catalog exposed to the builder.
// Only agents are kept from the user list.
func normalize(types []trudesk.TicketType, groups []trudesk.Group, users []trudesk.User) *model.TicketCatalog {
	catalog := &model.TicketCatalog{
		Types:  make([]model.TicketType, 0, len(types)),
		Groups: make([]model.NamedRef, 0, len(groups)),
		Users:  make([]model.NamedRef, 0, len(users)),
	}

	for _, t := range types {
		priorities := make([]model.NamedRef, 0, len(t.Priorities))
		for _, p := range t.Priorities {
			priorities = append(priorities, model.NamedRef{ID: p.ID, Name: p.Name})
		}
		catalog.Types = append(catalog.Types, model.TicketType{ID: t.ID, Name: t.Name, Priorities: priorities})
	}

	for _, g := range groups {
		catalog.Groups = append(catalog.Groups, model.NamedRef{ID: g.ID, Name: g.Name})
	}

	for _, u := range users {
		if !u.IsAgent() {
			continue
		}
		catalog.Users = append(catalog.Users, model.NamedRef{ID: u.ID, Name: u.Fullname})
	}

	return catalog
}
