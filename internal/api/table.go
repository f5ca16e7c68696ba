// Package api holds the wire contract shared by the HTTP client and the
// reference server: the closed set of vault tables and the JSON request and
// response shapes of the auth endpoints.
package api

import (
	"fmt"

	"github.com/avolkova/keepsafe/internal/common"
)

// Table identifies one of the vault's entity kinds. The set is closed: every
// table name arriving from the outside must go through ParseTable, so an
// invalid name is caught at the boundary instead of deep in storage code.
type Table string

const (
	TableAccounts   Table = "accounts"
	TableLinks      Table = "links"
	TableIdeas      Table = "ideas"
	TableCategories Table = "categories"
	TableReminders  Table = "reminders"
)

// Tables returns all known tables in a stable order.
func Tables() []Table {
	return []Table{TableAccounts, TableLinks, TableIdeas, TableCategories, TableReminders}
}

// ParseTable validates a table name. Unknown names yield common.ErrUnknownTable.
func ParseTable(s string) (Table, error) {
	switch t := Table(s); t {
	case TableAccounts, TableLinks, TableIdeas, TableCategories, TableReminders:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownTable, s)
	}
}

func (t Table) String() string { return string(t) }
