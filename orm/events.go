package orm

import "github.com/syssam/velite/schema"

// Action is the kind of change reported by a TableChangedEvent.
type Action uint8

// Table change actions.
const (
	ActionInsert Action = iota + 1
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// TableChangedEvent reports rows changed through a mapped entity.
type TableChangedEvent struct {
	Table  *schema.TableMapping
	Action Action
	Rows   int64
}

func (c *Conn) notify(m *schema.TableMapping, a Action, rows int64) {
	if rows <= 0 || c.cfg.tableChanged == nil {
		return
	}
	c.cfg.tableChanged(TableChangedEvent{Table: m, Action: a, Rows: rows})
}
