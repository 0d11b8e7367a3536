package sqlite

import "fmt"

// Table names. The active and trash tables share one column layout.
const (
	tableTickets      = "tickets"
	tableTicketsTrash = "tickets_trash"
	tableTags         = "tags"
	tablePermissions  = "permissions"
)

// ticketDDL returns the CREATE TABLE statement for a ticket store. Ids come
// from AUTOINCREMENT so a deleted id is never handed out again.
func ticketDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    task TEXT NOT NULL DEFAULT '',
    report TEXT NOT NULL DEFAULT '',
    host TEXT NOT NULL DEFAULT '',
    affected_location TEXT NOT NULL DEFAULT '',
    solution_type TEXT NOT NULL DEFAULT '',
    assigned_to TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    severity REAL NOT NULL DEFAULT 0,
    solved_comment TEXT NOT NULL DEFAULT '',
    confirmed_result TEXT NOT NULL DEFAULT '',
    closed_rationale TEXT NOT NULL DEFAULT '',
    open_time TEXT,
    solved_time TEXT,
    confirmed_time TEXT,
    closed_time TEXT,
    orphaned_time TEXT,
    creation_time TEXT NOT NULL,
    modification_time TEXT NOT NULL
);`, table)
}

const (
	createTags = `CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    resource_type TEXT NOT NULL,
    resource INTEGER NOT NULL,
    resource_uuid TEXT NOT NULL,
    resource_location TEXT NOT NULL,
    creation_time TEXT NOT NULL
);`

	createPermissions = `CREATE TABLE IF NOT EXISTS permissions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    subject TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource INTEGER NOT NULL,
    resource_uuid TEXT NOT NULL,
    resource_location TEXT NOT NULL,
    creation_time TEXT NOT NULL
);`
)

// Index DDL for the lookups the lifecycle performs on every call.
const (
	idxTicketsOwnerName      = `CREATE INDEX IF NOT EXISTS idx_tickets_owner_name ON tickets(owner, name);`
	idxTicketsTrashOwnerName = `CREATE INDEX IF NOT EXISTS idx_tickets_trash_owner_name ON tickets_trash(owner, name);`
	idxTagsResource          = `CREATE INDEX IF NOT EXISTS idx_tags_resource ON tags(resource_type, resource, resource_location);`
	idxPermissionsResource   = `CREATE INDEX IF NOT EXISTS idx_permissions_resource ON permissions(resource_type, resource, resource_location);`
	idxPermissionsSubject    = `CREATE INDEX IF NOT EXISTS idx_permissions_subject ON permissions(subject, name);`
)

// schemaDDL lists every statement run on Attach, tables before indexes.
var schemaDDL = []string{
	ticketDDL(tableTickets),
	ticketDDL(tableTicketsTrash),
	createTags,
	createPermissions,
	idxTicketsOwnerName,
	idxTicketsTrashOwnerName,
	idxTagsResource,
	idxPermissionsResource,
	idxPermissionsSubject,
}

// ticketColumns lists every ticket column except id, in table order. Moving
// a ticket between stores copies exactly these columns.
const ticketColumns = `uuid, owner, name, comment, task, report, host, affected_location,
    solution_type, assigned_to, status, severity, solved_comment, confirmed_result,
    closed_rationale, open_time, solved_time, confirmed_time, closed_time,
    orphaned_time, creation_time, modification_time`
