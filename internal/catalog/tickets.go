// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

const ticketLength = 15

// Ticket types.
const (
	TicketRead  = "read"
	TicketWrite = "write"
)

var ticketLimitColumns = map[string]string{
	"uses":        "uses_limit",
	"write-file":  "write_file_limit",
	"write-bytes": "write_byte_limit",
	"expire":      "expiry_ts",
}

// ticketAdmin manages tickets owned by actor.
//
//	create <read|write> <logical path>
//	mod <ticket> uses|write-file|write-bytes|expire <value>
//	mod <ticket> add user|group|host <value>
//	delete <ticket>
func (c *Catalog) ticketAdmin(ctx context.Context, actor principal, call irods.Call) (*irods.Result, error) {
	switch call.Arg(0) {
	case "create":
		t, err := c.createTicket(ctx, actor, call.Arg(1), call.Arg(2))
		if err != nil {
			return nil, err
		}
		return &irods.Result{Text: t}, nil

	case "mod":
		id, err := c.ownedTicket(ctx, actor, call.Arg(1))
		if err != nil {
			return nil, err
		}
		if call.Arg(2) == "add" {
			err = c.addTicketRestriction(ctx, id, call.Arg(3), call.Arg(4))
		} else {
			err = c.setTicketLimit(ctx, id, call.Arg(2), call.Arg(3))
		}
		if err != nil {
			return nil, err
		}
		return &irods.Result{}, nil

	case "delete":
		id, err := c.ownedTicket(ctx, actor, call.Arg(1))
		if err != nil {
			return nil, err
		}
		if err := c.deleteTicket(ctx, id); err != nil {
			return nil, err
		}
		logging.Ctx(ctx).Debug().Str("user", actor.user.String()).Msg("Ticket deleted")
		return &irods.Result{}, nil
	}
	return nil, irods.NewError(irods.CatInvalidArgument, "unknown ticket operation %q", call.Arg(0))
}

func newTicketString() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:ticketLength]
}

// canReach reports whether p owns or has been granted access to the object.
func (c *Catalog) canReach(ctx context.Context, p principal, objectID int64, kind string) (bool, error) {
	if p.isAdmin() {
		return true, nil
	}

	var n int
	ownerQuery := `SELECT count(*) FROM collections WHERE coll_id = ? AND owner_name = ? AND owner_zone = ?`
	if kind == "data" {
		ownerQuery = `SELECT count(*) FROM data_objects WHERE data_id = ? AND owner_name = ? AND owner_zone = ?`
	}
	if err := c.db.QueryRowContext(ctx, ownerQuery, objectID, p.user.Name, p.user.Zone).Scan(&n); err != nil {
		return false, sqlError(err)
	}
	if n > 0 {
		return true, nil
	}

	ids, err := c.memberIDs(ctx, p)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if err := c.db.QueryRowContext(ctx,
			`SELECT count(*) FROM access WHERE object_id = ? AND user_id = ?`, objectID, id).Scan(&n); err != nil {
			return false, sqlError(err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) createTicket(ctx context.Context, actor principal, ticketType, lpath string) (string, error) {
	if ticketType != TicketRead && ticketType != TicketWrite {
		return "", irods.NewError(irods.CatInvalidArgument, "invalid ticket type %q", ticketType)
	}
	if lpath == "" {
		return "", irods.NewError(irods.UserInputPathErr, "logical path is required")
	}

	objectID, kind, err := c.resolvePath(ctx, lpath)
	if err != nil {
		return "", err
	}
	ok, err := c.canReach(ctx, actor, objectID, kind)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", irods.NewError(irods.CatNoAccessPermission, "%s has no access to %s", actor.user, lpath)
	}

	ticket := newTicketString()
	now := c.now().Unix()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO tickets (ticket_string, ticket_type, user_id, object_id, object_type, create_ts, modify_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ticket, ticketType, actor.id, objectID, kind, now, now)
	if err != nil {
		return "", sqlError(err)
	}
	return ticket, nil
}

// ownedTicket returns the id of ticket if actor may change it.
func (c *Catalog) ownedTicket(ctx context.Context, actor principal, ticket string) (int64, error) {
	var id, owner int64
	err := c.db.QueryRowContext(ctx,
		`SELECT ticket_id, user_id FROM tickets WHERE ticket_string = ?`, ticket).Scan(&id, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, irods.NewError(irods.CatTicketInvalid, "ticket %s does not exist", ticket)
	}
	if err != nil {
		return 0, sqlError(err)
	}
	if owner != actor.id && !actor.isAdmin() {
		return 0, irods.NewError(irods.CatNoAccessPermission, "%s does not own ticket %s", actor.user, ticket)
	}
	return id, nil
}

func (c *Catalog) setTicketLimit(ctx context.Context, id int64, property, value string) error {
	col, ok := ticketLimitColumns[property]
	if !ok {
		return irods.NewError(irods.CatInvalidArgument, "unknown ticket property %q", property)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return irods.NewError(irods.CatInvalidArgument, "invalid value %q for %s", value, property)
	}
	// col comes from ticketLimitColumns.
	_, err = c.db.ExecContext(ctx,
		`UPDATE tickets SET `+col+` = ?, modify_ts = ? WHERE ticket_id = ?`, n, c.now().Unix(), id)
	return sqlError(err)
}

func (c *Catalog) addTicketRestriction(ctx context.Context, id int64, kind, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return irods.NewError(irods.CatInvalidArgument, "empty %s restriction", kind)
	}

	switch kind {
	case "user":
		p, err := lookupPrincipal(ctx, c.db, c.qualify(parseUser(value)))
		if err != nil {
			return err
		}
		if p.userType == TypeGroup {
			return irods.NewError(irods.CatInvalidUser, "%s is a group", value)
		}
	case "group":
		if _, err := c.lookupGroup(ctx, value); err != nil {
			return err
		}
	case "host":
	default:
		return irods.NewError(irods.CatInvalidArgument, "unknown ticket restriction %q", kind)
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ticket_allowed (ticket_id, kind, value) VALUES (?, ?, ?)`, id, kind, value)
	return sqlError(err)
}

func (c *Catalog) deleteTicket(ctx context.Context, id int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return sqlError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_allowed WHERE ticket_id = ?`, id); err != nil {
		return sqlError(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE ticket_id = ?`, id); err != nil {
		return sqlError(err)
	}
	return sqlError(tx.Commit())
}

// parseUser splits "name#zone".
func parseUser(s string) irods.User {
	name, zone, _ := strings.Cut(s, "#")
	return irods.User{Name: name, Zone: zone}
}
