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

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

// generalAdmin applies an administrative change. Args follow the iadmin
// layout: verb, object type, then object specific arguments.
//
//	add user <name> <type> <zone>
//	rm user <name> <zone>
//	modify user <name> <zone> password|type <value>
//	add group <name>
//	rm group <name>
//	modify group <group> add|remove <user> <zone>
//	add specificQuery <sql> <alias>
//	rm specificQuery <alias>
//	add zone <name> remote <connection info> <comment>
//	rm zone <name>
//	modify zone <name> name|connection_info|comment <value>
//	set-quota group <name> <resource|total> <bytes>
//	calculate-usage
func (c *Catalog) generalAdmin(ctx context.Context, actor principal, call irods.Call) (*irods.Result, error) {
	verb, object := call.Arg(0), call.Arg(1)

	var err error
	switch verb + " " + object {
	case "add user":
		err = c.addUser(ctx, actor, call.Arg(2), call.Arg(3), call.Arg(4))
	case "rm user":
		err = c.removeUser(ctx, irods.User{Name: call.Arg(2), Zone: call.Arg(3)})
	case "modify user":
		err = c.modifyUser(ctx, irods.User{Name: call.Arg(2), Zone: call.Arg(3)}, call.Arg(4), call.Arg(5))
	case "add group":
		err = c.addGroup(ctx, call.Arg(2))
	case "rm group":
		err = c.removeGroup(ctx, call.Arg(2))
	case "modify group":
		err = c.modifyGroup(ctx, actor, call.Arg(2), call.Arg(3), irods.User{Name: call.Arg(4), Zone: call.Arg(5)})
	case "add specificQuery":
		err = c.addSpecificQuery(ctx, call.Arg(2), call.Arg(3))
	case "rm specificQuery":
		err = c.removeSpecificQuery(ctx, call.Arg(2))
	case "add zone":
		err = c.addZone(ctx, call.Arg(2), call.Arg(3), call.Arg(4), call.Arg(5))
	case "rm zone":
		err = c.removeZone(ctx, call.Arg(2))
	case "modify zone":
		err = c.modifyZone(ctx, call.Arg(2), call.Arg(3), call.Arg(4))
	case "set-quota group":
		err = c.setGroupQuota(ctx, call.Arg(2), call.Arg(3), call.Arg(4))
	case "calculate-usage ":
		err = c.calculateUsage(ctx)
	default:
		err = irods.NewError(irods.CatInvalidArgument, "unknown admin operation %q %q", verb, object)
	}
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().Str("actor", actor.user.String()).Str("verb", verb).Str("object", object).Msg("Catalog changed")
	return &irods.Result{}, nil
}

func validUserType(t string) bool {
	switch t {
	case TypeRodsUser, TypeRodsAdmin, TypeGroupAdmin:
		return true
	}
	return false
}

func (c *Catalog) addUser(ctx context.Context, actor principal, name, userType, zone string) error {
	if name == "" {
		return irods.NewError(irods.CatInvalidArgument, "user name is required")
	}
	if userType == "" {
		userType = TypeRodsUser
	}
	if !validUserType(userType) {
		return irods.NewError(irods.CatInvalidArgument, "invalid user type %s", userType)
	}
	if actor.userType == TypeGroupAdmin && userType != TypeRodsUser {
		return irods.NewError(irods.CatInsufficientPrivilege, "group administrators may only create rodsuser accounts")
	}
	if zone == "" {
		zone = c.zone
	}
	if zone != c.zone {
		if err := c.requireZone(ctx, zone); err != nil {
			return err
		}
	}

	now := c.now().Unix()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return sqlError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (user_name, zone_name, user_type, create_ts, modify_ts) VALUES (?, ?, ?, ?, ?)`,
		name, zone, userType, now, now); err != nil {
		return sqlError(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id)
		SELECT g.user_id, u.user_id FROM users g, users u
		WHERE g.user_name = ? AND g.zone_name = ? AND u.user_name = ? AND u.zone_name = ?`,
		publicGroup, c.zone, name, zone); err != nil {
		return sqlError(err)
	}
	if zone == c.zone {
		if err := insertCollection(ctx, tx, "/"+c.zone+"/home/"+name, name, zone, now); err != nil {
			return sqlError(err)
		}
	}
	return sqlError(tx.Commit())
}

func (c *Catalog) removeUser(ctx context.Context, user irods.User) error {
	p, err := lookupPrincipal(ctx, c.db, c.qualify(user))
	if err != nil {
		return err
	}
	if p.userType == TypeGroup {
		return irods.NewError(irods.CatInvalidUser, "%s is a group", p.user)
	}

	home := "/" + c.zone + "/home/" + p.user.Name
	var owned int
	if err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM data_objects d JOIN collections c ON c.coll_id = d.coll_id WHERE c.coll_name = ?`,
		home).Scan(&owned); err != nil {
		return sqlError(err)
	}
	if owned > 0 {
		return irods.NewError(irods.CatInvalidArgument, "home collection of %s is not empty", p.user)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return sqlError(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []struct {
		query string
		arg   any
	}{
		{`DELETE FROM group_members WHERE user_id = ?`, p.id},
		{`DELETE FROM access WHERE user_id = ?`, p.id},
		{`DELETE FROM quotas WHERE user_id = ?`, p.id},
		{`DELETE FROM collections WHERE coll_name = ?`, home},
		{`DELETE FROM users WHERE user_id = ?`, p.id},
	} {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.arg); err != nil {
			return sqlError(err)
		}
	}
	return sqlError(tx.Commit())
}

func (c *Catalog) modifyUser(ctx context.Context, user irods.User, property, value string) error {
	p, err := lookupPrincipal(ctx, c.db, c.qualify(user))
	if err != nil {
		return err
	}
	if p.userType == TypeGroup {
		return irods.NewError(irods.CatInvalidUser, "%s is a group", p.user)
	}

	switch property {
	case "password":
		return c.setPassword(ctx, p, value)
	case "type":
		if !validUserType(value) {
			return irods.NewError(irods.CatInvalidArgument, "invalid user type %s", value)
		}
		_, err := c.db.ExecContext(ctx,
			`UPDATE users SET user_type = ?, modify_ts = ? WHERE user_id = ?`, value, c.now().Unix(), p.id)
		return sqlError(err)
	}
	return irods.NewError(irods.CatInvalidArgument, "unknown user property %s", property)
}

func (c *Catalog) setPassword(ctx context.Context, p principal, password string) error {
	if password == "" {
		return irods.NewError(irods.CatInvalidArgument, "password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return irods.NewError(irods.CatInvalidArgument, "%v", err)
	}
	_, err = c.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, modify_ts = ? WHERE user_id = ?`, string(hash), c.now().Unix(), p.id)
	return sqlError(err)
}

func (c *Catalog) addGroup(ctx context.Context, name string) error {
	if name == "" {
		return irods.NewError(irods.CatInvalidArgument, "group name is required")
	}
	now := c.now().Unix()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO users (user_name, zone_name, user_type, create_ts, modify_ts) VALUES (?, ?, ?, ?, ?)`,
		name, c.zone, TypeGroup, now, now)
	return sqlError(err)
}

func (c *Catalog) lookupGroup(ctx context.Context, name string) (principal, error) {
	g, err := lookupPrincipal(ctx, c.db, irods.User{Name: name, Zone: c.zone})
	if err != nil {
		return g, irods.NewError(irods.CatInvalidUser, "group %s does not exist", name)
	}
	if g.userType != TypeGroup {
		return g, irods.NewError(irods.CatInvalidUser, "%s is not a group", name)
	}
	return g, nil
}

func (c *Catalog) removeGroup(ctx context.Context, name string) error {
	if name == publicGroup {
		return irods.NewError(irods.CatInvalidArgument, "the %s group cannot be removed", publicGroup)
	}
	g, err := c.lookupGroup(ctx, name)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return sqlError(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM group_members WHERE group_id = ?`,
		`DELETE FROM access WHERE user_id = ?`,
		`DELETE FROM quotas WHERE user_id = ?`,
		`DELETE FROM users WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, g.id); err != nil {
			return sqlError(err)
		}
	}
	return sqlError(tx.Commit())
}

func (c *Catalog) isMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID).Scan(&n)
	return n > 0, sqlError(err)
}

func (c *Catalog) modifyGroup(ctx context.Context, actor principal, group, action string, user irods.User) error {
	g, err := c.lookupGroup(ctx, group)
	if err != nil {
		return err
	}
	if actor.userType == TypeGroupAdmin {
		member, err := c.isMember(ctx, g.id, actor.id)
		if err != nil {
			return err
		}
		if !member {
			return irods.NewError(irods.CatInsufficientPrivilege, "%s is not a member of %s", actor.user, group)
		}
	}

	u, err := lookupPrincipal(ctx, c.db, c.qualify(user))
	if err != nil {
		return err
	}
	if u.userType == TypeGroup {
		return irods.NewError(irods.CatInvalidUser, "groups cannot be nested")
	}

	switch action {
	case "add":
		_, err = c.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`, g.id, u.id)
	case "remove":
		member, merr := c.isMember(ctx, g.id, u.id)
		if merr != nil {
			return merr
		}
		if !member {
			return irods.NewError(irods.CatInvalidUser, "%s is not a member of %s", u.user, group)
		}
		_, err = c.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, g.id, u.id)
	default:
		return irods.NewError(irods.CatInvalidArgument, "unknown group action %s", action)
	}
	return sqlError(err)
}

func (c *Catalog) addSpecificQuery(ctx context.Context, sqlstr, alias string) error {
	if sqlstr == "" || alias == "" {
		return irods.NewError(irods.CatInvalidArgument, "specific query needs sql and an alias")
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO specific_queries (alias, sqlstr, create_ts) VALUES (?, ?, ?)`, alias, sqlstr, c.now().Unix())
	return sqlError(err)
}

func (c *Catalog) removeSpecificQuery(ctx context.Context, alias string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM specific_queries WHERE alias = ?`, alias)
	if err != nil {
		return sqlError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return irods.NewError(irods.CatUnknownSpecificQuery, "unknown specific query %s", alias)
	}
	return nil
}

func (c *Catalog) requireZone(ctx context.Context, name string) error {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM zones WHERE zone_name = ?`, name).Scan(&n); err != nil {
		return sqlError(err)
	}
	if n == 0 {
		return irods.NewError(irods.CatInvalidArgument, "unknown zone %s", name)
	}
	return nil
}

func (c *Catalog) addZone(ctx context.Context, name, zoneType, connInfo, comment string) error {
	if name == "" {
		return irods.NewError(irods.CatInvalidArgument, "zone name is required")
	}
	if zoneType != "remote" {
		return irods.NewError(irods.CatInvalidArgument, "only remote zones can be added")
	}
	now := c.now().Unix()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO zones (zone_name, zone_type, zone_conn, zone_comment, create_ts, modify_ts) VALUES (?, 'remote', ?, ?, ?, ?)`,
		name, connInfo, comment, now, now)
	return sqlError(err)
}

func (c *Catalog) removeZone(ctx context.Context, name string) error {
	if name == c.zone {
		return irods.NewError(irods.CatInvalidArgument, "the local zone cannot be removed")
	}
	if err := c.requireZone(ctx, name); err != nil {
		return err
	}

	var users int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE zone_name = ?`, name).Scan(&users); err != nil {
		return sqlError(err)
	}
	if users > 0 {
		return irods.NewError(irods.CatInvalidArgument, "zone %s still has users", name)
	}

	_, err := c.db.ExecContext(ctx, `DELETE FROM zones WHERE zone_name = ?`, name)
	return sqlError(err)
}

var zoneColumns = map[string]string{
	"name":            "zone_name",
	"connection_info": "zone_conn",
	"comment":         "zone_comment",
}

func (c *Catalog) modifyZone(ctx context.Context, name, property, value string) error {
	col, ok := zoneColumns[property]
	if !ok {
		return irods.NewError(irods.CatInvalidArgument, "unknown zone property %s", property)
	}
	if err := c.requireZone(ctx, name); err != nil {
		return err
	}
	if name == c.zone && property == "name" {
		return irods.NewError(irods.SysNotSupported, "renaming the local zone is not supported")
	}
	// col comes from zoneColumns.
	_, err := c.db.ExecContext(ctx,
		`UPDATE zones SET `+col+` = ?, modify_ts = ? WHERE zone_name = ?`, value, c.now().Unix(), name)
	return sqlError(err)
}

func (c *Catalog) setGroupQuota(ctx context.Context, group, resource, value string) error {
	g, err := c.lookupGroup(ctx, group)
	if err != nil {
		return err
	}
	limit, err := strconv.ParseInt(value, 10, 64)
	if err != nil || limit < 0 {
		return irods.NewError(irods.CatInvalidArgument, "invalid quota %q", value)
	}

	var rescID int64
	if resource != "" && resource != "total" {
		err := c.db.QueryRowContext(ctx, `SELECT resc_id FROM resources WHERE resc_name = ?`, resource).Scan(&rescID)
		if errors.Is(err, sql.ErrNoRows) {
			return irods.NewError(irods.CatInvalidArgument, "unknown resource %s", resource)
		}
		if err != nil {
			return sqlError(err)
		}
	}

	if limit == 0 {
		_, err = c.db.ExecContext(ctx, `DELETE FROM quotas WHERE user_id = ? AND resc_id = ?`, g.id, rescID)
		return sqlError(err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO quotas (user_id, resc_id, quota_limit, quota_over, modify_ts) VALUES (?, ?, ?, 0, ?)`,
		g.id, rescID, limit, c.now().Unix())
	return sqlError(err)
}

// calculateUsage recomputes how far each group is over its quotas. A
// negative value means the group is under its limit.
func (c *Catalog) calculateUsage(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, `SELECT user_id, resc_id, quota_limit FROM quotas`)
	if err != nil {
		return sqlError(err)
	}
	type quota struct{ groupID, rescID, limit int64 }
	var quotas []quota
	for rows.Next() {
		var q quota
		if err := rows.Scan(&q.groupID, &q.rescID, &q.limit); err != nil {
			rows.Close()
			return sqlError(err)
		}
		quotas = append(quotas, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return sqlError(err)
	}

	now := c.now().Unix()
	for _, q := range quotas {
		var usage int64
		err := c.db.QueryRowContext(ctx,
			`SELECT coalesce(sum(d.data_size), 0) FROM data_objects d
			JOIN users u ON u.user_name = d.owner_name AND u.zone_name = d.owner_zone
			JOIN group_members gm ON gm.user_id = u.user_id
			WHERE gm.group_id = ?
			AND (? = 0 OR d.resc_name = (SELECT resc_name FROM resources WHERE resc_id = ?))`,
			q.groupID, q.rescID, q.rescID).Scan(&usage)
		if err != nil {
			return sqlError(err)
		}
		if _, err := c.db.ExecContext(ctx,
			`UPDATE quotas SET quota_over = ?, modify_ts = ? WHERE user_id = ? AND resc_id = ?`,
			usage-q.limit, now, q.groupID, q.rescID); err != nil {
			return sqlError(err)
		}
	}
	return nil
}

// userAdmin handles changes a user may make to their own account.
//
//	set_password <name> <zone> <new password>
func (c *Catalog) userAdmin(ctx context.Context, actor principal, call irods.Call) (*irods.Result, error) {
	if call.Arg(0) != "set_password" {
		return nil, irods.NewError(irods.CatInvalidArgument, "unknown user operation %q", call.Arg(0))
	}

	target := c.qualify(irods.User{Name: call.Arg(1), Zone: call.Arg(2)})
	if target != actor.user && !actor.isAdmin() {
		return nil, irods.NewError(irods.CatInsufficientPrivilege, "%s may not change the password of %s", actor.user, target)
	}
	p, err := lookupPrincipal(ctx, c.db, target)
	if err != nil {
		return nil, err
	}
	if err := c.setPassword(ctx, p, call.Arg(3)); err != nil {
		return nil, err
	}
	return &irods.Result{}, nil
}
