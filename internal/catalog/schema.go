// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/irods-gateway/internal/logging"
)

// User types.
const (
	TypeRodsAdmin  = "rodsadmin"
	TypeGroupAdmin = "groupadmin"
	TypeRodsUser   = "rodsuser"
	TypeGroup      = "rodsgroup"
)

// Replica states.
const (
	ReplicaStale  = 0
	ReplicaGood   = 1
	ReplicaOpenRW = 2
)

const (
	publicGroup     = "public"
	defaultResc     = "demoResc"
	defaultRescType = "unixfilesystem"
)

var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS catalog_id_seq START 10000`,

	`CREATE TABLE IF NOT EXISTS zones (
		zone_id      BIGINT PRIMARY KEY DEFAULT nextval('catalog_id_seq'),
		zone_name    VARCHAR NOT NULL UNIQUE,
		zone_type    VARCHAR NOT NULL,
		zone_conn    VARCHAR NOT NULL DEFAULT '',
		zone_comment VARCHAR NOT NULL DEFAULT '',
		create_ts    BIGINT NOT NULL,
		modify_ts    BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id       BIGINT PRIMARY KEY DEFAULT nextval('catalog_id_seq'),
		user_name     VARCHAR NOT NULL,
		zone_name     VARCHAR NOT NULL,
		user_type     VARCHAR NOT NULL,
		password_hash VARCHAR NOT NULL DEFAULT '',
		user_info     VARCHAR NOT NULL DEFAULT '',
		user_comment  VARCHAR NOT NULL DEFAULT '',
		create_ts     BIGINT NOT NULL,
		modify_ts     BIGINT NOT NULL,
		UNIQUE (user_name, zone_name)
	)`,

	`CREATE TABLE IF NOT EXISTS group_members (
		group_id BIGINT NOT NULL,
		user_id  BIGINT NOT NULL,
		PRIMARY KEY (group_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS resources (
		resc_id    BIGINT PRIMARY KEY DEFAULT nextval('catalog_id_seq'),
		resc_name  VARCHAR NOT NULL UNIQUE,
		zone_name  VARCHAR NOT NULL,
		resc_type  VARCHAR NOT NULL,
		resc_loc   VARCHAR NOT NULL DEFAULT '',
		resc_vault VARCHAR NOT NULL DEFAULT '',
		create_ts  BIGINT NOT NULL,
		modify_ts  BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS collections (
		coll_id          BIGINT PRIMARY KEY DEFAULT nextval('catalog_id_seq'),
		coll_name        VARCHAR NOT NULL UNIQUE,
		parent_coll_name VARCHAR NOT NULL,
		owner_name       VARCHAR NOT NULL,
		owner_zone       VARCHAR NOT NULL,
		create_ts        BIGINT NOT NULL,
		modify_ts        BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS data_objects (
		data_id       BIGINT NOT NULL,
		coll_id       BIGINT NOT NULL,
		data_name     VARCHAR NOT NULL,
		repl_num      INTEGER NOT NULL,
		resc_name     VARCHAR NOT NULL,
		data_size     BIGINT NOT NULL DEFAULT 0,
		data_checksum VARCHAR NOT NULL DEFAULT '',
		owner_name    VARCHAR NOT NULL,
		owner_zone    VARCHAR NOT NULL,
		repl_status   INTEGER NOT NULL,
		opened_by     VARCHAR NOT NULL DEFAULT '',
		create_ts     BIGINT NOT NULL,
		modify_ts     BIGINT NOT NULL,
		PRIMARY KEY (data_id, repl_num)
	)`,

	`CREATE TABLE IF NOT EXISTS access (
		object_id   BIGINT NOT NULL,
		user_id     BIGINT NOT NULL,
		access_name VARCHAR NOT NULL,
		PRIMARY KEY (object_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id        BIGINT PRIMARY KEY DEFAULT nextval('catalog_id_seq'),
		ticket_string    VARCHAR NOT NULL UNIQUE,
		ticket_type      VARCHAR NOT NULL,
		user_id          BIGINT NOT NULL,
		object_id        BIGINT NOT NULL,
		object_type      VARCHAR NOT NULL,
		uses_limit       BIGINT NOT NULL DEFAULT 0,
		uses_count       BIGINT NOT NULL DEFAULT 0,
		write_file_limit BIGINT NOT NULL DEFAULT 0,
		write_file_count BIGINT NOT NULL DEFAULT 0,
		write_byte_limit BIGINT NOT NULL DEFAULT 0,
		write_byte_count BIGINT NOT NULL DEFAULT 0,
		expiry_ts        BIGINT NOT NULL DEFAULT 0,
		create_ts        BIGINT NOT NULL,
		modify_ts        BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS ticket_allowed (
		ticket_id BIGINT NOT NULL,
		kind      VARCHAR NOT NULL,
		value     VARCHAR NOT NULL,
		PRIMARY KEY (ticket_id, kind, value)
	)`,

	`CREATE TABLE IF NOT EXISTS quotas (
		user_id     BIGINT NOT NULL,
		resc_id     BIGINT NOT NULL,
		quota_limit BIGINT NOT NULL,
		quota_over  BIGINT NOT NULL DEFAULT 0,
		modify_ts   BIGINT NOT NULL,
		PRIMARY KEY (user_id, resc_id)
	)`,

	`CREATE TABLE IF NOT EXISTS specific_queries (
		alias     VARCHAR PRIMARY KEY,
		sqlstr    VARCHAR NOT NULL,
		create_ts BIGINT NOT NULL
	)`,
}

// builtinSpecificQueries are installed with a new catalog.
var builtinSpecificQueries = map[string]string{
	"findQueryByAlias":     "SELECT alias, sqlstr FROM specific_queries WHERE alias = ?",
	"listQueryByAliasLike": "SELECT alias, sqlstr FROM specific_queries WHERE alias LIKE ? ORDER BY alias",
	"ShowCollAcls": `SELECT u.user_name, u.zone_name, a.access_name FROM access a
		JOIN users u ON u.user_id = a.user_id
		JOIN collections c ON c.coll_id = a.object_id
		WHERE c.coll_name = ? ORDER BY u.user_name`,
}

func (c *Catalog) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// bootstrap installs the local zone, its administrator, the public group,
// a default resource and the zone's top-level collections. It is a no-op
// for a catalog that already has a local zone.
func (c *Catalog) bootstrap(ctx context.Context, cfg Config) error {
	var existing string
	err := c.db.QueryRowContext(ctx,
		`SELECT zone_name FROM zones WHERE zone_type = 'local'`).Scan(&existing)
	switch {
	case err == nil:
		if existing != cfg.Zone {
			return fmt.Errorf("catalog belongs to zone %q, configured zone is %q", existing, cfg.Zone)
		}
		logging.Debug().Str("zone", existing).Msg("Catalog already bootstrapped")
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to read local zone: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash administrator password: %w", err)
	}

	now := c.now().Unix()
	zone := cfg.Zone
	admin := cfg.AdminUsername

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO zones (zone_name, zone_type, zone_conn, create_ts, modify_ts) VALUES (?, 'local', ?, ?, ?)`,
			[]any{zone, cfg.ConnectionInfo, now, now}},
		{`INSERT INTO users (user_name, zone_name, user_type, password_hash, create_ts, modify_ts) VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{admin, zone, TypeRodsAdmin, string(hash), now, now}},
		{`INSERT INTO users (user_name, zone_name, user_type, create_ts, modify_ts) VALUES (?, ?, ?, ?, ?)`,
			[]any{publicGroup, zone, TypeGroup, now, now}},
		{`INSERT INTO group_members (group_id, user_id)
			SELECT g.user_id, u.user_id FROM users g, users u
			WHERE g.user_name = ? AND u.user_name = ? AND g.zone_name = ? AND u.zone_name = ?`,
			[]any{publicGroup, admin, zone, zone}},
		{`INSERT INTO resources (resc_name, zone_name, resc_type, resc_loc, resc_vault, create_ts, modify_ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{defaultResc, zone, defaultRescType, cfg.Host, "/var/lib/irods/Vault", now, now}},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("failed to bootstrap catalog: %w", err)
		}
	}

	for _, coll := range []string{"/", "/" + zone, "/" + zone + "/home", "/" + zone + "/trash",
		"/" + zone + "/home/" + admin, "/" + zone + "/home/" + publicGroup} {
		if err := insertCollection(ctx, tx, coll, admin, zone, now); err != nil {
			return err
		}
	}

	for alias, sqlstr := range builtinSpecificQueries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO specific_queries (alias, sqlstr, create_ts) VALUES (?, ?, ?)`, alias, sqlstr, now); err != nil {
			return fmt.Errorf("failed to install specific query %s: %w", alias, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bootstrap: %w", err)
	}

	logging.Info().Str("zone", zone).Str("admin", admin).Msg("Bootstrapped catalog")
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCollection(ctx context.Context, db execer, name, owner, zone string, now int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO collections (coll_name, parent_coll_name, owner_name, owner_zone, create_ts, modify_ts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		name, parentPath(name), owner, zone, now, now)
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}
