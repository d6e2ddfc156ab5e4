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
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/irods-gateway/internal/authz"
	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

// Config configures an embedded catalog.
type Config struct {
	// Path is the DuckDB database file, or ":memory:".
	Path string

	Zone string

	// Host and ConnectionInfo describe the zone's own server in reports.
	Host           string
	ConnectionInfo string

	AdminUsername string
	AdminPassword string

	Authz authz.Config
}

// Catalog is an in-process iRODS catalog. It is safe for concurrent use;
// the connections it hands out are not.
type Catalog struct {
	db    *sql.DB
	zone  string
	authz *authz.Enforcer
	now   func() time.Time
}

// Open opens (creating if needed) the catalog at cfg.Path and bootstraps it
// for cfg.Zone.
func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	if cfg.Zone == "" || cfg.AdminUsername == "" {
		return nil, errors.New("catalog: zone and admin username are required")
	}
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory %s: %w", dir, err)
			}
		}
	}

	enforcer, err := authz.NewEnforcer(cfg.Authz)
	if err != nil {
		return nil, err
	}

	connStr := cfg.Path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"
	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	c := &Catalog{db: db, zone: cfg.Zone, authz: enforcer, now: time.Now}

	if err := c.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := c.bootstrap(ctx, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().Str("path", cfg.Path).Str("zone", cfg.Zone).Msg("Catalog opened")
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Zone returns the local zone name.
func (c *Catalog) Zone() string {
	return c.zone
}

// Dial opens a connection. Credentials are checked by Authenticate.
func (c *Catalog) Dial(ctx context.Context, req irods.DialRequest) (irods.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Proxy.Name == "" {
		return nil, irods.NewError(irods.CatInvalidUser, "no user given")
	}
	return &conn{cat: c, proxyUser: c.qualify(req.Proxy), clientUser: c.qualify(req.Client)}, nil
}

func (c *Catalog) qualify(u irods.User) irods.User {
	if u.Zone == "" {
		u.Zone = c.zone
	}
	return u
}

// principal is a resolved catalog user.
type principal struct {
	id       int64
	user     irods.User
	userType string
	hash     string
}

func (p principal) isAdmin() bool {
	return p.userType == TypeRodsAdmin
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lookupPrincipal(ctx context.Context, q queryer, u irods.User) (principal, error) {
	p := principal{user: u}
	err := q.QueryRowContext(ctx,
		`SELECT user_id, user_type, password_hash FROM users WHERE user_name = ? AND zone_name = ?`,
		u.Name, u.Zone).Scan(&p.id, &p.userType, &p.hash)
	if errors.Is(err, sql.ErrNoRows) {
		return p, irods.NewError(irods.CatInvalidUser, "user %s does not exist", u)
	}
	if err != nil {
		return p, sqlError(err)
	}
	return p, nil
}

// memberIDs returns the user's own id followed by the ids of its groups.
func (c *Catalog) memberIDs(ctx context.Context, p principal) ([]int64, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT group_id FROM group_members WHERE user_id = ?`, p.id)
	if err != nil {
		return nil, sqlError(err)
	}
	defer rows.Close()

	ids := []int64{p.id}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, sqlError(err)
		}
		ids = append(ids, id)
	}
	return ids, sqlError(rows.Err())
}

// AddCollection creates a collection owned by owner. Missing parents are
// not created.
func (c *Catalog) AddCollection(ctx context.Context, name string, owner irods.User) error {
	owner = c.qualify(owner)
	name = path.Clean(name)
	if err := c.requireCollection(ctx, parentPath(name)); err != nil {
		return err
	}
	return sqlError(insertCollection(ctx, c.db, name, owner.Name, owner.Zone, c.now().Unix()))
}

// DataObject describes a replica to register.
type DataObject struct {
	Path     string
	Owner    irods.User
	Size     int64
	Resource string
	Checksum string

	// Open leaves the replica in the intermediate state, held by Owner.
	Open bool
}

// AddDataObject registers a single-replica data object.
func (c *Catalog) AddDataObject(ctx context.Context, obj DataObject) (int64, error) {
	owner := c.qualify(obj.Owner)
	collName, dataName := path.Split(path.Clean(obj.Path))
	collName = path.Clean(collName)

	var collID int64
	err := c.db.QueryRowContext(ctx, `SELECT coll_id FROM collections WHERE coll_name = ?`, collName).Scan(&collID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, irods.NewError(irods.ObjPathDoesNotExist, "collection %s does not exist", collName)
	}
	if err != nil {
		return 0, sqlError(err)
	}

	var dataID int64
	if err := c.db.QueryRowContext(ctx, `SELECT nextval('catalog_id_seq')`).Scan(&dataID); err != nil {
		return 0, sqlError(err)
	}

	resc := obj.Resource
	if resc == "" {
		resc = defaultResc
	}
	status, openedBy := ReplicaGood, ""
	if obj.Open {
		status, openedBy = ReplicaOpenRW, owner.String()
	}

	now := c.now().Unix()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO data_objects (data_id, coll_id, data_name, repl_num, resc_name, data_size, data_checksum,
			owner_name, owner_zone, repl_status, opened_by, create_ts, modify_ts)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dataID, collID, dataName, resc, obj.Size, obj.Checksum, owner.Name, owner.Zone, status, openedBy, now, now)
	if err != nil {
		return 0, sqlError(err)
	}
	return dataID, nil
}

// Grant gives user an access level on the collection or data object at p.
func (c *Catalog) Grant(ctx context.Context, p string, user irods.User, access string) error {
	user = c.qualify(user)
	who, err := lookupPrincipal(ctx, c.db, user)
	if err != nil {
		return err
	}
	objectID, _, err := c.resolvePath(ctx, p)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO access (object_id, user_id, access_name) VALUES (?, ?, ?)`,
		objectID, who.id, access)
	return sqlError(err)
}

// ReplicaStatus returns the status and holder of replica 0 at p.
func (c *Catalog) ReplicaStatus(ctx context.Context, p string) (status int, openedBy string, err error) {
	collName, dataName := path.Split(path.Clean(p))
	err = c.db.QueryRowContext(ctx,
		`SELECT d.repl_status, d.opened_by FROM data_objects d JOIN collections c ON c.coll_id = d.coll_id
		WHERE c.coll_name = ? AND d.data_name = ? AND d.repl_num = 0`,
		path.Clean(collName), dataName).Scan(&status, &openedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", irods.NewError(irods.ObjPathDoesNotExist, "%s does not exist", p)
	}
	return status, openedBy, sqlError(err)
}

// resolvePath returns the id and kind ("collection" or "data") of the
// object at p.
func (c *Catalog) resolvePath(ctx context.Context, p string) (int64, string, error) {
	p = path.Clean(p)

	var id int64
	err := c.db.QueryRowContext(ctx, `SELECT coll_id FROM collections WHERE coll_name = ?`, p).Scan(&id)
	if err == nil {
		return id, "collection", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, "", sqlError(err)
	}

	collName, dataName := path.Split(p)
	err = c.db.QueryRowContext(ctx,
		`SELECT DISTINCT d.data_id FROM data_objects d JOIN collections c ON c.coll_id = d.coll_id
		WHERE c.coll_name = ? AND d.data_name = ?`,
		path.Clean(collName), dataName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", irods.NewError(irods.ObjPathDoesNotExist, "%s does not exist", p)
	}
	if err != nil {
		return 0, "", sqlError(err)
	}
	return id, "data", nil
}

func (c *Catalog) requireCollection(ctx context.Context, name string) error {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM collections WHERE coll_name = ?`, name).Scan(&n); err != nil {
		return sqlError(err)
	}
	if n == 0 {
		return irods.NewError(irods.ObjPathDoesNotExist, "collection %s does not exist", name)
	}
	return nil
}

func parentPath(p string) string {
	if p == "/" {
		return ""
	}
	return path.Dir(p)
}

// sqlError converts a database failure into a backend error.
func sqlError(err error) error {
	if err == nil {
		return nil
	}
	var e *irods.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "Constraint Error") || strings.Contains(msg, "Duplicate key") {
		return irods.NewError(irods.CatalogAlreadyHasItemByName, "%s", msg)
	}
	return irods.NewError(irods.CatSQLErr, "%s", msg)
}

type rowsScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanStrings reads every row as strings, skipping the first skip rows
// and stopping after limit rows when limit > 0.
func scanStrings(rows rowsScanner, skip, limit int) ([][]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, sqlError(err)
	}

	out := [][]string{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if skip > 0 {
			skip--
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, sqlError(err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	return out, sqlError(rows.Err())
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case time.Time:
		return strconv.FormatInt(x.Unix(), 10)
	default:
		return fmt.Sprint(x)
	}
}
