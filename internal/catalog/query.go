// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goccy/go-json"

	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

func (c *Catalog) scopeFor(ctx context.Context, p principal) (scope, error) {
	if p.isAdmin() {
		return scope{}, nil
	}
	ids, err := c.memberIDs(ctx, p)
	if err != nil {
		return scope{}, err
	}
	return scope{restricted: true, user: p.user, userID: p.id, memberIDs: ids}, nil
}

func (c *Catalog) checkZone(ctx context.Context, zone string) error {
	if zone == "" || zone == c.zone {
		return nil
	}
	var zoneType string
	err := c.db.QueryRowContext(ctx, `SELECT zone_type FROM zones WHERE zone_name = ?`, zone).Scan(&zoneType)
	if errors.Is(err, sql.ErrNoRows) {
		return irods.NewError(irods.CatInvalidArgument, "unknown zone %s", zone)
	}
	if err != nil {
		return sqlError(err)
	}
	return irods.NewError(irods.SysNotSupported, "queries against remote zone %s are not supported", zone)
}

// genQuery runs a GenQuery1 statement: Option "query" and "zone", Flags,
// Offset and Limit.
func (c *Catalog) genQuery(ctx context.Context, p principal, call irods.Call) (*irods.Result, error) {
	if err := c.checkZone(ctx, call.Option("zone")); err != nil {
		return nil, err
	}

	q, err := parseGenQuery(call.Option("query"), false)
	if err != nil {
		return nil, err
	}
	sc, err := c.scopeFor(ctx, p)
	if err != nil {
		return nil, err
	}

	stmt, args, err := buildSQL(q, sc, buildOptions{
		upperCase: call.Flags&irods.OptionUpperCaseWhere != 0,
		distinct:  call.Flags&irods.OptionNoDistinct == 0,
		offset:    call.Offset,
		limit:     call.Limit,
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Trace().Str("sql", stmt).Msg("GenQuery translated")

	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, sqlError(err)
	}
	defer rows.Close()

	out, err := scanStrings(rows, 0, 0)
	if err != nil {
		return nil, err
	}
	return &irods.Result{Rows: out}, nil
}

// genQuery2 runs a GenQuery2 statement. With Option "sql_only" set to "1"
// the generated SQL, with its bound values inlined, is returned instead of
// rows.
func (c *Catalog) genQuery2(ctx context.Context, p principal, call irods.Call) (*irods.Result, error) {
	if err := c.checkZone(ctx, call.Option("zone")); err != nil {
		return nil, err
	}

	q, err := parseGenQuery(call.Option("query"), true)
	if err != nil {
		return nil, err
	}
	sc, err := c.scopeFor(ctx, p)
	if err != nil {
		return nil, err
	}

	stmt, args, err := buildSQL(q, sc, buildOptions{
		distinct: true,
		offset:   q.offset,
		limit:    q.limit,
	})
	if err != nil {
		return nil, err
	}

	if call.Option("sql_only") == "1" {
		return &irods.Result{Text: inlineArgs(stmt, args)}, nil
	}

	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, sqlError(err)
	}
	defer rows.Close()

	out, err := scanStrings(rows, 0, 0)
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(out)
	if err != nil {
		return nil, irods.NewError(irods.SysInternalErr, "%v", err)
	}
	return &irods.Result{Text: string(doc)}, nil
}

// specificQuery runs a stored statement: Option "name", Args bound in
// order, Offset rows skipped and at most Limit rows returned.
func (c *Catalog) specificQuery(ctx context.Context, call irods.Call) (*irods.Result, error) {
	name := call.Option("name")

	var sqlstr string
	err := c.db.QueryRowContext(ctx, `SELECT sqlstr FROM specific_queries WHERE alias = ?`, name).Scan(&sqlstr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, irods.NewError(irods.CatUnknownSpecificQuery, "unknown specific query %s", name)
	}
	if err != nil {
		return nil, sqlError(err)
	}

	args := make([]any, len(call.Args))
	for i, a := range call.Args {
		args[i] = a
	}

	rows, err := c.db.QueryContext(ctx, sqlstr, args...)
	if err != nil {
		return nil, sqlError(err)
	}
	defer rows.Close()

	out, err := scanStrings(rows, call.Offset, call.Limit)
	if err != nil {
		return nil, err
	}
	return &irods.Result{Rows: out}, nil
}

type zoneReportResource struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Location  string `json:"location"`
	VaultPath string `json:"vault_path"`
}

type zoneReportZone struct {
	Name           string               `json:"zone_name"`
	Type           string               `json:"zone_type"`
	ConnectionInfo string               `json:"connection_info"`
	Comment        string               `json:"comment"`
	Resources      []zoneReportResource `json:"resources,omitempty"`
}

// zoneReport describes every zone and the local zone's resources as JSON.
func (c *Catalog) zoneReport(ctx context.Context) (*irods.Result, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT zone_name, zone_type, zone_conn, zone_comment FROM zones ORDER BY zone_type, zone_name`)
	if err != nil {
		return nil, sqlError(err)
	}
	zones, err := scanStrings(rows, 0, 0)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = c.db.QueryContext(ctx,
		`SELECT resc_name, resc_type, resc_loc, resc_vault FROM resources WHERE zone_name = ? ORDER BY resc_name`, c.zone)
	if err != nil {
		return nil, sqlError(err)
	}
	rescs, err := scanStrings(rows, 0, 0)
	rows.Close()
	if err != nil {
		return nil, err
	}

	report := struct {
		Zones []zoneReportZone `json:"zones"`
	}{Zones: make([]zoneReportZone, 0, len(zones))}

	for _, z := range zones {
		zone := zoneReportZone{Name: z[0], Type: z[1], ConnectionInfo: z[2], Comment: z[3]}
		if z[0] == c.zone {
			for _, r := range rescs {
				zone.Resources = append(zone.Resources, zoneReportResource{Name: r[0], Type: r[1], Location: r[2], VaultPath: r[3]})
			}
		}
		report.Zones = append(report.Zones, zone)
	}

	doc, err := json.Marshal(report)
	if err != nil {
		return nil, irods.NewError(irods.SysInternalErr, "%v", err)
	}
	return &irods.Result{Text: string(doc)}, nil
}
