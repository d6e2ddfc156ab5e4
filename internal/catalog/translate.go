// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/irods-gateway/internal/irods"
)

// Table groups a column can belong to. Groups that share a join path can be
// combined in one query.
const (
	groupColl   = "coll"
	groupData   = "data"
	groupUser   = "user"
	groupGroup  = "group"
	groupZone   = "zone"
	groupResc   = "resc"
	groupTicket = "ticket"
	groupQuota  = "quota"
)

type column struct {
	group   string
	expr    string
	numeric bool
}

func timestamp(expr string) string {
	return "lpad(CAST(" + expr + " AS VARCHAR), 11, '0')"
}

var columns = map[string]column{
	"COLL_ID":          {groupColl, "c.coll_id", true},
	"COLL_NAME":        {groupColl, "c.coll_name", false},
	"COLL_PARENT_NAME": {groupColl, "c.parent_coll_name", false},
	"COLL_OWNER_NAME":  {groupColl, "c.owner_name", false},
	"COLL_OWNER_ZONE":  {groupColl, "c.owner_zone", false},
	"COLL_CREATE_TIME": {groupColl, timestamp("c.create_ts"), false},
	"COLL_MODIFY_TIME": {groupColl, timestamp("c.modify_ts"), false},

	"DATA_ID":          {groupData, "d.data_id", true},
	"DATA_COLL_ID":     {groupData, "d.coll_id", true},
	"DATA_NAME":        {groupData, "d.data_name", false},
	"DATA_REPL_NUM":    {groupData, "d.repl_num", true},
	"DATA_SIZE":        {groupData, "d.data_size", true},
	"DATA_RESC_NAME":   {groupData, "d.resc_name", false},
	"DATA_CHECKSUM":    {groupData, "d.data_checksum", false},
	"DATA_OWNER_NAME":  {groupData, "d.owner_name", false},
	"DATA_OWNER_ZONE":  {groupData, "d.owner_zone", false},
	"DATA_REPL_STATUS": {groupData, "d.repl_status", true},
	"DATA_CREATE_TIME": {groupData, timestamp("d.create_ts"), false},
	"DATA_MODIFY_TIME": {groupData, timestamp("d.modify_ts"), false},

	"USER_ID":          {groupUser, "u.user_id", true},
	"USER_NAME":        {groupUser, "u.user_name", false},
	"USER_TYPE":        {groupUser, "u.user_type", false},
	"USER_ZONE":        {groupUser, "u.zone_name", false},
	"USER_INFO":        {groupUser, "u.user_info", false},
	"USER_COMMENT":     {groupUser, "u.user_comment", false},
	"USER_CREATE_TIME": {groupUser, timestamp("u.create_ts"), false},
	"USER_MODIFY_TIME": {groupUser, timestamp("u.modify_ts"), false},
	"USER_GROUP_ID":    {groupGroup, "g.user_id", true},
	"USER_GROUP_NAME":  {groupGroup, "g.user_name", false},

	"ZONE_ID":          {groupZone, "z.zone_id", true},
	"ZONE_NAME":        {groupZone, "z.zone_name", false},
	"ZONE_TYPE":        {groupZone, "z.zone_type", false},
	"ZONE_CONNECTION":  {groupZone, "z.zone_conn", false},
	"ZONE_COMMENT":     {groupZone, "z.zone_comment", false},
	"ZONE_CREATE_TIME": {groupZone, timestamp("z.create_ts"), false},
	"ZONE_MODIFY_TIME": {groupZone, timestamp("z.modify_ts"), false},

	"RESC_ID":          {groupResc, "r.resc_id", true},
	"RESC_NAME":        {groupResc, "r.resc_name", false},
	"RESC_ZONE_NAME":   {groupResc, "r.zone_name", false},
	"RESC_TYPE_NAME":   {groupResc, "r.resc_type", false},
	"RESC_LOC":         {groupResc, "r.resc_loc", false},
	"RESC_VAULT_PATH":  {groupResc, "r.resc_vault", false},
	"RESC_CREATE_TIME": {groupResc, timestamp("r.create_ts"), false},
	"RESC_MODIFY_TIME": {groupResc, timestamp("r.modify_ts"), false},

	"TICKET_ID":               {groupTicket, "t.ticket_id", true},
	"TICKET_STRING":           {groupTicket, "t.ticket_string", false},
	"TICKET_TYPE":             {groupTicket, "t.ticket_type", false},
	"TICKET_OBJECT_ID":        {groupTicket, "t.object_id", true},
	"TICKET_OBJECT_TYPE":      {groupTicket, "t.object_type", false},
	"TICKET_OWNER_NAME":       {groupTicket, "tu.user_name", false},
	"TICKET_OWNER_ZONE":       {groupTicket, "tu.zone_name", false},
	"TICKET_USES_LIMIT":       {groupTicket, "t.uses_limit", true},
	"TICKET_USES_COUNT":       {groupTicket, "t.uses_count", true},
	"TICKET_WRITE_FILE_LIMIT": {groupTicket, "t.write_file_limit", true},
	"TICKET_WRITE_FILE_COUNT": {groupTicket, "t.write_file_count", true},
	"TICKET_WRITE_BYTE_LIMIT": {groupTicket, "t.write_byte_limit", true},
	"TICKET_WRITE_BYTE_COUNT": {groupTicket, "t.write_byte_count", true},
	"TICKET_EXPIRY_TS":        {groupTicket, timestamp("t.expiry_ts"), false},
	"TICKET_CREATE_TIME":      {groupTicket, timestamp("t.create_ts"), false},
	"TICKET_MODIFY_TIME":      {groupTicket, timestamp("t.modify_ts"), false},

	"QUOTA_USER_ID":     {groupQuota, "q.user_id", true},
	"QUOTA_USER_NAME":   {groupQuota, "qu.user_name", false},
	"QUOTA_USER_ZONE":   {groupQuota, "qu.zone_name", false},
	"QUOTA_USER_TYPE":   {groupQuota, "qu.user_type", false},
	"QUOTA_RESC_ID":     {groupQuota, "q.resc_id", true},
	"QUOTA_RESC_NAME":   {groupQuota, "coalesce(qr.resc_name, 'total')", false},
	"QUOTA_LIMIT":       {groupQuota, "q.quota_limit", true},
	"QUOTA_OVER":        {groupQuota, "q.quota_over", true},
	"QUOTA_MODIFY_TIME": {groupQuota, timestamp("q.modify_ts"), false},
}

// ColumnNames returns every GenQuery column name, sorted.
func ColumnNames() []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// joinPath is a FROM clause and the column groups it can serve.
type joinPath struct {
	from   string
	groups []string
}

func (j joinPath) serves(group string) bool {
	for _, g := range j.groups {
		if g == group {
			return true
		}
	}
	return false
}

// pickJoin returns the join path for the groups a query references, in
// order of preference.
func pickJoin(groups map[string]bool) (joinPath, error) {
	var j joinPath
	switch {
	case groups[groupData]:
		j = joinPath{"data_objects d JOIN collections c ON c.coll_id = d.coll_id", []string{groupData, groupColl}}
	case groups[groupColl]:
		j = joinPath{"collections c", []string{groupColl}}
	case groups[groupGroup]:
		j = joinPath{"users u JOIN group_members gm ON gm.user_id = u.user_id JOIN users g ON g.user_id = gm.group_id",
			[]string{groupUser, groupGroup}}
	case groups[groupUser]:
		j = joinPath{"users u", []string{groupUser}}
	case groups[groupQuota]:
		j = joinPath{"quotas q JOIN users qu ON qu.user_id = q.user_id LEFT JOIN resources qr ON qr.resc_id = q.resc_id",
			[]string{groupQuota}}
	case groups[groupTicket]:
		j = joinPath{"tickets t JOIN users tu ON tu.user_id = t.user_id", []string{groupTicket}}
	case groups[groupZone]:
		j = joinPath{"zones z", []string{groupZone}}
	case groups[groupResc]:
		j = joinPath{"resources r", []string{groupResc}}
	default:
		return j, irods.NewError(irods.InputArgNotWellFormedErr, "no columns selected")
	}

	for g := range groups {
		if !j.serves(g) {
			return j, irods.NewError(irods.CatFailedToLinkTables, "cannot join %s columns with %s columns", g, j.groups[0])
		}
	}
	return j, nil
}

// scope restricts rows to what the acting user may see. Administrators
// have a zero scope.
type scope struct {
	restricted bool
	user       irods.User
	userID     int64
	memberIDs  []int64
}

// buildOptions carries the per-call knobs of a translation.
type buildOptions struct {
	upperCase bool
	distinct  bool
	offset    int
	limit     int
}

// buildSQL translates q into a SQL statement and its bind arguments.
func buildSQL(q *genQuery, sc scope, opts buildOptions) (string, []any, error) {
	groups := map[string]bool{}
	lookup := func(name string) (column, error) {
		col, ok := columns[name]
		if !ok {
			return col, irods.NewError(irods.InputArgNotWellFormedErr, "unknown column %s", name)
		}
		groups[col.group] = true
		return col, nil
	}

	var (
		selectExprs []string
		groupBy     []string
		orderBy     []string
		hasAgg      bool
	)
	for i, sel := range q.selects {
		col, err := lookup(sel.column)
		if err != nil {
			return "", nil, err
		}
		ordinal := strconv.Itoa(i + 1)

		switch sel.fn {
		case "count", "sum", "min", "max", "avg":
			hasAgg = true
			selectExprs = append(selectExprs, "CAST("+sel.fn+"("+col.expr+") AS VARCHAR)")
		default:
			selectExprs = append(selectExprs, "CAST("+col.expr+" AS VARCHAR)")
			groupBy = append(groupBy, ordinal)
			switch sel.fn {
			case "order":
				orderBy = append(orderBy, ordinal)
			case "order_desc":
				orderBy = append(orderBy, ordinal+" DESC")
			}
		}
	}

	var where []string
	var args []any
	for _, cond := range q.conditions {
		col, err := lookup(cond.column)
		if err != nil {
			return "", nil, err
		}
		var alts []string
		for _, pred := range cond.any {
			clause, predArgs := buildPredicate(col, pred, opts.upperCase)
			alts = append(alts, clause)
			args = append(args, predArgs...)
		}
		if len(alts) == 1 {
			where = append(where, alts[0])
		} else {
			where = append(where, "("+strings.Join(alts, " OR ")+")")
		}
	}

	join, err := pickJoin(groups)
	if err != nil {
		return "", nil, err
	}

	if sc.restricted {
		clause, scopeArgs := scopeClause(join, sc)
		if clause != "" {
			where = append(where, clause)
			args = append(args, scopeArgs...)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if opts.distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(selectExprs, ", "))
	b.WriteString(" FROM ")
	b.WriteString(join.from)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if hasAgg && len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	}
	if len(orderBy) == 0 {
		orderBy = groupBy
	}
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderBy, ", "))
	}
	if opts.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(opts.limit))
	}
	if opts.offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(opts.offset))
	}

	return b.String(), args, nil
}

func buildPredicate(col column, pred predicate, upperCase bool) (string, []any) {
	lhs := "CAST(" + col.expr + " AS VARCHAR)"
	numeric := false
	if col.numeric && pred.op != "like" && pred.op != "not like" {
		numeric = allIntegers(pred.values)
	}
	if numeric {
		lhs = col.expr
	} else if upperCase {
		lhs = "upper(" + lhs + ")"
	}

	args := make([]any, len(pred.values))
	for i, v := range pred.values {
		if numeric {
			n, _ := strconv.ParseInt(v, 10, 64)
			args[i] = n
		} else if upperCase {
			args[i] = strings.ToUpper(v)
		} else {
			args[i] = v
		}
	}

	switch pred.op {
	case "in", "not in":
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
		return lhs + " " + strings.ToUpper(pred.op) + " (" + marks + ")", args
	case "between":
		return lhs + " BETWEEN ? AND ?", args
	case "like", "not like":
		return lhs + " " + strings.ToUpper(pred.op) + " ?", args
	default:
		return lhs + " " + pred.op + " ?", args
	}
}

// inlineArgs renders args into the placeholders of stmt, for display only.
// Placeholders inside quoted literals are left alone.
func inlineArgs(stmt string, args []any) string {
	var b strings.Builder
	quoted := false
	next := 0
	for i := 0; i < len(stmt); i++ {
		ch := stmt[i]
		switch {
		case ch == '\'':
			quoted = !quoted
		case ch == '?' && !quoted && next < len(args):
			b.WriteString(sqlLiteral(args[next]))
			next++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func sqlLiteral(v any) string {
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
	}
}

func allIntegers(values []string) bool {
	for _, v := range values {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// scopeClause limits collections and data objects to those the user owns
// or was granted, and tickets to the user's own.
func scopeClause(join joinPath, sc scope) (string, []any) {
	ids := make([]string, len(sc.memberIDs))
	for i, id := range sc.memberIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	granted := "SELECT object_id FROM access WHERE user_id IN (" + strings.Join(ids, ", ") + ")"

	switch {
	case join.serves(groupData):
		return "((d.owner_name = ? AND d.owner_zone = ?) OR d.data_id IN (" + granted + "))",
			[]any{sc.user.Name, sc.user.Zone}
	case join.serves(groupColl):
		return "((c.owner_name = ? AND c.owner_zone = ?) OR c.coll_id IN (" + granted + "))",
			[]any{sc.user.Name, sc.user.Zone}
	case join.serves(groupTicket):
		return "t.user_id = ?", []any{sc.userID}
	}
	return "", nil
}
