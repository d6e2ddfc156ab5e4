// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/irods"
)

type quotaStatRequest struct {
	Group string `param:"group" validate:"omitempty,irodsname"`
}

type setQuotaRequest struct {
	Group    string `param:"group" validate:"required,irodsname"`
	Quota    string `param:"quota" validate:"required,numeric"`
	Resource string `param:"resource" validate:"required,irodsname"`
}

type resourceQuota struct {
	Group      string `json:"group"`
	Resource   string `json:"resource"`
	Limit      int64  `json:"limit"`
	Over       int64  `json:"over"`
	ModifiedAt string `json:"modified_at"`
}

type globalQuota struct {
	Group      string `json:"group"`
	Limit      int64  `json:"limit"`
	Over       int64  `json:"over"`
	ModifiedAt string `json:"modified_at"`
}

type quotaStatResponse struct {
	api.Envelope
	ResourceQuotas []resourceQuota `json:"resource_quotas"`
	GlobalQuotas   []globalQuota   `json:"global_quotas"`
}

func (h *Handlers) quotasEndpoint() api.Endpoint {
	return api.Endpoint{
		Name: "quotas",
		Path: "/quotas",
		Get: api.OperationTable{
			"stat": h.statQuotas,
		},
		Post: api.OperationTable{
			"set_group_quota": h.setGroupQuota,
			"recalculate":     h.recalculateQuotas,
		},
	}
}

func (h *Handlers) statQuotas(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := quotaStatRequest{Group: args["group"]}
	if !valid(sess, &req) {
		return
	}

	var filter string
	if req.Group != "" {
		filter = fmt.Sprintf(" and QUOTA_USER_NAME = '%s' and QUOTA_USER_ZONE = '%s'", req.Group, h.cfg.Zone)
	}
	limit := h.cfg.MaxRowsPerQuery

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		rows, err := genQuery(ctx, conn,
			"select QUOTA_USER_NAME, QUOTA_USER_ZONE, QUOTA_RESC_NAME, QUOTA_LIMIT, QUOTA_OVER, QUOTA_MODIFY_TIME where QUOTA_RESC_ID != '0'"+filter,
			limit)
		if err != nil {
			return api.FromError(ctx, err)
		}

		out := quotaStatResponse{ResourceQuotas: []resourceQuota{}, GlobalQuotas: []globalQuota{}}
		for _, row := range rows {
			if len(row) < 6 {
				continue
			}
			q := resourceQuota{Group: row[0], Resource: row[2], ModifiedAt: row[5]}
			if q.Limit, q.Over, err = parseQuota(row[3], row[4]); err != nil {
				return api.FromError(ctx, err)
			}
			out.ResourceQuotas = append(out.ResourceQuotas, q)
		}

		rows, err = genQuery(ctx, conn,
			"select QUOTA_USER_NAME, QUOTA_USER_ZONE, QUOTA_LIMIT, QUOTA_OVER, QUOTA_MODIFY_TIME where QUOTA_RESC_ID = '0'"+filter,
			limit)
		if err != nil {
			return api.FromError(ctx, err)
		}
		for _, row := range rows {
			if len(row) < 5 {
				continue
			}
			q := globalQuota{Group: row[0], ModifiedAt: row[4]}
			if q.Limit, q.Over, err = parseQuota(row[2], row[3]); err != nil {
				return api.FromError(ctx, err)
			}
			out.GlobalQuotas = append(out.GlobalQuotas, q)
		}

		return api.JSON(http.StatusOK, out)
	})
}

func parseQuota(limit, over string) (int64, int64, error) {
	l, err := strconv.ParseInt(limit, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse quota limit %q: %w", limit, err)
	}
	o, err := strconv.ParseInt(over, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse quota over %q: %w", over, err)
	}
	return l, o, nil
}

func (h *Handlers) setGroupQuota(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := setQuotaRequest{Group: args["group"], Quota: args["quota"], Resource: args["resource"]}
	if req.Resource == "" {
		req.Resource = "total"
	}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "set-quota", "group", req.Group, req.Resource, req.Quota)
	})
}

func (h *Handlers) recalculateQuotas(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "calculate-usage")
	})
}
