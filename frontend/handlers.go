// Copyright 2025 The Skydash Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package frontend exposes the dashboard core over JSON HTTP endpoints: log
// ingestion and viewing, cached status views, and the application console
// data path. Rendering is somebody else's job; everything here is data.
package frontend

import (
	"encoding/json"
	"net/http"
	"time"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/server/router"

	"go.skydash.dev/skydash/internal/acl"
	"go.skydash.dev/skydash/internal/apps"
	"go.skydash.dev/skydash/internal/logs"
	"go.skydash.dev/skydash/internal/model"
	"go.skydash.dev/skydash/internal/status"
)

// Handlers bundles the collaborators the endpoints need.
type Handlers struct {
	Store     *logs.Store
	Cache     *status.Cache
	Refresher *status.Refresher
	Auth      acl.Authorizer
}

// InstallHandlers wires the dashboard endpoints into the router.
func InstallHandlers(r *router.Router, mw router.MiddlewareChain, h *Handlers) {
	r.POST("/logs/upload", mw, h.uploadLogs)
	r.GET("/logs", mw, h.listServices)
	r.GET("/logs/:service", mw, h.listHosts)
	r.GET("/logs/:service/:host", mw, h.viewLogs)

	r.GET("/status/json", mw, h.statusJSON)
	r.POST("/status/refresh", mw, h.triggerRefresh)

	r.GET("/apps/json", mw, h.appsJSON)
	r.POST("/apps/delete", mw, h.deleteApp)
	r.GET("/apps/console/:appID", mw, h.requestHistory)
	r.POST("/apps/console/:appID", mw, h.recordRequestInfo)
}

type logLine struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
	Level     int64  `json:"level"`
}

type uploadRequest struct {
	ServiceName string    `json:"service_name"`
	Host        string    `json:"host"`
	Logs        []logLine `json:"logs"`
}

// uploadLogs ingests a batch of log lines for one (service, host).
func (h *Handlers) uploadLogs(c *router.Context) {
	ctx := c.Request.Context()

	var req uploadRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		writeError(c, http.StatusBadRequest, "malformed upload payload")
		return
	}
	if req.ServiceName == "" || req.Host == "" {
		writeError(c, http.StatusBadRequest, "service_name and host are required")
		return
	}

	entries := make([]logs.Entry, len(req.Logs))
	for i, l := range req.Logs {
		entries[i] = logs.Entry{
			Timestamp: time.Unix(l.Timestamp, 0).UTC(),
			Message:   l.Message,
			Level:     l.Level,
		}
	}
	if err := h.Store.Append(ctx, req.ServiceName, req.Host, entries); err != nil {
		logging.Errorf(ctx, "Appending %d log entries for %q on %q: %s", len(entries), req.ServiceName, req.Host, err)
		if transient.Tag.In(err) {
			writeError(c, http.StatusServiceUnavailable, "storage unavailable, retry the batch")
		} else {
			writeError(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(c, map[string]bool{"success": true})
}

// listServices returns the service names the caller may view.
func (h *Handlers) listServices(c *router.Context) {
	ctx := c.Request.Context()

	names, err := h.Store.ListServices(ctx)
	if err == nil {
		names, err = acl.FilterServices(ctx, h.Auth, names)
	}
	if err != nil {
		logging.Errorf(ctx, "Listing services: %s", err)
		writeError(c, http.StatusInternalServerError, "failed to list services")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(c, map[string][]string{"services": names})
}

// listHosts returns the hosts that have reported logs for a service.
func (h *Handlers) listHosts(c *router.Context) {
	ctx := c.Request.Context()
	service := c.Params.ByName("service")

	if !h.checkCanView(c, service) {
		return
	}
	hosts, err := h.Store.ListHosts(ctx, service)
	if err != nil {
		logging.Errorf(ctx, "Listing hosts of %q: %s", service, err)
		writeError(c, http.StatusInternalServerError, "failed to list hosts")
		return
	}
	if hosts == nil {
		hosts = []string{}
	}
	writeJSON(c, map[string]any{
		"service_name": service,
		"exists":       len(hosts) > 0,
		"hosts":        hosts,
	})
}

type logRecord struct {
	ServiceName string    `json:"service_name"`
	Host        string    `json:"host"`
	Logs        []logLine `json:"logs"`
}

type viewResponse struct {
	Records    []logRecord `json:"records"`
	NextCursor string      `json:"next_cursor,omitempty"`
	IsMore     bool        `json:"is_more"`
}

// viewLogs serves one page of log records, newest first. Host "all" lifts
// the host filter. The cursor is opaque; resubmit it verbatim for the next
// page.
func (h *Handlers) viewLogs(c *router.Context) {
	ctx := c.Request.Context()
	service := c.Params.ByName("service")
	host := c.Params.ByName("host")

	if !h.checkCanView(c, service) {
		return
	}

	cursor := c.Request.URL.Query().Get("next_cursor")
	page, err := h.Store.QueryPage(ctx, service, host, logs.DefaultPageSize, cursor)
	switch {
	case err == logs.ErrCursorExpired:
		writeJSONStatus(c, http.StatusBadRequest, map[string]any{"error": err.Error(), "restart": true})
		return
	case err != nil:
		logging.Errorf(ctx, "Querying logs of %q on %q: %s", service, host, err)
		writeError(c, http.StatusInternalServerError, "failed to query logs")
		return
	}

	resp := viewResponse{
		Records:    make([]logRecord, len(page.Records)),
		NextCursor: page.NextCursor,
		IsMore:     page.HasMore,
	}
	for i, rec := range page.Records {
		out := logRecord{
			ServiceName: rec.ServiceName,
			Host:        rec.Host,
			Logs:        make([]logLine, len(rec.AppLogs)),
		}
		for j, l := range rec.AppLogs {
			out.Logs[j] = logLine{
				Timestamp: l.Timestamp.Unix(),
				Message:   l.Message,
				Level:     l.Level,
			}
		}
		resp.Records[i] = out
	}
	writeJSON(c, &resp)
}

// statusJSON serves the cached fleet status snapshot. An empty snapshot means
// no refresh cycle has completed yet.
func (h *Handlers) statusJSON(c *router.Context) {
	snap := h.Cache.Get()
	if snap == nil {
		snap = &status.Snapshot{}
	}
	writeJSON(c, snap)
}

// appsJSON serves the application portion of the cached snapshot.
func (h *Handlers) appsJSON(c *router.Context) {
	apps := map[string]string{}
	var updated time.Time
	if snap := h.Cache.Get(); snap != nil {
		if snap.Apps != nil {
			apps = snap.Apps
		}
		updated = snap.Updated
	}
	writeJSON(c, map[string]any{"apps": apps, "updated": updated})
}

// triggerRefresh asks the refresher for a new snapshot. Idempotent: redundant
// triggers coalesce.
func (h *Handlers) triggerRefresh(c *router.Context) {
	h.Refresher.Trigger()
	writeJSON(c, map[string]bool{"success": true})
}

// deleteApp removes an application's console data and kicks off a refresh,
// with the usual delayed catch-up cycle. The application binary itself is
// removed by the external deployment tooling.
func (h *Handlers) deleteApp(c *router.Context) {
	ctx := c.Request.Context()

	var req struct {
		AppName string `json:"appname"`
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil || req.AppName == "" {
		writeError(c, http.StatusBadRequest, "appname is required")
		return
	}
	if !h.checkCanView(c, req.AppName) {
		return
	}
	if err := apps.Remove(ctx, req.AppName); err != nil {
		logging.Errorf(ctx, "Deleting console data of %q: %s", req.AppName, err)
		writeError(c, http.StatusInternalServerError, "failed to delete application data")
		return
	}
	h.Refresher.Trigger()
	writeJSON(c, map[string]bool{"success": true})
}

type requestPoint struct {
	Timestamp   int64   `json:"timestamp"`
	RequestRate float64 `json:"request_rate"`
}

// recordRequestInfo ingests one request-rate sample from the telemetry
// reporter.
func (h *Handlers) recordRequestInfo(c *router.Context) {
	ctx := c.Request.Context()
	appID := c.Params.ByName("appID")

	var req requestPoint
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		writeError(c, http.StatusBadRequest, "malformed request info payload")
		return
	}
	p := model.RequestPoint{
		Timestamp: time.Unix(req.Timestamp, 0).UTC(),
		Rate:      req.RequestRate,
	}
	if err := apps.Record(ctx, appID, p); err != nil {
		logging.Errorf(ctx, "Recording request info for %q: %s", appID, err)
		writeError(c, http.StatusInternalServerError, "failed to record request info")
		return
	}
	writeJSON(c, map[string]bool{"success": true})
}

// requestHistory returns the application's request-rate series for its
// console.
func (h *Handlers) requestHistory(c *router.Context) {
	ctx := c.Request.Context()
	appID := c.Params.ByName("appID")

	if !h.checkCanView(c, appID) {
		return
	}
	hist, err := apps.History(ctx, appID)
	if err != nil {
		logging.Errorf(ctx, "Fetching request info for %q: %s", appID, err)
		writeError(c, http.StatusInternalServerError, "failed to fetch request info")
		return
	}
	out := make([]requestPoint, len(hist))
	for i, p := range hist {
		out[i] = requestPoint{Timestamp: p.Timestamp.Unix(), RequestRate: p.Rate}
	}
	writeJSON(c, map[string]any{"app_id": appID, "requests": out})
}

// checkCanView writes a 403 and returns false if the caller may not view the
// service. Admins may view everything.
func (h *Handlers) checkCanView(c *router.Context, service string) bool {
	ctx := c.Request.Context()
	switch ok, err := acl.CanView(ctx, h.Auth, service); {
	case err != nil:
		logging.Errorf(ctx, "Checking access to %q: %s", service, err)
		writeError(c, http.StatusInternalServerError, "failed to check access")
		return false
	case !ok:
		writeError(c, http.StatusForbidden, "no access to this service")
		return false
	}
	return true
}

func writeJSON(c *router.Context, v any) {
	writeJSONStatus(c, http.StatusOK, v)
}

func writeError(c *router.Context, code int, msg string) {
	writeJSONStatus(c, code, map[string]string{"error": msg})
}

func writeJSONStatus(c *router.Context, code int, v any) {
	c.Writer.Header().Set("Content-Type", "application/json")
	c.Writer.WriteHeader(code)
	if err := json.NewEncoder(c.Writer).Encode(v); err != nil {
		logging.Errorf(c.Request.Context(), "Writing JSON response: %s", err)
	}
}
