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

// Package model holds the datastore entities shared by the dashboard core.
package model

import (
	"time"

	"go.chromium.org/luci/gae/service/datastore"
)

// LoggedService tracks which hosts have ever reported logs for a service.
//
// The entity ID is the logical service name. Created implicitly by the first
// log upload that names the service; this core never deletes it. Hosts is a
// set maintained by idempotent union.
type LoggedService struct {
	_kind string `gae:"$kind,LoggedService"`

	Name  string   `gae:"$id"`
	Hosts []string `gae:"hosts"`

	_extra datastore.PropertyMap `gae:"-,extra"`
}

// AppLogLine is a single application log line inside a RequestLogLine.
type AppLogLine struct {
	Message   string    `gae:"message,noindex"`
	Level     int64     `gae:"level"`
	Timestamp time.Time `gae:"timestamp"`
}

// RequestLogLine holds all application log lines generated during one web
// request (or equivalent unit of work) on one host for one service.
//
// The entity ID is service + host + the reversed-timestamp fragment of the
// request time (see the timekey package), so a key-ordered scan returns
// newest records first. Re-uploading the same (service, host, second)
// appends to AppLogs rather than creating a duplicate record; AppLogs is
// append-only and insertion-ordered.
type RequestLogLine struct {
	_kind string `gae:"$kind,RequestLogLine"`

	ID          string       `gae:"$id"`
	ServiceName string       `gae:"service_name"`
	Host        string       `gae:"host"`
	AppLogs     []AppLogLine `gae:"app_logs,lsp"`

	_extra datastore.PropertyMap `gae:"-,extra"`
}
