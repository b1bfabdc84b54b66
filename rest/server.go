// Copyright 2026 The Mcpvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rest serves the server registry and the projected client
// configurations over HTTP.  The API is read only.  The registry is loaded
// again for every request, so edits to the registry file show up without
// restarting the server.
package rest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gdamore/mcpvisor"
)

// Loader returns a freshly loaded registry.
type Loader func() (*mcpvisor.Registry, error)

// Handler adds http.Handler functionality to a registry.
type Handler struct {
	load Loader
	proj *mcpvisor.Projector
	r    *mux.Router
}

var errNotFound = &Error{http.StatusNotFound, "Server not found"}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

func (h *Handler) registry(w http.ResponseWriter) *mcpvisor.Registry {
	reg, e := h.load()
	if e != nil {
		h.writeError(w, &Error{http.StatusInternalServerError, e.Error()})
		return nil
	}
	return reg
}

func (h *Handler) listServers(w http.ResponseWriter, r *http.Request) {
	if reg := h.registry(w); reg != nil {
		h.writeJson(w, reg.Names())
	}
}

func (h *Handler) getServer(w http.ResponseWriter, r *http.Request) {
	reg := h.registry(w)
	if reg == nil {
		return
	}
	name := mux.Vars(r)["server"]
	d, e := reg.Lookup(name)
	if e != nil {
		h.writeError(w, errNotFound)
		return
	}
	inv := d.Invocation(h.proj.ServersRoot)
	info := &ServerInfo{
		Name:        d.Name,
		Description: d.Description,
		Kind:        d.Kind.String(),
		Internal:    d.Internal,
		Fetched:     mcpvisor.Fetched(d.ServerDir(h.proj.ServersRoot)),
		Runtime:     mcpvisor.Detect(d.ServerDir(h.proj.ServersRoot)).String(),
		Command:     inv.Command,
		Args:        inv.Args,
	}
	h.writeJson(w, info)
}

func etag(b []byte) string {
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	reg := h.registry(w)
	if reg == nil {
		return
	}
	doc, e := h.proj.Project(reg, mux.Vars(r)["target"])
	if errors.Is(e, mcpvisor.ErrUnsupportedClient) {
		h.writeError(w, &Error{http.StatusNotFound, e.Error()})
		return
	} else if e != nil {
		h.internalError(w, e)
		return
	}
	b, e := doc.Encode()
	if e != nil {
		h.internalError(w, e)
		return
	}
	tag := etag(b)
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", mimeJson)
	w.Write(b)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

// NewHandler returns a Handler serving registries obtained from load.
// LocalScript entry points are resolved beneath serversRoot.
func NewHandler(load Loader, serversRoot string) *Handler {
	r := mux.NewRouter()
	h := &Handler{
		load: load,
		proj: &mcpvisor.Projector{ServersRoot: serversRoot},
		r:    r,
	}
	r.HandleFunc("/servers", h.listServers).Methods("GET")
	r.HandleFunc("/servers/{server}", h.getServer).Methods("GET")
	r.HandleFunc("/configs/{target}", h.getConfig).Methods("GET")
	return h
}
