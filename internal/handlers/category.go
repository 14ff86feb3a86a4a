// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers for the bookswap
// category API. Handlers receive their dependencies through the handler
// struct.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookswap/internal/service"
)

// maxBodyBytes caps request bodies; category payloads are tiny.
const maxBodyBytes = 1 << 20

// Categories groups the category HTTP handlers.
type Categories struct {
	svc *service.CategoryService
}

// NewCategories creates the category handlers.
func NewCategories(svc *service.CategoryService) *Categories {
	return &Categories{svc: svc}
}

// List handles GET /api/categories. Malformed page or limit values are
// clamped by the service like missing ones.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.svc.List(r.Context(), service.ListParams{
		Page:     page,
		PageSize: limit,
		Search:   q.Get("search"),
		Shape:    q.Get("shape"),
		Order:    q.Get("sort"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope{Data: result.Data(), Pagination: result.Pagination})
}

// Get handles GET /api/categories/{id}.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Category retrieved successfully", detail)
}

// Path handles GET /api/categories/{id}/path, the root-to-node breadcrumb.
func (h *Categories) Path(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	path, err := h.svc.Breadcrumb(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Category path retrieved successfully", path)
}

// Descendants handles GET /api/categories/{id}/descendants. Clients use it
// to hide invalid parent choices when moving a category.
func (h *Categories) Descendants(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	ids, err := h.svc.Descendants(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Category descendants retrieved successfully", ids)
}

// Create handles POST /api/categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Category created successfully", created)
}

// Update handles PUT /api/categories/{id}.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in service.UpdateInput
	if !decodeBody(w, r, &in) {
		return
	}
	updated, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Category updated successfully", updated)
}

// SetStatus handles PATCH /api/categories/{id}/status.
func (h *Categories) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var body struct {
		Published *bool `json:"published"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Published == nil {
		writeValidation(w, "published", "published is required")
		return
	}
	updated, err := h.svc.SetPublished(r.Context(), id, *body.Published)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Category status updated successfully", updated)
}

// Delete handles DELETE /api/categories/{id}.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Category deleted successfully", nil)
}

// parseID reads the {id} URL parameter. It writes a 400 and returns false
// when the id is not a positive integer.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeValidation(w, "id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON request body into dst. It writes a 400 and
// returns false for malformed JSON or mistyped fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		writeValidation(w, typeErr.Field, "must be of type "+typeErr.Type.String())
	case errors.Is(err, io.EOF):
		writeValidation(w, "body", "request body is required")
	default:
		writeValidation(w, "body", "request body must be valid JSON")
	}
	return false
}
