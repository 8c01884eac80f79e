package http

import (
	"net/http"
	"strconv"
	"strings"

	"keshi/internal/services"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := services.ListRecordsQuery{
		Search:    sanitizeInput(q.Get("search")),
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			query.Page = page
		}
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			query.PageSize = limit
		}
	}

	page, err := s.records.List(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req services.CreateRecordInput
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	req.CourseName = sanitizeInput(req.CourseName)
	req.Grade = sanitizeInput(req.Grade)
	req.Notes = sanitizeInput(req.Notes)

	rec, err := s.records.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
