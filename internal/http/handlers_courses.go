package http

import (
	"net/http"
)

type courseRequest struct {
	Name  string `json:"name"`
	Grade string `json:"grade"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.courses.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	course, err := s.courses.Create(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Grade))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.courses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleRenameCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	course, err := s.courses.Rename(r.Context(), r.PathValue("id"), sanitizeInput(req.Name), sanitizeInput(req.Grade))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := s.courses.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
