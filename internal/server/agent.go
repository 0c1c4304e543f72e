package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/llm"
	"github.com/seekspace/seekd/internal/workflow"
	"github.com/seekspace/seekd/pkg/version"
)

func (s *Server) handleExecuteTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Template   string         `json:"template"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Template == "" {
		s.writeError(w, r, seekerrors.InvalidInput("template name must not be empty"))
		return
	}

	wf, err := s.templates.Get(body.Template)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	exec, err := s.workflows.Execute(r.Context(), wf, body.Parameters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Workflow   *workflow.Workflow `json:"workflow"`
		Parameters map[string]any     `json:"parameters"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Workflow == nil {
		s.writeError(w, r, seekerrors.InvalidInput("workflow must not be empty"))
		return
	}

	exec, err := s.workflows.Execute(r.Context(), body.Workflow, body.Parameters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.templates.List()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"total":     len(templates),
	})
}

// handleRegisterTemplate accepts a template definition as YAML (the native
// template format) or as a JSON workflow object.
func (s *Server) handleRegisterTemplate(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "yaml") || strings.Contains(contentType, "text/plain") {
		data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			s.writeError(w, r, seekerrors.InvalidInput("read template body: %v", err))
			return
		}
		wf, err := s.templates.RegisterYAML(data)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, wf)
		return
	}

	var wf workflow.Workflow
	if err := decodeJSON(r, &wf); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.templates.Register(&wf); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &wf)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	wf, err := s.templates.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	infos := s.skills.List()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"skills": infos,
		"total":  len(infos),
	})
}

// handleExecuteSkill runs one skill directly, outside any workflow. Input
// schema mismatches surface as 422.
func (s *Server) handleExecuteSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := s.skills.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body struct {
		Input map[string]any `json:"input"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	output, err := sk.Execute(r.Context(), body.Input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"skill":  sk.Info().Name,
		"output": output,
	})
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := s.skills.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sk.Info())
}

func (s *Server) handleAgentInfo(w http.ResponseWriter, r *http.Request) {
	llmInfo := llm.Info{}
	if s.session != nil {
		llmInfo = s.session.Describe()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"version":   version.Version,
		"llm":       llmInfo,
		"skills":    len(s.skills.List()),
		"templates": len(s.templates.List()),
	})
}

func (s *Server) handleAgentHealth(w http.ResponseWriter, r *http.Request) {
	ready := s.session != nil && s.session.Describe().Ready
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"llm_ready": ready,
	})
}
