package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mgpai22/cuesync/internal/caption"
	"github.com/mgpai22/cuesync/internal/subtitle"
)

type sessionResponse struct {
	ID       string  `json:"id"`
	Media    string  `json:"media,omitempty"`
	Duration float64 `json:"duration"`
	HasVideo bool    `json:"hasVideo"`
	Captions int     `json:"captions"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{
		ID:       s.session.ID(),
		Captions: s.session.Len(),
	}
	if m, ok := s.session.Media(); ok {
		resp.Media = m.Name
		resp.Duration = m.Info.Seconds()
		resp.HasVideo = m.Info.HasVideo
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) listCaptions(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"captions": s.session.List()})
}

type addCaptionRequest struct {
	Text      string    `json:"text"`
	StartTime timeField `json:"startTime"`
	EndTime   timeField `json:"endTime"`
}

func (s *Server) addCaption(w http.ResponseWriter, r *http.Request) {
	var req addCaptionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := s.session.Add(req.Text, string(req.StartTime), string(req.EndTime))
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

type updateCaptionRequest struct {
	Text string `json:"text"`
}

func (s *Server) updateCaption(w http.ResponseWriter, r *http.Request) {
	var req updateCaptionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := s.session.Update(caption.ID(chi.URLParam(r, "id")), req.Text)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (s *Server) removeCaption(w http.ResponseWriter, r *http.Request) {
	s.session.Remove(caption.ID(chi.URLParam(r, "id")))
	w.WriteHeader(http.StatusNoContent)
}

type seekRequest struct {
	Time timeField `json:"time"`
}

func (s *Server) seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := caption.ParseSeconds("time", string(req.Time))
	if err != nil {
		WriteErr(w, err)
		return
	}
	s.transport(w, s.session.Seek(t))
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	s.transport(w, s.session.Play(r.Context()))
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	s.transport(w, s.session.Pause())
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	s.transport(w, s.session.Toggle(r.Context()))
}

func (s *Server) jump(w http.ResponseWriter, r *http.Request) {
	s.transport(w, s.session.JumpTo(caption.ID(chi.URLParam(r, "id"))))
}

// transport answers a transport request with the resulting state.
func (s *Server) transport(w http.ResponseWriter, err error) {
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) mark(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]float64{"time": s.session.Mark()})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(subtitle.FormatSRT)
	}
	format, err := subtitle.ParseFormat(name)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "captions"+subtitle.ExtensionFor(format)))
	if err := s.session.Export(w, format); err != nil {
		s.log.Errorw("export failed", "format", format, "error", err)
	}
}

func contentType(format subtitle.Format) string {
	switch format {
	case subtitle.FormatVTT:
		return "text/vtt; charset=utf-8"
	case subtitle.FormatASS:
		return "text/x-ssa; charset=utf-8"
	default:
		return "application/x-subrip; charset=utf-8"
	}
}
