package web

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"thirdcoast.systems/clipforge/internal/captions"
	"thirdcoast.systems/clipforge/internal/jobs"
	"thirdcoast.systems/clipforge/internal/pubsub"
)

var validate = validator.New()

type createRequest struct {
	URL      string   `json:"url" validate:"required,url"`
	Duration float64  `json:"duration" validate:"omitempty,gt=0,lte=180"`
	Start    *float64 `json:"start"`
	End      *float64 `json:"end"`
}

type createResponse struct {
	JobID     string `json:"job_id"`
	Anonymous bool   `json:"anonymous"`
}

func (s *Webserver) handleCreate(c echo.Context) error {
	id, err := s.identify(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session error")
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	jobID, err := s.orch.Create(c.Request().Context(), id, jobs.Request{
		URL:      req.URL,
		Duration: req.Duration,
		Start:    req.Start,
		End:      req.End,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusAccepted, createResponse{JobID: jobID, Anonymous: id.Anonymous()})
}

func (s *Webserver) handleQuery(c echo.Context) error {
	id, err := s.identify(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session error")
	}

	snap, err := s.orch.Query(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.withURLs(snap))
}

type updateCaptionsRequest struct {
	Captions []captions.Edit `json:"captions" validate:"required"`
}

func (s *Webserver) handleUpdateCaptions(c echo.Context) error {
	id, err := s.identify(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session error")
	}

	var req updateCaptionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := s.orch.UpdateCaptions(c.Request().Context(), id, c.Param("id"), req.Captions); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"regen_job_id": c.Param("id")})
}

func (s *Webserver) handleRefresh(c echo.Context) error {
	id, err := s.identify(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session error")
	}

	snap, buster, err := s.orch.Refresh(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	resp := s.withURLs(snap)
	if resp.FinalURL != "" {
		resp.FinalURL += "?v=" + buster
	}
	return c.JSON(http.StatusOK, resp)
}

// handleStream pushes job progress over SSE until the job finishes or the
// client disconnects. Late joiners should pair this with a query; the stream
// only carries events from subscription onward.
func (s *Webserver) handleStream(c echo.Context) error {
	id, err := s.identify(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session error")
	}

	jobID := c.Param("id")
	// Authorize before subscribing.
	if _, err := s.orch.Query(c.Request().Context(), id, jobID); err != nil {
		return httpError(err)
	}

	events, cancelSub := s.hub.Subscribe(jobID)
	defer cancelSub()

	c.Response().Header().Set("X-Accel-Buffering", "no")
	sse := datastar.NewSSE(c.Response().Writer, c.Request())

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(map[string]any{"clipProgress": ev})
			if err != nil {
				continue
			}
			if err := sse.PatchSignals(payload); err != nil {
				return nil
			}
			switch ev.Kind {
			case pubsub.KindComplete, pubsub.KindError,
				pubsub.KindRegenDone, pubsub.KindRegenError:
				return nil
			}
		}
	}
}

// handleClipFile serves finished clips for preview, constrained to the clips
// directory.
func (s *Webserver) handleClipFile(c echo.Context) error {
	name := filepath.Base(c.Param("file"))
	if name == "" || strings.HasPrefix(name, ".") {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return c.File(filepath.Join(s.clipsDir, name))
}

// snapshotResponse augments a job snapshot with the clip's public URLs.
type snapshotResponse struct {
	jobs.Snapshot
	FinalURL string `json:"final_url,omitempty"`
}

func (s *Webserver) withURLs(snap jobs.Snapshot) snapshotResponse {
	resp := snapshotResponse{Snapshot: snap}
	if snap.FinalPath != "" {
		resp.FinalURL = "/clips/" + filepath.Base(snap.FinalPath)
	}
	// Never expose filesystem paths to clients.
	resp.FinalPath = ""
	resp.SubtitlePath = ""
	return resp
}
