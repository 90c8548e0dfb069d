package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ytget/yt-downloader-web/internal/platform"
)

type folderRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.hub.Sessions(),
	})
}

func (s *Server) handleDefaultPath(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"path": s.downloadDir})
}

// handleSelectFolder opens the native picker on the machine running the
// server. An empty path means the user cancelled.
func (s *Server) handleSelectFolder(c *gin.Context) {
	var req folderRequest
	_ = c.ShouldBindJSON(&req)
	start := req.Path
	if start == "" {
		start = s.downloadDir
	}

	path, err := s.pickFolder(c.Request.Context(), start)
	if err != nil {
		if errors.Is(err, platform.ErrNoDialog) {
			Respond(c, NewUnavailable("no folder dialog available on this system", err))
			return
		}
		Respond(c, NewInternal("folder dialog failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) handleOpenFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Respond(c, NewBadRequest("invalid request body", err))
		return
	}
	if req.Path == "" {
		req.Path = s.downloadDir
	}

	if err := s.openFolder(c.Request.Context(), req.Path); err != nil {
		Respond(c, NewBadRequest("cannot open folder", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleTasks(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		Respond(c, NewBadRequest("session query parameter is required", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": s.downloader.SessionTasks(sessionID)})
}

func (s *Server) handleTask(c *gin.Context) {
	task, ok := s.downloader.GetTask(c.Param("id"))
	if !ok {
		Respond(c, NewNotFound("task not found"))
		return
	}
	c.JSON(http.StatusOK, task)
}
