package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ytget/yt-downloader-web/internal/download"
	"github.com/ytget/yt-downloader-web/internal/model"
)

// Inbound command names
const (
	CommandFetchMetadata = "fetch_metadata"
	CommandStartDownload = "start_download"
	CommandCancel        = "cancel"
)

const maxMessageSize = 64 * 1024

// Command is one inbound websocket message
type Command struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type fetchMetadataData struct {
	URL string `json:"url"`
}

type startDownloadData struct {
	URL        string `json:"url"`
	Path       string `json:"path"`
	Resolution any    `json:"resolution"`
	Indices    []int  `json:"indices"`
}

// handleWS upgrades the connection and serves one session until it closes
func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	sessionID := uuid.NewString()
	logger := s.logger.With("session", sessionID)
	s.hub.Register(sessionID, conn)
	logger.Info("client connected", "remote", c.ClientIP())

	defer func() {
		s.hub.Unregister(sessionID)
		if n := s.downloader.CancelSession(sessionID); n > 0 {
			logger.Info("cancelled batches of disconnected client", "count", n)
		}
		_ = conn.Close()
		logger.Info("client disconnected")
	}()

	if err := s.hub.Emit(sessionID, model.SessionEvent{ID: sessionID}); err != nil {
		logger.Warn("failed to send session id", "error", err)
		return
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Debug("read failed", "error", err)
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.reject(sessionID, "", "malformed message")
				continue
			}
			return
		}

		if err := s.dispatch(sessionID, cmd); err != nil {
			logger.Warn("command rejected", "command", cmd.Event, "error", err)
			s.reject(sessionID, cmd.Event, err.Error())
		}
	}
}

func (s *Server) dispatch(sessionID string, cmd Command) error {
	switch cmd.Event {
	case CommandFetchMetadata:
		var data fetchMetadataData
		if err := decodeData(cmd.Data, &data); err != nil {
			return err
		}
		s.downloader.ResolveMetadata(sessionID, data.URL)
		return nil

	case CommandStartDownload:
		var data startDownloadData
		if err := decodeData(cmd.Data, &data); err != nil {
			return err
		}
		task, err := s.downloader.StartDownload(sessionID, model.DownloadRequest{
			URL:          data.URL,
			OutputFolder: data.Path,
			Resolution:   resolutionString(data.Resolution),
			Indices:      data.Indices,
		})
		if err != nil {
			if errors.Is(err, download.ErrEmptyURL) {
				return errors.New("URL is required")
			}
			return err
		}
		s.logger.Debug("batch accepted", "session", sessionID, "batch", task.ID)
		return nil

	case CommandCancel:
		s.downloader.CancelSession(sessionID)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd.Event)
	}
}

func (s *Server) reject(sessionID, command, message string) {
	if err := s.hub.Emit(sessionID, model.RejectedEvent{Command: command, Message: message}); err != nil {
		s.logger.Debug("rejection dropped", "session", sessionID, "error", err)
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	return nil
}

// resolutionString accepts the resolution as a JSON string or number
func resolutionString(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64)
	default:
		return ""
	}
}
