package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/m2tx/manualchat/internal/model"
	"go.uber.org/zap"
)

type selectDocumentRequest struct {
	Document string `json:"document"`
}

type messageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleError(c *gin.Context, err error) {
	s.logger.Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("kind", string(model.KindOf(err))),
		zap.Error(err),
	)
	writeError(c, err)
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.chat.Documents()
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"session_id": s.chat.NewSession()})
}

func (s *Server) selectDocument(c *gin.Context) {
	var req selectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, model.NewError(model.KindInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.Document) == "" {
		s.handleError(c, model.Errorf(model.KindInvalidInput, "document is required"))
		return
	}

	cc, err := s.chat.SelectDocument(c.Request.Context(), c.Param("id"), apiKey(c), req.Document)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, cc)
}

func (s *Server) cacheStatus(c *gin.Context) {
	cc, err := s.chat.ContextStatus(c.Request.Context(), c.Param("id"), apiKey(c))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, cc)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, model.NewError(model.KindInvalidInput, err))
		return
	}

	turn, err := s.chat.Send(c.Request.Context(), c.Param("id"), apiKey(c), req.Message)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, turn)
}

func (s *Server) transcript(c *gin.Context) {
	snap, err := s.chat.GetSession(c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, snap)
}

func (s *Server) resetSession(c *gin.Context) {
	if err := s.chat.ResetSession(c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteSession(c *gin.Context) {
	s.chat.ClearSession(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}
