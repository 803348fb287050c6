package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/health-consult-server/internal/domain"
)

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// handlePostMessage appends a user message to a conversation and returns the
// assistant's reply. Both messages are persisted.
func (s *Server) handlePostMessage(c *gin.Context) {
	conversationID, ok := s.pathUUID(c, "id")
	if !ok {
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	if _, err := s.convos.GetConversation(c.Request.Context(), conversationID.String()); err != nil {
		s.writeError(c, err, "conversation")
		return
	}

	userMsg := &domain.ConversationMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         domain.SenderUser,
		Content:        req.Content,
		CreatedAt:      time.Now(),
	}
	if err := s.convos.AddMessage(c.Request.Context(), userMsg); err != nil {
		s.writeError(c, err, "message")
		return
	}

	reply := s.assistant.Reply(c.Request.Context(), req.Content)

	assistantMsg := &domain.ConversationMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         domain.SenderAssistant,
		Content:        reply,
		CreatedAt:      time.Now(),
	}
	if err := s.convos.AddMessage(c.Request.Context(), assistantMsg); err != nil {
		s.writeError(c, err, "message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_message":      toMessageResponse(userMsg),
		"assistant_message": toMessageResponse(assistantMsg),
	})
}

// handleListMessages returns the messages of a conversation in creation order.
func (s *Server) handleListMessages(c *gin.Context) {
	conversationID, ok := s.pathUUID(c, "id")
	if !ok {
		return
	}

	messages, err := s.convos.ListMessages(c.Request.Context(), conversationID.String())
	if err != nil {
		s.writeError(c, err, "conversation")
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, toMessageResponse(&messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// handleAnalyzeConversation runs the symptom/disease analysis over a
// conversation without generating a report.
func (s *Server) handleAnalyzeConversation(c *gin.Context) {
	conversationID, ok := s.pathUUID(c, "id")
	if !ok {
		return
	}

	if _, err := s.convos.GetConversation(c.Request.Context(), conversationID.String()); err != nil {
		s.writeError(c, err, "conversation")
		return
	}

	result, err := s.analyzer.AnalyzeConversation(c.Request.Context(), conversationID.String())
	if err != nil {
		s.writeError(c, err, "analysis")
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleCreateReport generates and stores a report for a conversation.
func (s *Server) handleCreateReport(c *gin.Context) {
	conversationID, ok := s.pathUUID(c, "id")
	if !ok {
		return
	}

	report, err := s.reports.CreateReport(c.Request.Context(), conversationID.String())
	if err != nil {
		s.writeError(c, err, "conversation")
		return
	}

	c.JSON(http.StatusCreated, report)
}

// handleListReports returns the reports generated for a conversation.
func (s *Server) handleListReports(c *gin.Context) {
	conversationID, ok := s.pathUUID(c, "id")
	if !ok {
		return
	}

	reports, err := s.reports.ListReports(c.Request.Context(), conversationID.String())
	if err != nil {
		s.writeError(c, err, "conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// handleGetReport returns a single report by ID.
func (s *Server) handleGetReport(c *gin.Context) {
	reportID, ok := s.pathUUID(c, "id")
	if !ok {
		return
	}

	report, err := s.reports.GetReport(c.Request.Context(), reportID.String())
	if err != nil {
		s.writeError(c, err, "report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleGreeting returns a personalized greeting for a user.
func (s *Server) handleGreeting(c *gin.Context) {
	userID, ok := s.pathUUID(c, "id")
	if !ok {
		return
	}

	profile, err := s.profiles.GetProfile(c.Request.Context(), userID.String())
	if err != nil {
		s.writeError(c, err, "user")
		return
	}

	greeting := s.assistant.Greet(c.Request.Context(), profile)
	c.JSON(http.StatusOK, gin.H{"greeting": greeting})
}

// pathUUID parses a UUID path parameter, responding 400 on failure.
func (s *Server) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps storage errors to HTTP responses.
func (s *Server) writeError(c *gin.Context, err error, entity string) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
		return
	}

	s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func toMessageResponse(msg *domain.ConversationMessage) messageResponse {
	return messageResponse{
		ID:        msg.ID.String(),
		Sender:    string(msg.Sender),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
