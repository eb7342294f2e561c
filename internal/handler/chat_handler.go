package handler

import (
	"context"
	"strings"
	"time"

	"sheetpulse/internal/apperr"
	"sheetpulse/internal/entity"
	"sheetpulse/internal/pkg/serverutils"
	"sheetpulse/internal/repository/specification"
	"sheetpulse/internal/repository/unitofwork"
	"sheetpulse/pkg/chatworkflow"
	"sheetpulse/pkg/docstore"
	"sheetpulse/pkg/llm"
	"sheetpulse/pkg/pipeline"
	"sheetpulse/pkg/tools"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const historyWindow = 10

// defaultConversationTitle is the placeholder title CreateConversation
// stores when the caller doesn't supply one; touchConversation replaces it
// with a title derived from the first user message.
const defaultConversationTitle = "New conversation"

const maxTitleLength = 50

// ChatHandler is the thin conversation CRUD surface plus the one endpoint
// that actually drives the agent: posting a message. It owns the
// persistence chatworkflow.Workflow deliberately does not, so the assistant
// message is always saved before chat:message:completed/failed is emitted.
type ChatHandler struct {
	uowFactory unitofwork.RepositoryFactory
	workflow   *chatworkflow.Workflow
}

func NewChatHandler(uowFactory unitofwork.RepositoryFactory, workflow *chatworkflow.Workflow) *ChatHandler {
	return &ChatHandler{uowFactory: uowFactory, workflow: workflow}
}

func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/conversations", serverutils.UserContextMiddleware())
	g.Get("/", h.ListConversations)
	g.Post("/", h.CreateConversation)
	g.Get("/:id/messages", h.ListMessages)
	g.Post("/:id/messages", h.PostMessage)
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	convs, err := uow.ConversationRepository().FindAll(c.Context(),
		specification.ByUserId{UserId: serverutils.UserID(c)},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return err
	}
	return c.JSON(convs)
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
	}
	_ = c.BodyParser(&req)
	if req.Title == "" {
		req.Title = defaultConversationTitle
	}

	conv := &entity.Conversation{
		Id:     uuid.New(),
		UserId: serverutils.UserID(c),
		Title:  req.Title,
		Status: entity.ConversationStatusActive,
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	if err := uow.ConversationRepository().Create(c.Context(), conv); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid conversation id")
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	if _, err := requireOwnedConversation(c, uow, convID); err != nil {
		return err
	}
	msgs, err := uow.MessageRepository().FindByConversationId(c.Context(), convID, 200)
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

// PostMessage persists the user's message, runs the chat workflow against
// the caller's own connections, persists the assistant's reply, and only
// then emits the turn's terminal event — the ordering chatworkflow.Run
// itself leaves to its caller.
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid conversation id")
	}
	var req struct {
		Content string `json:"content" validate:"required"`
	}
	if err := serverutils.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Context()
	userID := serverutils.UserID(c)
	uow := h.uowFactory.NewUnitOfWork(ctx)

	conv, err := requireOwnedConversation(c, uow, convID)
	if err != nil {
		return err
	}

	priorMessages, err := uow.MessageRepository().FindByConversationId(ctx, convID, historyWindow)
	if err != nil {
		return err
	}
	history := toLLMHistory(priorMessages)

	userMsg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: convID,
		Role:           entity.MessageRoleUser,
		Content:        req.Content,
		IsComplete:     true,
	}
	if err := uow.MessageRepository().Create(ctx, userMsg); err != nil {
		return err
	}

	connections, err := uow.ConnectionRepository().FindAll(ctx, specification.ByUserId{UserId: userID})
	if err != nil {
		return err
	}

	var toolset *tools.Toolset
	if len(connections) > 0 {
		toolset = tools.NewToolset(connections, docstore.NewStore(uow.SheetRowRepository()), pipeline.NewValidator())
	}

	out, runErr := h.workflow.Run(ctx, chatworkflow.Input{
		UserID:         userID,
		ConversationID: convID,
		History:        history,
		UserMessage:    req.Content,
		Connections:    connections,
		Toolset:        toolset,
	})
	if runErr != nil {
		h.workflow.EmitFailed(userID, convID, runErr.Error())
		return runErr
	}

	assistantMsg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: convID,
		Role:           entity.MessageRoleAssistant,
		Content:        out.Response,
		Metadata:       entity.MessageMetadata{ToolCalls: toToolCallRecords(out.ToolCalls)},
		IsComplete:     true,
	}
	if err := uow.MessageRepository().Create(ctx, assistantMsg); err != nil {
		h.workflow.EmitFailed(userID, convID, err.Error())
		return err
	}

	touchConversation(ctx, uow, conv, userMsg.Content)
	h.workflow.EmitCompleted(userID, convID, assistantMsg.Id, assistantMsg.Content)

	return c.JSON(assistantMsg)
}

func requireOwnedConversation(c *fiber.Ctx, uow unitofwork.UnitOfWork, convID uuid.UUID) (*entity.Conversation, error) {
	conv, err := uow.ConversationRepository().FindOne(c.Context(), specification.ByID{ID: convID})
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.UserId != serverutils.UserID(c) {
		return nil, apperr.New(apperr.KindNotFound, "conversation not found")
	}
	return conv, nil
}

func touchConversation(ctx context.Context, uow unitofwork.UnitOfWork, conv *entity.Conversation, userContent string) {
	if conv.Title == defaultConversationTitle && conv.MessageCount == 0 {
		conv.Title = titleFromContent(userContent)
	}
	now := time.Now()
	conv.LastMessageAt = &now
	conv.MessageCount += 2 // the user turn and the assistant turn just persisted
	_ = uow.ConversationRepository().Update(ctx, conv)
}

// titleFromContent derives an auto-title from a conversation's first user
// message, truncated to maxTitleLength at a word boundary where possible.
func titleFromContent(content string) string {
	title := strings.TrimSpace(content)
	if title == "" {
		return defaultConversationTitle
	}
	runes := []rune(title)
	if len(runes) > maxTitleLength {
		truncated := string(runes[:maxTitleLength])
		if idx := strings.LastIndex(truncated, " "); idx > 0 {
			truncated = truncated[:idx]
		}
		title = truncated
	}
	return title
}

// toLLMHistory drops tool-role messages: the agent's own tool-call trace
// within one turn never needs to be replayed as conversation history on
// the next turn, only the user-visible exchange does.
func toLLMHistory(messages []*entity.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != entity.MessageRoleUser && m.Role != entity.MessageRoleAssistant {
			continue
		}
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func toToolCallRecords(records []chatworkflow.ToolCallRecord) []entity.ToolCallRecord {
	out := make([]entity.ToolCallRecord, len(records))
	for i, r := range records {
		out[i] = entity.ToolCallRecord{ToolCallId: r.ToolCallID, Name: r.ToolName, Args: r.Arguments, Result: r.Result, Error: r.Error}
	}
	return out
}
