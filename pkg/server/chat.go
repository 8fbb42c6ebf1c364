package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"yaari/pkg/demux"
	"yaari/pkg/prompt"
	"yaari/pkg/schema"
	"yaari/pkg/store"
)

// Synthetic user-turn text for skip turns, mirroring what the original
// client sent in place of a real message.
const (
	skipMessage            = "[System: User skipped. Continue conversation among AI profiles.]"
	skipMessageUnavailable = "[System: User seems unavailable or away. Continue the conversation among AI profiles without repeating the same lines or ideas. Introduce new topics or perspectives to keep it fresh and engaging.]"
)

type chatRequest struct {
	Character     schema.Character   `json:"character"`
	UserProfile   schema.UserProfile `json:"userProfile"`
	Messages      []schema.Message   `json:"messages"`
	LatestMessage schema.Message     `json:"latestMessage"`
}

type groupChatRequest struct {
	GroupID          string             `json:"groupId,omitempty"`
	ActiveCharacters []schema.Character `json:"activeCharacters"`
	UserProfile      schema.UserProfile `json:"userProfile"`
	UpdatedMessages  []schema.Message   `json:"updatedMessages"`
	LatestMessage    schema.Message     `json:"latestMessage"`
	ConsecutiveSkips int                `json:"consecutiveSkips"`
	Skip             bool               `json:"skip,omitempty"`
}

// streamWriter returns an onChunk callback that writes each fragment to the
// response and flushes it immediately. The response is plain chunked text:
// no JSON envelope, and failures surface as apology text, never as a status.
func streamWriter(c echo.Context) func(string) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	res.WriteHeader(http.StatusOK)

	return func(chunk string) error {
		if _, err := io.WriteString(res, chunk); err != nil {
			return err
		}
		res.Flush()
		return nil
	}
}

// historyOf drops the in-flight message from the transcript if the caller
// included it as the last element.
func historyOf(messages []schema.Message, latest schema.Message) []schema.Message {
	if n := len(messages); n > 0 && messages[n-1].ID == latest.ID {
		return messages[:n-1]
	}
	return messages
}

// POST /api/chat
func (s *Server) handlePostChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if strings.TrimSpace(req.LatestMessage.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty message")
	}

	sess := s.Sessions.Get(req.Character.ID)
	if !sess.Begin() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight for this chat")
	}
	defer sess.End()

	ctx := c.Request().Context()
	history := historyOf(req.Messages, req.LatestMessage)

	final := s.Relay.Chat(ctx, req.Character, req.UserProfile, history, req.LatestMessage.Text, streamWriter(c))

	if ctx.Err() == nil && final != "" {
		s.appendChat(req.Character.ID, req.LatestMessage, final)
	}
	return nil
}

// appendChat records a completed one-on-one exchange on the stored roster
// character, if the chat belongs to one.
func (s *Server) appendChat(characterID string, userMsg schema.Message, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.characters {
		if s.characters[i].ID != characterID {
			continue
		}
		s.characters[i].Messages = append(s.characters[i].Messages,
			userMsg,
			schema.NewMessage(characterID, reply),
		)
		s.Store.Put(store.KeyCharacters, s.characters)
		return
	}
}

// POST /api/group-chat
func (s *Server) handlePostGroupChat(c echo.Context) error {
	var req groupChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if len(req.ActiveCharacters) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no active characters")
	}

	chatID := req.GroupID
	if chatID == "" {
		ids := make([]string, 0, len(req.ActiveCharacters))
		for _, ch := range req.ActiveCharacters {
			ids = append(ids, ch.ID)
		}
		chatID = strings.Join(ids, "+")
	}

	sess := s.Sessions.Get(chatID)
	if !sess.Begin() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight for this chat")
	}
	defer sess.End()

	// Skip bookkeeping: a skip advances the counter, a real message resets
	// it. A client that counts for itself sends consecutiveSkips directly.
	skips := req.ConsecutiveSkips
	latest := req.LatestMessage
	if req.Skip {
		counted := sess.Tracker.RecordSkip()
		if skips <= 0 {
			skips = counted
		}
		if latest.Text == "" {
			if skips >= prompt.SkipThreshold {
				latest.Text = skipMessageUnavailable
			} else {
				latest.Text = skipMessage
			}
		}
	} else {
		sess.Tracker.RecordRealMessage()
		if strings.TrimSpace(latest.Text) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "empty message")
		}
	}

	ctx := c.Request().Context()
	history := historyOf(req.UpdatedMessages, latest)

	final := s.Relay.GroupChat(ctx, req.ActiveCharacters, req.UserProfile, history, latest.Text, skips, streamWriter(c))

	// The server is the canonical demux location: the raw text already went
	// out on the wire for incremental display, and the attributed messages
	// land in the stored transcript here.
	if ctx.Err() == nil && final != "" {
		finalized := demux.Demux(final, req.ActiveCharacters)
		s.appendGroupChat(req.GroupID, latest, req.Skip, finalized)
	}
	return nil
}

// appendGroupChat records a completed group exchange on the stored group.
// Skip turns contribute only the characters' messages, not the synthetic one.
func (s *Server) appendGroupChat(groupID string, userMsg schema.Message, skipped bool, finalized []schema.Message) {
	if groupID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		if s.groups[i].ID != groupID {
			continue
		}
		if !skipped {
			s.groups[i].Messages = append(s.groups[i].Messages, userMsg)
		}
		s.groups[i].Messages = append(s.groups[i].Messages, finalized...)
		s.Store.Put(store.KeyGroups, s.groups)
		return
	}
}
