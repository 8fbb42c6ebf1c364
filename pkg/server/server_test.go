package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yaari/pkg/inference"
	"yaari/pkg/relay"
	"yaari/pkg/schema"
	"yaari/pkg/search"
	"yaari/pkg/store"
)

type fakeInferencer struct {
	chunks  []string
	lastReq inference.Request
}

func (f *fakeInferencer) Stream(ctx context.Context, req inference.Request, onChunk func(string) error) (string, error) {
	f.lastReq = req
	var full string
	for _, chunk := range f.chunks {
		full += chunk
		if err := onChunk(chunk); err != nil {
			return full, err
		}
	}
	return full, nil
}

type blockingInferencer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingInferencer) Stream(ctx context.Context, req inference.Request, onChunk func(string) error) (string, error) {
	close(b.started)
	<-b.release
	return "ok", nil
}

func newTestServer(t *testing.T, inf inference.Inferencer) *Server {
	t.Helper()
	dir := t.TempDir()
	st := store.New(dir, time.Hour)
	t.Cleanup(st.Close)
	r := relay.New(inf, search.NewClient(context.Background(), "", ""))
	return NewServer(context.Background(), r, st, dir)
}

func do(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func seedCharacter(t *testing.T, s *Server, name string) schema.Character {
	t.Helper()
	rec := do(s, http.MethodPost, "/api/characters", schema.Character{
		Name:          name,
		Age:           24,
		Gender:        schema.GenderFemale,
		Relationship:  schema.RelFriend,
		Personalities: []schema.Personality{schema.Caring},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[schema.Character](t, rec)
}

func TestChatEndpointStreamsAndPersists(t *testing.T) {
	inf := &fakeInferencer{chunks: []string{"Hel", "lo "}}
	s := newTestServer(t, inf)
	ch := seedCharacter(t, s, "Priya")

	userMsg := schema.NewMessage(schema.SenderUser, "hi Priya")
	rec := do(s, http.MethodPost, "/api/chat", chatRequest{
		Character:     ch,
		UserProfile:   schema.UserProfile{ID: "user_1", Name: "Rohan"},
		Messages:      []schema.Message{userMsg},
		LatestMessage: userMsg,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get(echoHeaderContentType), "text/plain")
	require.Equal(t, "Hello ", rec.Body.String())

	// the in-flight message was in the payload once, not twice
	require.Empty(t, inf.lastReq.History)

	roster := decode[[]schema.Character](t, do(s, http.MethodGet, "/api/characters", nil))
	require.Len(t, roster, 1)
	require.Len(t, roster[0].Messages, 2)
	require.Equal(t, userMsg.ID, roster[0].Messages[0].ID)
	require.Equal(t, ch.ID, roster[0].Messages[1].Sender)
	require.Equal(t, "Hello ", roster[0].Messages[1].Text)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	s := newTestServer(t, &fakeInferencer{chunks: []string{"ok"}})
	ch := seedCharacter(t, s, "Priya")

	rec := do(s, http.MethodPost, "/api/chat", chatRequest{
		Character:     ch,
		LatestMessage: schema.Message{ID: "msg_1", Sender: schema.SenderUser, Text: "   "},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointRejectsConcurrentTurn(t *testing.T) {
	inf := &blockingInferencer{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestServer(t, inf)
	ch := seedCharacter(t, s, "Priya")

	payload := chatRequest{
		Character:     ch,
		UserProfile:   schema.UserProfile{Name: "Rohan"},
		LatestMessage: schema.NewMessage(schema.SenderUser, "hi"),
	}

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(s, http.MethodPost, "/api/chat", payload) }()
	<-inf.started

	rec := do(s, http.MethodPost, "/api/chat", payload)
	require.Equal(t, http.StatusConflict, rec.Code)

	close(inf.release)
	require.Equal(t, http.StatusOK, (<-done).Code)
}

func TestGroupChatSkipTurn(t *testing.T) {
	inf := &fakeInferencer{chunks: []string{"Priya: arre kahan ho?\nKabir: busy lagta hai"}}
	s := newTestServer(t, inf)
	priya := seedCharacter(t, s, "Priya")
	kabir := seedCharacter(t, s, "Kabir")

	rec := do(s, http.MethodPost, "/api/groups", schema.Group{
		Name:    "Adda",
		Members: []string{priya.ID, kabir.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decode[schema.Group](t, rec)

	rec = do(s, http.MethodPost, "/api/group-chat", groupChatRequest{
		GroupID:          group.ID,
		ActiveCharacters: []schema.Character{priya, kabir},
		UserProfile:      schema.UserProfile{Name: "Rohan"},
		Skip:             true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, inf.lastReq.Latest, "[System: User skipped.")

	// skip turns never persist a synthetic user message
	groups := decode[[]schema.Group](t, do(s, http.MethodGet, "/api/groups", nil))
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Messages, 2)
	require.Equal(t, priya.ID, groups[0].Messages[0].Sender)
	require.Equal(t, "arre kahan ho?", groups[0].Messages[0].Text)
	require.Equal(t, kabir.ID, groups[0].Messages[1].Sender)
	require.Equal(t, "busy lagta hai", groups[0].Messages[1].Text)
}

func TestGroupChatRealTurnPersistsUserMessage(t *testing.T) {
	inf := &fakeInferencer{chunks: []string{"Priya: hi Rohan!"}}
	s := newTestServer(t, inf)
	priya := seedCharacter(t, s, "Priya")

	rec := do(s, http.MethodPost, "/api/groups", schema.Group{Name: "Duo", Members: []string{priya.ID}})
	group := decode[schema.Group](t, rec)

	userMsg := schema.NewMessage(schema.SenderUser, "hello!")
	rec = do(s, http.MethodPost, "/api/group-chat", groupChatRequest{
		GroupID:          group.ID,
		ActiveCharacters: []schema.Character{priya},
		UserProfile:      schema.UserProfile{Name: "Rohan"},
		UpdatedMessages:  []schema.Message{userMsg},
		LatestMessage:    userMsg,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	groups := decode[[]schema.Group](t, do(s, http.MethodGet, "/api/groups", nil))
	require.Len(t, groups[0].Messages, 2)
	require.Equal(t, userMsg.ID, groups[0].Messages[0].ID)
	require.Equal(t, priya.ID, groups[0].Messages[1].Sender)
}

func TestProfileRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodPut, "/api/profile", schema.UserProfile{Name: "Rohan", Age: 27})
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[schema.UserProfile](t, rec)
	require.NotEmpty(t, saved.ID)

	got := decode[schema.UserProfile](t, do(s, http.MethodGet, "/api/profile", nil))
	require.Equal(t, saved, got)

	// id survives subsequent updates
	rec = do(s, http.MethodPut, "/api/profile", schema.UserProfile{Name: "Rohan R", Age: 28})
	require.Equal(t, saved.ID, decode[schema.UserProfile](t, rec).ID)

	require.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/profile", schema.UserProfile{Name: "  "}).Code)
}

func TestCharacterUpdatePreservesTranscript(t *testing.T) {
	s := newTestServer(t, &fakeInferencer{chunks: []string{"namaste"}})
	ch := seedCharacter(t, s, "Priya")

	userMsg := schema.NewMessage(schema.SenderUser, "hi")
	do(s, http.MethodPost, "/api/chat", chatRequest{Character: ch, LatestMessage: userMsg})

	rec := do(s, http.MethodPut, "/api/characters/"+ch.ID, schema.Character{
		Name:          "Priya Sharma",
		Personalities: []schema.Personality{schema.Sarcastic},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[schema.Character](t, rec)
	require.Equal(t, "Priya Sharma", updated.Name)
	require.Len(t, updated.Messages, 2, "persona edits keep the transcript")
}

func TestDeleteCharacterCascadesGroupMembership(t *testing.T) {
	s := newTestServer(t, nil)
	priya := seedCharacter(t, s, "Priya")
	kabir := seedCharacter(t, s, "Kabir")

	rec := do(s, http.MethodPost, "/api/groups", schema.Group{Name: "Adda", Members: []string{priya.ID, kabir.ID}})
	group := decode[schema.Group](t, rec)

	require.Equal(t, http.StatusNoContent, do(s, http.MethodDelete, "/api/characters/"+priya.ID, nil).Code)

	groups := decode[[]schema.Group](t, do(s, http.MethodGet, "/api/groups", nil))
	require.Len(t, groups, 1, "groups survive member deletion")
	require.Equal(t, group.ID, groups[0].ID)
	require.Equal(t, []string{kabir.ID}, groups[0].Members)

	roster := decode[[]schema.Character](t, do(s, http.MethodGet, "/api/characters", nil))
	require.Len(t, roster, 1)
	require.Equal(t, kabir.ID, roster[0].ID)
}

func TestGroupValidation(t *testing.T) {
	s := newTestServer(t, nil)
	priya := seedCharacter(t, s, "Priya")

	tests := []struct {
		name  string
		group schema.Group
	}{
		{"missing name", schema.Group{Members: []string{priya.ID}}},
		{"no members", schema.Group{Name: "Empty"}},
		{"unknown member", schema.Group{Name: "Ghosts", Members: []string{"char_nope"}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/groups", test.group).Code)
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, http.MethodPut, "/api/profile", schema.UserProfile{Name: "Rohan"})
	seedCharacter(t, s, "Priya")
	do(s, http.MethodPut, "/api/background", map[string]string{"url": "https://example.com/bg.jpg"})

	exported := decode[schema.Export](t, do(s, http.MethodGet, "/api/export", nil))
	require.Equal(t, "Rohan", exported.Profile.Name)
	require.Len(t, exported.Characters, 1)
	require.Equal(t, "https://example.com/bg.jpg", exported.Background)

	// a fresh server restored from the export matches
	other := newTestServer(t, nil)
	require.Equal(t, http.StatusNoContent, do(other, http.MethodPost, "/api/import", exported).Code)
	require.Equal(t, exported, decode[schema.Export](t, do(other, http.MethodGet, "/api/export", nil)))
}

func TestPersonalitiesEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	got := decode[[]schema.Personality](t, do(s, http.MethodGet, "/api/personalities", nil))
	require.Equal(t, schema.Personalities(), got)
	require.Contains(t, got, schema.TaxConsultant)
}

func TestAvatarNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	ch := seedCharacter(t, s, "Priya")

	require.Equal(t, http.StatusNotFound, do(s, http.MethodGet, fmt.Sprintf("/api/characters/%s/avatar", ch.ID), nil).Code)
}
