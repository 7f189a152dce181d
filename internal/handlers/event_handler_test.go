package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/dedupe"
	"github.com/anonto42/dank-memes/backend/internal/delivery"
	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/anonto42/dank-memes/backend/internal/repositories"
	"github.com/anonto42/dank-memes/backend/internal/services"
	"github.com/anonto42/dank-memes/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type EventHandlerTestSuite struct {
	suite.Suite
	e      *echo.Echo
	store  *repositories.MemoryStore
	sender *delivery.MockSender
	bucket *storage.MemoryBucket
}

func (s *EventHandlerTestSuite) SetupTest() {
	s.store = repositories.NewMemoryStore()
	s.sender = delivery.NewMockSender()
	s.bucket = storage.NewMemoryBucket("test")

	h := NewEventHandler(
		services.NewCounterService(s.store, s.store, s.store, s.sender, services.CounterConfig{}),
		services.NewPropagationEngine(s.store, s.store, s.store, services.PropagationConfig{MuteExclusive: true}),
		services.NewNotifier(s.store, s.store, s.store, s.store, dedupe.NewMemoryDeduper(time.Hour), s.sender, services.NotifierConfig{}),
		services.NewThumbnailService(s.bucket, s.store, services.ThumbnailConfig{}),
	)

	s.e = echo.New()
	s.e.Validator = NewValidator()
	h.RegisterEventRoutes(s.e.Group("/events"))

	s.store.PutUser(models.User{UserID: "owner", UserName: "Owner", UserToken: "tok-owner"})
	s.store.PutUser(models.User{UserID: "fan", UserName: "Fan", UserToken: "tok-fan"})
	s.store.PutMeme(models.Meme{ID: "m1", MemePosterID: "owner", MemePoster: "Owner"})
}

func (s *EventHandlerTestSuite) post(path, body string) (*httptest.ResponseRecorder, EventResponse) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var resp EventResponse
	if rec.Code == http.StatusOK {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (s *EventHandlerTestSuite) TestUserCreated() {
	rec, resp := s.post("/events/users/created", `{"eventId":"e1","value":{"userId":"new"}}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("e1", resp.EventID)
	s.Equal("ok", resp.Status)
	s.Equal(int64(1), s.store.Counter(models.CounterUsers))
}

func (s *EventHandlerTestSuite) TestInvalidPayloads() {
	tests := []struct {
		name, path, body string
	}{
		{"malformed json", "/events/users/created", `{"eventId":`},
		{"missing user id", "/events/users/created", `{"eventId":"e1","value":{"userName":"x"}}`},
		{"missing meme poster", "/events/memes/created", `{"value":{"id":"m9"}}`},
		{"missing comment meme", "/events/comments/created", `{"value":{"commentId":"c1","userId":"fan"}}`},
		{"missing after", "/events/users/updated", `{"before":{"userId":"owner"}}`},
		{"missing object name", "/events/storage/finalized", `{"value":{"contentType":"image/png"}}`},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec, _ := s.post(tt.path, tt.body)
			s.Equal(http.StatusBadRequest, rec.Code)
		})
	}
	s.Equal(0, s.store.Writes())
	s.Equal(int64(0), s.store.Counter(models.CounterUsers))
}

func (s *EventHandlerTestSuite) TestUserUpdatedMute() {
	rec, resp := s.post("/events/users/updated",
		`{"eventId":"e2","before":{"userId":"owner","userName":"Owner"},"after":{"userId":"owner","userName":"Owner","muted":true}}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", resp.Status)
	m, err := s.store.GetMeme(s.T().Context(), "m1")
	s.Require().NoError(err)
	s.True(m.Muted)
}

func (s *EventHandlerTestSuite) TestUserUpdatedNoOp() {
	_, resp := s.post("/events/users/updated",
		`{"before":{"userId":"owner","userName":"Owner"},"after":{"userId":"owner","userName":"Owner"}}`)

	s.Equal("noop", resp.Status)
	s.Equal(0, s.store.Writes())
}

func (s *EventHandlerTestSuite) TestMemeCreated() {
	rec, resp := s.post("/events/memes/created", `{"value":{"id":"m2","memePosterID":"owner"}}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", resp.Status)
	s.Equal(int64(1), s.store.Counter(models.CounterMemes))
	u, _ := s.store.GetUser(s.T().Context(), "owner")
	s.Equal(int64(1), u.Posts)
}

func (s *EventHandlerTestSuite) TestMemeUpdatedLike() {
	_, resp := s.post("/events/memes/updated",
		`{"before":{"id":"m1","memePosterID":"owner","likes":{}},"after":{"id":"m1","memePosterID":"owner","likes":{"fan":true}}}`)

	s.Equal("ok", resp.Status)
	s.Len(s.store.Notifications("owner"), 1)
	s.Equal([]string{"tok-owner"}, s.sender.DeviceTokens())
}

func (s *EventHandlerTestSuite) TestCommentCreated() {
	body := `{"eventId":"e3","value":{"commentId":"c1","memeId":"m1","userId":"fan","userName":"Fan","comment":"lol"}}`

	_, first := s.post("/events/comments/created", body)
	_, second := s.post("/events/comments/created", body)

	s.Equal("ok", first.Status)
	s.Equal("ok", second.Status)
	s.Len(s.store.Notifications("owner"), 1)
	s.Len(s.sender.Sent, 1)
}

func (s *EventHandlerTestSuite) TestCommentOnMissingMeme() {
	_, resp := s.post("/events/comments/created", `{"value":{"commentId":"c1","memeId":"gone","userId":"fan"}}`)
	s.Equal("noop", resp.Status)
}

func (s *EventHandlerTestSuite) TestReportCreated() {
	_, resp := s.post("/events/reports/created", `{"value":{"id":"r1","reason":"offensive"}}`)

	s.Equal("ok", resp.Status)
	sends := s.sender.TopicSends()
	s.Require().Len(sends, 1)
	s.Equal("admin", sends[0].Topic)
}

func (s *EventHandlerTestSuite) TestStorageFinalized() {
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32))))
	s.Require().NoError(s.bucket.Upload(s.T().Context(), "m1", "image/png", buf.Bytes()))

	_, resp := s.post("/events/storage/finalized", `{"value":{"bucket":"test","name":"m1","contentType":"image/png"}}`)

	s.Equal("ok", resp.Status)
	m, _ := s.store.GetMeme(s.T().Context(), "m1")
	s.NotEmpty(m.Thumbnail)
}

func (s *EventHandlerTestSuite) TestStorageFinalizedNotImage() {
	_, resp := s.post("/events/storage/finalized", `{"value":{"name":"clip.mp4","contentType":"video/mp4"}}`)
	s.Equal("noop", resp.Status)
}

func TestEventHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(EventHandlerTestSuite))
}

func TestHealthCheck(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	require.NoError(t, HealthCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
