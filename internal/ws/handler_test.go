package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"speech-coach-demo/backend/internal/ai"
	"speech-coach-demo/backend/internal/models"
	"speech-coach-demo/backend/internal/service"
	"speech-coach-demo/backend/pkg/logger"
	"speech-coach-demo/backend/pkg/metrics"
)

// stubTranscriber returns a fixed result for every clip.
type stubTranscriber struct {
	result *ai.Result
	err    error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte) (*ai.Result, error) {
	return s.result, s.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Message{}, &models.TemporaryUser{}, &models.SessionMerge{}))
	return db
}

// dialTestServer stands up a relay around the given transcriber and
// returns a connected client plus the backing database.
func dialTestServer(t *testing.T, transcriber ai.Transcriber) (*websocket.Conn, *gorm.DB) {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	db := newTestDB(t)
	messages := service.NewMessageService(db, log, nil)

	hub := NewHub(transcriber, messages, metrics.New(), log)
	go hub.Run()

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c)
	})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn, db
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &envelope))
	return envelope
}

func TestAudioEnvelopeFullPipeline(t *testing.T) {
	conn, db := dialTestServer(t, &stubTranscriber{
		result: &ai.Result{
			Transcription: "hello",
			Analysis:      "Communication Tip: good pace",
			Reply:         "Hi there!",
		},
	})

	err := conn.WriteJSON(map[string]interface{}{
		"type":       "audio",
		"audio":      "data:audio/wav;base64,AAAA",
		"tempUserId": "temp_e2e",
	})
	require.NoError(t, err)

	status := readEnvelope(t, conn)
	assert.Equal(t, "status", status["type"])

	transcription := readEnvelope(t, conn)
	assert.Equal(t, "transcription", transcription["type"])
	assert.Equal(t, "hello", transcription["text"])
	assert.Equal(t, "Communication Tip: good pace", transcription["analysis"])

	reply := readEnvelope(t, conn)
	assert.Equal(t, "ai_reply", reply["type"])
	assert.Equal(t, "Hi there!", reply["text"])

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&models.Message{}).Count(&count)
		return count == 2
	}, 5*time.Second, 10*time.Millisecond)

	var userTurn models.Message
	require.NoError(t, db.First(&userTurn, "is_ai = ?", false).Error)
	assert.Equal(t, "hello", userTurn.Message)
	assert.Equal(t, models.SessionTypeTemporary, userTurn.SessionType)
	assert.Equal(t, models.StatusCompleted, userTurn.Status)
	require.NotNil(t, userTurn.TempUserID)
	assert.Equal(t, "temp_e2e", *userTurn.TempUserID)
	assert.NotNil(t, userTurn.ProcessingTime)

	var aiTurn models.Message
	require.NoError(t, db.First(&aiTurn, "is_ai = ?", true).Error)
	assert.Equal(t, "Hi there!", aiTurn.Message)
	require.NotNil(t, aiTurn.Reply)
	assert.Equal(t, "Hi there!", *aiTurn.Reply)
}

func TestAudioEnvelopeNoResult(t *testing.T) {
	conn, db := dialTestServer(t, &stubTranscriber{result: nil})

	err := conn.WriteJSON(map[string]interface{}{
		"type":  "audio",
		"audio": "AAAA",
	})
	require.NoError(t, err)

	status := readEnvelope(t, conn)
	assert.Equal(t, "status", status["type"])

	errEnvelope := readEnvelope(t, conn)
	assert.Equal(t, "error", errEnvelope["type"])
	assert.Equal(t, "Failed to process audio", errEnvelope["message"])

	// Nothing was stored.
	time.Sleep(50 * time.Millisecond)
	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAudioEnvelopeMalformedPayload(t *testing.T) {
	conn, db := dialTestServer(t, &stubTranscriber{
		result: &ai.Result{Transcription: "unreachable"},
	})

	err := conn.WriteJSON(map[string]interface{}{
		"type":  "audio",
		"audio": "!!!not-base64!!!",
	})
	require.NoError(t, err)

	errEnvelope := readEnvelope(t, conn)
	assert.Equal(t, "error", errEnvelope["type"])
	assert.Contains(t, errEnvelope["message"], "decode audio payload")

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUnknownEnvelopeTypeIgnored(t *testing.T) {
	conn, _ := dialTestServer(t, &stubTranscriber{
		result: &ai.Result{Transcription: "hello", Analysis: "tip", Reply: ""},
	})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping"}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "audio",
		"audio": "AAAA",
	}))

	// The first frame back belongs to the audio envelope; the ping
	// produced nothing.
	status := readEnvelope(t, conn)
	assert.Equal(t, "status", status["type"])

	transcription := readEnvelope(t, conn)
	assert.Equal(t, "transcription", transcription["type"])
}

func TestConnectionSurvivesEnvelopeFault(t *testing.T) {
	conn, _ := dialTestServer(t, &stubTranscriber{
		result: &ai.Result{Transcription: "hello", Analysis: "tip"},
	})

	// A bad envelope first; the connection must keep serving.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "audio",
		"audio": "???",
	}))
	errEnvelope := readEnvelope(t, conn)
	assert.Equal(t, "error", errEnvelope["type"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "audio",
		"audio": "AAAA",
	}))
	status := readEnvelope(t, conn)
	assert.Equal(t, "status", status["type"])

	transcription := readEnvelope(t, conn)
	assert.Equal(t, "transcription", transcription["type"])
	assert.Equal(t, "hello", transcription["text"])
}

func TestStoreFailureDoesNotBlockReplies(t *testing.T) {
	conn, db := dialTestServer(t, &stubTranscriber{
		result: &ai.Result{
			Transcription: "hello",
			Analysis:      "Communication Tip: slow down",
			Reply:         "Hi!",
		},
	})

	// Break persistence; the client-facing envelopes must be unaffected.
	require.NoError(t, db.Migrator().DropTable(&models.Message{}))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "audio",
		"audio":      "AAAA",
		"tempUserId": "temp_broken_store",
	}))

	status := readEnvelope(t, conn)
	assert.Equal(t, "status", status["type"])

	transcription := readEnvelope(t, conn)
	assert.Equal(t, "transcription", transcription["type"])
	assert.Equal(t, "hello", transcription["text"])

	reply := readEnvelope(t, conn)
	assert.Equal(t, "ai_reply", reply["type"])
	assert.Equal(t, "Hi!", reply["text"])

	// And the connection still serves the next clip.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "audio",
		"audio": "AAAA",
	}))
	next := readEnvelope(t, conn)
	assert.Equal(t, "status", next["type"])
}

func TestLoggedInSessionType(t *testing.T) {
	conn, db := dialTestServer(t, &stubTranscriber{
		result: &ai.Result{Transcription: "hello", Analysis: "tip", Reply: "hey"},
	})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   "audio",
		"audio":  "AAAA",
		"userId": "user_7",
	}))

	readEnvelope(t, conn) // status
	readEnvelope(t, conn) // transcription
	readEnvelope(t, conn) // ai_reply

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&models.Message{}).Count(&count)
		return count == 2
	}, 5*time.Second, 10*time.Millisecond)

	var turns []models.Message
	require.NoError(t, db.Find(&turns).Error)
	for _, turn := range turns {
		assert.Equal(t, models.SessionTypeLoggedIn, turn.SessionType)
		require.NotNil(t, turn.UserID)
		assert.Equal(t, "user_7", *turn.UserID)
		assert.Nil(t, turn.TempUserID)
	}
}
