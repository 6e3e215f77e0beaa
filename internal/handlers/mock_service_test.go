package handlers

import (
	"context"
	"net/http"
	"time"

	"watchdogd"
	"watchdogd/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockWatchdog struct {
	armState  watchdogd.WatchdogState
	armErr    error
	disarmErr error
	kickErr   error
	resetErr  error

	lastArmTimeout time.Duration
	armCalls       int
	disarmCalls    int
	kickCalls      int

	// ForceReset runs on a detached goroutine, so it reports through a
	// channel instead of mutating counters the test goroutine reads.
	resetCh chan string
}

func (m *mockWatchdog) Arm(ctx context.Context, timeout time.Duration) (watchdogd.WatchdogState, error) {
	m.armCalls++
	m.lastArmTimeout = timeout
	if m.armErr != nil {
		return watchdogd.WatchdogState{}, m.armErr
	}
	return m.armState, nil
}
func (m *mockWatchdog) Disarm(ctx context.Context) error {
	m.disarmCalls++
	return m.disarmErr
}
func (m *mockWatchdog) Kick(ctx context.Context) error {
	m.kickCalls++
	return m.kickErr
}
func (m *mockWatchdog) ForceReset(ctx context.Context, reason string) error {
	if m.resetCh != nil {
		m.resetCh <- reason
	}
	return m.resetErr
}

type mockMonitoring struct {
	status watchdogd.WatchdogStatus
	err    error
}

func (m *mockMonitoring) GetStatus(ctx context.Context) (watchdogd.WatchdogStatus, error) {
	return m.status, m.err
}

type mockEventLog struct {
	resp     []watchdogd.WatchdogEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]watchdogd.WatchdogEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared test helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set(authorizationHeader, bearerScheme+" "+token)
	}
	return h
}
