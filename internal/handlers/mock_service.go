package handlers

import (
	"context"
	"sync"

	"light_control/internal/models"
	"light_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockRelays struct {
	snap      models.RelaySnapshot
	accept    bool
	toggled   []models.RelayID
	toggleCnt int
}

func (m *mockRelays) ToggleRelay(id models.RelayID) bool {
	m.toggleCnt++
	m.toggled = append(m.toggled, id)
	return m.accept
}
func (m *mockRelays) RelaySnapshot() models.RelaySnapshot {
	return m.snap
}

type mockSchedules struct {
	list      []models.ScheduleEntry
	submitErr error
	submitted []models.ScheduleDraft
	removed   []int
}

func (m *mockSchedules) SubmitSchedule(d models.ScheduleDraft) error {
	m.submitted = append(m.submitted, d)
	if m.submitErr != nil {
		return m.submitErr
	}
	return d.Validate()
}
func (m *mockSchedules) RemoveSchedule(id int) {
	m.removed = append(m.removed, id)
}
func (m *mockSchedules) ScheduleSnapshot() []models.ScheduleEntry {
	return m.list
}

type mockRefresher struct {
	mu    sync.Mutex
	calls int
}

func (m *mockRefresher) Refresh() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

type mockEventLog struct {
	resp  []models.CommandEvent
	err   error
	calls int
	last  service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.CommandEvent, error) {
	m.calls++
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWithHub(s, nil)
}

func newTestRouterWithHub(s *service.Service, hub *Hub) *gin.Engine {
	h := NewHandler(s, hub, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func snapshotOf(on ...bool) models.RelaySnapshot {
	var s models.RelaySnapshot
	for i := range s {
		s[i].ID = models.RelayID(i + 1)
		if i < len(on) {
			s[i].On = on[i]
		}
	}
	return s
}
