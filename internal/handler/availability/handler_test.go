package availability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/service/availability"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*gin.Engine, model.Doctor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	doctor := store.AddDoctor(model.Doctor{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"})
	svc := availability.NewService(store.Doctors(), store.Availability(), store.Exceptions(), nil, logger.Nop())

	engine := gin.New()
	engine.Use(middleware.ErrorHandler(), func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader("X-Actor-ID")); err == nil {
			c.Set(middleware.ContextActor, model.Actor{ID: id, Role: model.Role(c.GetHeader("X-Actor-Role"))})
		}
		c.Next()
	})
	NewHandler(svc, middleware.NewAuthMiddleware(nil)).RegisterRoutes(engine.Group("/api/v1"))
	return engine, doctor
}

func do(t *testing.T, engine *gin.Engine, method, path string, body interface{}, actor model.Actor) (int, envelope) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", actor.ID.String())
	req.Header.Set("X-Actor-Role", string(actor.Role))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestWindowLifecycle(t *testing.T) {
	engine, doctor := setup(t)
	self := model.Actor{ID: doctor.ID, Role: model.RoleDoctor}
	base := "/api/v1/doctors/" + doctor.ID.String() + "/availability-windows"

	code, env := do(t, engine, http.MethodPost, base, map[string]string{
		"day_of_week": "Monday",
		"start_time":  "09:00",
		"end_time":    "12:00",
	}, self)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var window model.AvailabilityWindow
	require.NoError(t, json.Unmarshal(env.Data, &window))
	assert.Equal(t, model.Monday, window.DayOfWeek)
	assert.Equal(t, "12:00", window.EndTime.String())

	code, env = do(t, engine, http.MethodPatch, base+"/"+window.ID.String(), map[string]string{"end_time": "13:00"}, self)
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &window))
	assert.Equal(t, "09:00", window.StartTime.String())
	assert.Equal(t, "13:00", window.EndTime.String())

	code, env = do(t, engine, http.MethodPatch, base+"/"+window.ID.String(), map[string]string{"start_time": "14:00"}, self)
	assert.Equal(t, http.StatusBadRequest, code, env.Message)

	code, env = do(t, engine, http.MethodGet, base, nil, self)
	require.Equal(t, http.StatusOK, code)
	var windows []model.AvailabilityWindow
	require.NoError(t, json.Unmarshal(env.Data, &windows))
	assert.Len(t, windows, 1)

	code, _ = do(t, engine, http.MethodDelete, base+"/"+window.ID.String(), nil, self)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = do(t, engine, http.MethodDelete, base+"/"+window.ID.String(), nil, self)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateWindow_Rejections(t *testing.T) {
	engine, doctor := setup(t)
	base := "/api/v1/doctors/" + doctor.ID.String() + "/availability-windows"
	window := map[string]string{"day_of_week": "Monday", "start_time": "09:00", "end_time": "12:00"}

	code, env := do(t, engine, http.MethodPost, base, window, model.Actor{ID: uuid.New(), Role: model.RolePatient})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "permission denied", env.Message)

	code, env = do(t, engine, http.MethodPost, base, window, model.Actor{ID: uuid.New(), Role: model.RoleDoctor})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "not allowed to manage this doctor's availability", env.Message)

	code, _ = do(t, engine, http.MethodPost, base, map[string]string{
		"day_of_week": "Monday", "start_time": "12:00", "end_time": "09:00",
	}, model.Actor{ID: doctor.ID, Role: model.RoleDoctor})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, engine, http.MethodPost, base, map[string]string{
		"day_of_week": "Monday", "start_time": "9am", "end_time": "12:00",
	}, model.Actor{ID: doctor.ID, Role: model.RoleDoctor})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, engine, http.MethodPost, "/api/v1/doctors/"+uuid.NewString()+"/availability-windows", window,
		model.Actor{ID: uuid.New(), Role: model.RoleAdmin})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestExceptionLifecycle(t *testing.T) {
	engine, doctor := setup(t)
	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	base := "/api/v1/doctors/" + doctor.ID.String() + "/exceptions"

	code, env := do(t, engine, http.MethodPost, base, map[string]interface{}{
		"date":         "2026-12-25",
		"is_available": false,
	}, admin)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var exception model.Exception
	require.NoError(t, json.Unmarshal(env.Data, &exception))
	assert.False(t, exception.IsAvailable)

	code, env = do(t, engine, http.MethodPatch, base+"/"+exception.ID.String(), map[string]interface{}{"is_available": true}, admin)
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &exception))
	assert.True(t, exception.IsAvailable)

	code, env = do(t, engine, http.MethodGet, base, nil, admin)
	require.Equal(t, http.StatusOK, code)
	var exceptions []model.Exception
	require.NoError(t, json.Unmarshal(env.Data, &exceptions))
	assert.Len(t, exceptions, 1)

	code, _ = do(t, engine, http.MethodPost, base, map[string]interface{}{"date": "2026-12-25"}, admin)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, engine, http.MethodDelete, base+"/"+exception.ID.String(), nil, admin)
	assert.Equal(t, http.StatusNoContent, code)
}
