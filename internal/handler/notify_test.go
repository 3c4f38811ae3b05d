package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegate/notify-api/internal/channel"
	"github.com/sitegate/notify-api/internal/directory"
	"github.com/sitegate/notify-api/internal/handler"
	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/service"
	"github.com/sitegate/notify-api/internal/store"
	"github.com/sitegate/notify-api/internal/worker"
)

type fakeChannel struct {
	failFor map[string]string
}

func (f *fakeChannel) IsConfigured() bool { return true }

func (f *fakeChannel) Send(_ context.Context, msg channel.Message) error {
	if reason, ok := f.failFor[msg.Address]; ok {
		return &channel.TransportError{StatusCode: 502, Message: reason}
	}
	return nil
}

// setupApp builds the notify routes the way cmd/server does, minus the rate
// limiter and websocket upgrade, against a static directory and a scripted
// channel.
func setupApp(t *testing.T, ch channel.Client) *fiber.App {
	t.Helper()

	jobStore := store.NewJobStore()
	pool := worker.NewPool(worker.Config{Concurrency: 4}, jobStore, nil, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	dir := directory.NewStatic([]directory.Entry{
		{Ref: "guard-1", DisplayName: "王小明", Email: "guard1@example.com"},
		{Ref: "guard-2", DisplayName: "李大華", Email: "guard2@example.com"},
		{Ref: "worker-3", DisplayName: "陳工", Email: "worker3@example.com"},
	})

	validate := validator.New()
	svc := service.NewNotifyService(
		50,
		jobStore,
		dir,
		map[model.Channel]channel.Client{model.ChannelEmail: ch},
		pool,
		validate,
		zerolog.Nop(),
	)
	h := handler.NewNotifyHandler(svc, validate)

	app := fiber.New()
	notify := app.Group("/api/notify")
	notify.Post("/batch", h.CreateBatch)
	notify.Get("/progress/:jobId", h.Progress)
	notify.Post("/cancel/:jobId", h.Cancel)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func validBatchBody(refs ...string) string {
	quoted := make([]string, len(refs))
	for i, r := range refs {
		quoted[i] = fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf(`{
		"channel": "email",
		"recipients": [%s],
		"template": {"account": "guard1", "password": "s3cret"},
		"language": "zh-TW"
	}`, strings.Join(quoted, ","))
}

func pollUntilTerminal(t *testing.T, app *fiber.App, jobID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp := doRequest(t, app, http.MethodGet, "/api/notify/progress/"+jobID, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := parseJSON(t, resp)
		progress := result["progress"].(map[string]interface{})
		switch progress["status"] {
		case "completed", "failed", "cancelled":
			return progress
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestCreateBatch_Accepted(t *testing.T) {
	app := setupApp(t, &fakeChannel{})

	resp := doRequest(t, app, http.MethodPost, "/api/notify/batch", validBatchBody("guard-1", "guard-2"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	result := parseJSON(t, resp)
	assert.Equal(t, true, result["success"])
	assert.NotEmpty(t, result["jobId"])
}

func TestCreateBatch_InvalidBody(t *testing.T) {
	app := setupApp(t, &fakeChannel{})

	resp := doRequest(t, app, http.MethodPost, "/api/notify/batch", `{"channel": "email"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
}

func TestCreateBatch_UnsupportedChannel(t *testing.T) {
	app := setupApp(t, &fakeChannel{})

	body := strings.Replace(validBatchBody("guard-1"), `"email"`, `"fax"`, 1)
	resp := doRequest(t, app, http.MethodPost, "/api/notify/batch", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateBatch_OversizedBatch(t *testing.T) {
	app := setupApp(t, &fakeChannel{})

	refs := make([]string, 60)
	for i := range refs {
		refs[i] = "guard-1"
	}
	resp := doRequest(t, app, http.MethodPost, "/api/notify/batch", validBatchBody(refs...))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgressFlow_PartialFailure(t *testing.T) {
	app := setupApp(t, &fakeChannel{failFor: map[string]string{"worker3@example.com": "mailbox unavailable"}})

	resp := doRequest(t, app, http.MethodPost, "/api/notify/batch", validBatchBody("guard-1", "guard-2", "worker-3"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID := parseJSON(t, resp)["jobId"].(string)

	progress := pollUntilTerminal(t, app, jobID)
	assert.Equal(t, "completed", progress["status"])
	assert.Equal(t, float64(3), progress["total"])
	assert.Equal(t, float64(2), progress["success"])
	assert.Equal(t, float64(1), progress["failed"])
	assert.Equal(t, float64(100), progress["progress"])

	errs := progress["errors"].([]interface{})
	require.Len(t, errs, 1)
	failure := errs[0].(map[string]interface{})
	assert.Equal(t, "worker-3", failure["recipient"])
	assert.Equal(t, "mailbox unavailable", failure["message"])
}

func TestProgress_NotFound(t *testing.T) {
	app := setupApp(t, &fakeChannel{})

	resp := doRequest(t, app, http.MethodGet, "/api/notify/progress/unknown-id", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", errObj["code"])
}

func TestCancel_NotFound(t *testing.T) {
	app := setupApp(t, &fakeChannel{})

	resp := doRequest(t, app, http.MethodPost, "/api/notify/cancel/unknown-id", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancel_ConflictOnFinishedJob(t *testing.T) {
	app := setupApp(t, &fakeChannel{})

	resp := doRequest(t, app, http.MethodPost, "/api/notify/batch", validBatchBody("guard-1"))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID := parseJSON(t, resp)["jobId"].(string)
	pollUntilTerminal(t, app, jobID)

	resp = doRequest(t, app, http.MethodPost, "/api/notify/cancel/"+jobID, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	assert.Equal(t, "CONFLICT", errObj["code"])
}
