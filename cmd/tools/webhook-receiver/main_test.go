package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilecraft/internal/api"
	"github.com/annel0/tilecraft/internal/eventbus"
)

func post(r http.Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookReceiver_Signature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newRouter("s3cret")

	data, err := json.Marshal(api.OutboundWebhookEvent{
		EventType: "item_crafted",
		Source:    eventbus.SourceWorld,
		Data:      eventbus.WorldEventPayload{Item: "pickaxe", Recipe: "pickaxe"},
	})
	require.NoError(t, err)
	body := string(data)

	w := post(r, body, api.SignPayload(data, "s3cret"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "item_crafted")

	assert.Equal(t, http.StatusUnauthorized, post(r, body, "sha256=00").Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, body, "").Code)
}

func TestWebhookReceiver_Unsigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newRouter("")

	assert.Equal(t, http.StatusOK, post(r, `{"event_type":"tile_broken","data":{"tile":"dirt"}}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(r, `{not json`, "").Code)
}
