package intake

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/audiolens/server/middleware"
)

func newRouter(f *fixture, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	NewHandler(f.svc).Register(e, mw...)
	return e
}

func do(e http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]int  `json:"meta"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func multipartUpload(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandlerInitiateNotifyGet(t *testing.T) {
	f := newFixture(t, Config{})
	e := newRouter(f)

	rr := do(e, httptest.NewRequest(http.MethodPost, "/uploads/initiate", http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)
	var ini Initiation
	require.NoError(t, json.Unmarshal(decodeBody(t, rr).Data, &ini))
	assert.Regexp(t, storagePathRe, ini.StoragePath)

	rr = do(e, httptest.NewRequest(http.MethodPost, "/uploads/notify",
		strings.NewReader(`{"storage_path":"`+ini.StoragePath+`"}`)))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	var acc Accepted
	require.NoError(t, json.Unmarshal(decodeBody(t, rr).Data, &acc))
	assert.Equal(t, "pending", acc.Status)
	assert.Equal(t, acc.UploadID, f.received(t))

	rr = do(e, httptest.NewRequest(http.MethodGet, "/uploads/"+acc.UploadID, http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(decodeBody(t, rr).Data, &detail))
	assert.Equal(t, acc.UploadID, detail["id"])
	assert.Equal(t, ini.StoragePath, detail["file_name"])
	assert.Equal(t, []any{}, detail["segments"])
}

func TestHandlerNotifyErrors(t *testing.T) {
	f := newFixture(t, Config{})
	e := newRouter(f)

	rr := do(e, httptest.NewRequest(http.MethodPost, "/uploads/notify", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_INPUT", decodeBody(t, rr).Error.Code)

	rr = do(e, httptest.NewRequest(http.MethodPost, "/uploads/notify", strings.NewReader(`{"storage_path":"../x.mp3"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(e, httptest.NewRequest(http.MethodGet, "/uploads/nope", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rr).Error.Code)
}

func TestHandlerMultipartUpload(t *testing.T) {
	f := newFixture(t, Config{})
	e := newRouter(f)

	rr := do(e, multipartUpload(t, "file", "standup.m4a", []byte("fake audio bytes")))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	var acc Accepted
	require.NoError(t, json.Unmarshal(decodeBody(t, rr).Data, &acc))

	job, err := f.store.Get(t.Context(), acc.UploadID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(job.StoragePath, ".m4a"))

	rr = do(e, multipartUpload(t, "audio", "standup.m4a", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerUploadTooLarge(t *testing.T) {
	f := newFixture(t, Config{MaxUploadBytes: 16})
	e := newRouter(f)

	rr := do(e, multipartUpload(t, "file", "big.mp3", bytes.Repeat([]byte("a"), 64)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeBody(t, rr).Error.Code)
}

func TestHandlerList(t *testing.T) {
	f := newFixture(t, Config{})
	e := newRouter(f)
	for _, p := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		_, err := f.svc.Notify(t.Context(), NotifyRequest{StoragePath: p})
		require.NoError(t, err)
	}

	rr := do(e, httptest.NewRequest(http.MethodGet, "/uploads?status=pending&limit=2", http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeBody(t, rr)
	assert.Equal(t, 2, env.Meta["count"])

	rr = do(e, httptest.NewRequest(http.MethodGet, "/uploads?limit=many", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerBearerAuth(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	f := newFixture(t, Config{})
	e := newRouter(f, middleware.BearerAuth(middleware.JWTConfig{Enabled: true, Secret: secret}))

	rr := do(e, httptest.NewRequest(http.MethodPost, "/uploads/initiate", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "uploader",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/uploads/initiate", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, do(e, req).Code)
}
