package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midiroll/melody"
	"midiroll/pianoroll"
)

func do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	New(nil, nil).Handler().ServeHTTP(rec, req)
	return rec
}

func TestGenerate(t *testing.T) {
	rec := do(t, http.MethodPost, "/generate", []byte(`{"tempo":120,"key":"A minor","bars":2,"seed":9}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(9), resp.Seed)
	assert.Equal(t, "A minor", resp.Key)
	assert.Equal(t, 8, resp.Timeline.NoteCount())
	assert.Len(t, resp.Layout.Rects, 8)
	assert.Equal(t, 2000, resp.Layout.CanvasWidth)

	// same seed, same melody
	again := do(t, http.MethodPost, "/generate", []byte(`{"tempo":120,"key":"A minor","bars":2,"seed":9}`))
	assert.JSONEq(t, rec.Body.String(), again.Body.String())
}

func TestGenerateDefaultsAndFallbackKey(t *testing.T) {
	rec := do(t, http.MethodPost, "/generate", []byte(`{"key":"Z wrong"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "C major", resp.Key)
	assert.Equal(t, 16, resp.Timeline.NoteCount())
	assert.NotZero(t, resp.Seed)
}

func TestGenerateWithModel(t *testing.T) {
	rec := do(t, http.MethodPost, "/generate", []byte(`{"key":"G major","bars":1,"seed":3,"model":true}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Timeline.NoteCount())
}

func TestGenerateRejectsBadInput(t *testing.T) {
	rec := do(t, http.MethodPost, "/generate", []byte(`{"tempo":-5}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "tempo")

	rec = do(t, http.MethodPost, "/generate", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, http.MethodGet, "/generate", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRenderSMF(t *testing.T) {
	var smf bytes.Buffer
	_, err := melody.Generate(60, "D major", 6, melody.WithSeed(4)).WriteTo(&smf)
	require.NoError(t, err)

	rec := do(t, http.MethodPost, "/render", smf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var l pianoroll.Layout
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	require.Len(t, l.Rects, 6)
	// half a second per note
	assert.InDelta(t, 50, l.Rects[1].X0, 1)
}

func TestRenderRejectsGarbage(t *testing.T) {
	rec := do(t, http.MethodPost, "/render", []byte("not a midi file"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderPNG(t *testing.T) {
	rec := do(t, http.MethodGet, "/render.png?tempo=100&key=E+minor&bars=1&seed=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("X-Midiroll-Seed"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())

	rec = do(t, http.MethodGet, "/render.png?tempo=fast", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKeys(t *testing.T) {
	rec := do(t, http.MethodGet, "/keys", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var keys []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	assert.Len(t, keys, 24)
	assert.Contains(t, keys, "F# minor")
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	New(nil, nil).Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "["))
}
