// Package api serves melody generation and piano-roll layouts over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"midiroll/config"
	"midiroll/debug"
	"midiroll/generative"
	"midiroll/melody"
	"midiroll/pianoroll"
	"midiroll/theme"
	"midiroll/timeline"
)

// MaxBodyBytes caps uploaded MIDI files
const MaxBodyBytes = 4 << 20

// GenerateRequest selects what to generate. Zero fields take the
// configured settings.
type GenerateRequest struct {
	Tempo int    `json:"tempo"`
	Key   string `json:"key"`
	Bars  int    `json:"bars"`
	Seed  uint64 `json:"seed"`
	Model bool   `json:"model"`
}

type GenerateResponse struct {
	Seed     uint64             `json:"seed"`
	Key      string             `json:"key"`
	Timeline *timeline.Timeline `json:"timeline"`
	Layout   pianoroll.Layout   `json:"layout"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	cfg     *config.Config
	palette *theme.Palette
}

func New(c *config.Config, p *theme.Palette) *Server {
	if c == nil {
		c = config.DefaultConfig()
	}
	if p == nil {
		p = theme.DefaultPalette()
	}
	return &Server{cfg: c, palette: p}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/render.png", s.handleRenderPNG).Methods(http.MethodGet)
	r.HandleFunc("/keys", s.handleKeys).Methods(http.MethodGet)
	return r
}

// Handler is the router wrapped with permissive CORS
func (s *Server) Handler() http.Handler {
	return cors.Default().Handler(s.Router())
}

func (s *Server) layout(tl *timeline.Timeline) pianoroll.Layout {
	return pianoroll.Render(tl,
		pianoroll.WithRowHeight(s.cfg.Render.RowHeight),
		pianoroll.WithPixelsPerSecond(float64(s.cfg.Render.PixelsPerSecond)),
	)
}

func (s *Server) generate(r *http.Request, req GenerateRequest) (GenerateResponse, error) {
	settings := s.cfg.Settings
	if req.Tempo != 0 {
		settings.Tempo = req.Tempo
	}
	if req.Key != "" {
		settings.Key = req.Key
	}
	if req.Bars != 0 {
		settings.Bars = req.Bars
	}
	if err := settings.Validate(); err != nil {
		return GenerateResponse{}, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var tl *timeline.Timeline
	if req.Model {
		p := generative.DefaultPolicy()
		p.Rand = rand.New(rand.NewPCG(seed, seed>>1))
		var err error
		tl, err = generative.Generate(r.Context(), generative.NewScaleScorer(settings.Key, settings.NoteCount()),
			generative.EventConverter{}, nil, p, generative.DefaultMaxLen, float64(settings.Tempo))
		if err != nil {
			return GenerateResponse{}, err
		}
	} else {
		tl = melody.Generate(settings.Tempo, settings.Key, settings.NoteCount(), melody.WithSeed(seed))
	}

	key := settings.Key
	if k, err := melody.ParseKey(key); err != nil {
		key = melody.DefaultKey.String()
	} else {
		key = k.String()
	}
	return GenerateResponse{Seed: seed, Key: key, Timeline: tl, Layout: s.layout(tl)}, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	resp, err := s.generate(r, req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	tl, err := timeline.Read(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.layout(tl))
}

func (s *Server) handleRenderPNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := GenerateRequest{Key: q.Get("key"), Model: q.Get("model") == "true"}
	var err error
	if req.Tempo, err = intParam(q.Get("tempo")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tempo: %w", err))
		return
	}
	if req.Bars, err = intParam(q.Get("bars")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bars: %w", err))
		return
	}
	if v := q.Get("seed"); v != "" {
		if req.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("seed: %w", err))
			return
		}
	}

	resp, err := s.generate(r, req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := pianoroll.WritePNG(&buf, resp.Layout, s.palette); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Midiroll-Seed", strconv.FormatUint(resp.Seed, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, melody.Keys())
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func statusFor(err error) int {
	var verr *config.ValidationError
	var cerr *generative.ConversionError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &cerr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Log("api", "encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	debug.Log("api", "%d: %v", status, err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
