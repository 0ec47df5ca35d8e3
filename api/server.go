package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"net/http"
	"text2phenotype.com/ctcdecode/decoder"
	"text2phenotype.com/ctcdecode/pipeline"
	"text2phenotype.com/ctcdecode/scorer"
	"text2phenotype.com/ctcdecode/types"
)

const (
	configParam = "config"
	tidParam    = "tid"
	defaultTid  = "api"

	maxBodyBytes = 256 << 20
)

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes the decoders of a registry over HTTP.
type Server struct {
	Registry *pipeline.Registry
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/decode", s.Decode)
	mux.HandleFunc("/scorer", s.Scorer)
	mux.HandleFunc("/configurations", s.Configurations)
}

// Decode handles POST /decode?config=<name>[&tid=<tid>] with a JSON emission batch body.
func (s *Server) Decode(w http.ResponseWriter, r *http.Request) {
	requestLogger := makeRequestLogger(r)
	if r.Method != http.MethodPost {
		writeError(w, &requestLogger, http.StatusMethodNotAllowed, errors.New("only 'POST' method is allowed here"))
		return
	}
	d, err := s.Registry.Get(r.URL.Query().Get(configParam))
	if err != nil {
		writeError(w, &requestLogger, statusFor(err), err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, &requestLogger, http.StatusBadRequest, fmt.Errorf("could not read request body: %w", err))
		return
	}
	var batch decoder.Batch
	if err = json.Unmarshal(body, &batch); err != nil {
		writeError(w, &requestLogger, http.StatusBadRequest, fmt.Errorf("%w: %s", decoder.ErrInvalidInput, err))
		return
	}

	tid := r.URL.Query().Get(tidParam)
	if len(tid) == 0 {
		tid = defaultTid
	}
	requestLogger.Info().Str("tid", tid).Int("batch_size", len(batch.Probs)).Msg("Decoding batch from API")
	response, err := d.Decode(r.Context(), tid, batch)
	if err != nil {
		writeError(w, &requestLogger, statusFor(err), err)
		return
	}
	writeJSON(w, &requestLogger, http.StatusOK, response)
}

// Scorer handles GET /scorer?config=<name> and PUT /scorer?config=<name>
// with a {"alpha": .., "beta": ..} body.
func (s *Server) Scorer(w http.ResponseWriter, r *http.Request) {
	requestLogger := makeRequestLogger(r)
	d, err := s.Registry.Get(r.URL.Query().Get(configParam))
	if err != nil {
		writeError(w, &requestLogger, statusFor(err), err)
		return
	}

	var info *scorer.Info
	switch r.Method {
	case http.MethodGet:
		info, err = d.ScorerInfo()
	case http.MethodPut:
		var params scorer.Params
		if err = json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, &requestLogger, http.StatusBadRequest, fmt.Errorf("could not parse scorer parameters: %w", err))
			return
		}
		info, err = d.ResetScorer(params)
	default:
		writeError(w, &requestLogger, http.StatusMethodNotAllowed, errors.New("only 'GET' and 'PUT' methods are allowed here"))
		return
	}
	if err != nil {
		writeError(w, &requestLogger, statusFor(err), err)
		return
	}
	writeJSON(w, &requestLogger, http.StatusOK, info)
}

// Configurations handles GET /configurations.
func (s *Server) Configurations(w http.ResponseWriter, r *http.Request) {
	requestLogger := makeRequestLogger(r)
	if r.Method != http.MethodGet {
		writeError(w, &requestLogger, http.StatusMethodNotAllowed, errors.New("only 'GET' method is allowed here"))
		return
	}
	configs := make([]types.Configuration, 0, len(s.Registry.Names()))
	for _, name := range s.Registry.Names() {
		d, err := s.Registry.Get(name)
		if err != nil {
			writeError(w, &requestLogger, statusFor(err), err)
			return
		}
		configs = append(configs, d.Configuration())
	}
	writeJSON(w, &requestLogger, http.StatusOK, configs)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnknownConfig), errors.Is(err, scorer.ErrNoScorer):
		return http.StatusNotFound
	case errors.Is(err, decoder.ErrInvalidInput), errors.Is(err, decoder.ErrShapeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, scorer.ErrScorerUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, requestLogger *zerolog.Logger, status int, err error) {
	requestLogger.Err(err).Int("status", status).Msg("Request failed")
	writeJSON(w, requestLogger, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, requestLogger *zerolog.Logger, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		requestLogger.Err(err).Msg("Failed to marshal response")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
	if status == http.StatusOK {
		requestLogger.Info().Int("status", status).Msg("Finished processing request")
	}
}
