package node

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	clientrequest "github.com/TopiaNetwork/topia-wallet/client_request"
	"github.com/TopiaNetwork/topia-wallet/codec"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	"github.com/TopiaNetwork/topia-wallet/wallet"
	"github.com/TopiaNetwork/topia-wallet/wallet/secure_store"
)

type pendingRequest struct {
	ID         string          `json:"id"`
	State      string          `json:"state"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Timestamp  int64           `json:"timestamp"`
	Action     string          `json:"action"`
	Origin     string          `json:"origin"`
	Type       string          `json:"type,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type decodedRequest struct {
	Kind    string `json:"kind"`
	Origin  string `json:"origin"`
	Summary string `json:"summary"`
}

type resolveBody struct {
	Approved  bool   `json:"approved"`
	AccountID string `json:"accountId,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// api lets the approval surface drive the pending client request over HTTP. The host only
// forwards calls that carry the surface token from the surface origin.
type api struct {
	log    tplog.Logger
	slot   *clientrequest.Slot
	parser clientrequest.Parser
}

func newAPI(log tplog.Logger, slot *clientrequest.Slot) http.Handler {
	a := &api{
		log:    log,
		slot:   slot,
		parser: clientrequest.JSONParser{},
	}

	r := chi.NewRouter()
	r.Get("/request", a.current)
	r.Delete("/request", a.reset)
	r.Group(func(r chi.Router) {
		r.Use(a.requireJSON)
		r.Post("/request/decode", a.decode)
		r.Post("/request/resolve", a.resolve)
	})
	return r
}

// requireJSON admits only application/json bodies.
func (a *api) requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			a.write(w, http.StatusUnsupportedMediaType, &apiError{Error: "content type must be application/json"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := codec.CreateEncoder(codec.CodecType_JSON, w).Encode(v); err != nil {
		a.log.Warnf("Write api response err: %v", err)
	}
}

func (a *api) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, clientrequest.ErrIllegalTransition):
		status = http.StatusConflict
	case errors.Is(err, clientrequest.ErrUnsupportedRequest):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, wallet.ErrLocked), errors.Is(err, secure_store.ErrInvalidPassword):
		status = http.StatusUnauthorized
	case errors.Is(err, wallet.ErrIllegalState):
		status = http.StatusBadRequest
	}
	a.write(w, status, &apiError{Error: err.Error()})
}

func (a *api) current(w http.ResponseWriter, r *http.Request) {
	session, state := a.slot.Current()
	if session == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.write(w, http.StatusOK, &pendingRequest{
		ID:         session.ID,
		State:      state.String(),
		ReceivedAt: session.ReceivedAt,
		Timestamp:  session.Timestamp,
		Action:     session.Action,
		Origin:     session.Origin,
		Type:       session.Type,
		Data:       session.Data,
	})
}

func (a *api) reset(w http.ResponseWriter, r *http.Request) {
	a.slot.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) decode(w http.ResponseWriter, r *http.Request) {
	decoded, err := a.slot.Decode(a.parser)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.write(w, http.StatusOK, &decodedRequest{
		Kind:    decoded.Kind,
		Origin:  decoded.Origin,
		Summary: decoded.Summary,
	})
}

func (a *api) resolve(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := codec.CreateDecoder(codec.CodecType_JSON, r.Body).Decode(&body); err != nil {
		a.write(w, http.StatusBadRequest, &apiError{Error: err.Error()})
		return
	}

	resp, err := a.slot.Resolve(r.Context(), clientrequest.Decision{
		Approved:  body.Approved,
		AccountID: body.AccountID,
	})
	if resp == nil && err != nil {
		a.fail(w, err)
		return
	}
	if err != nil {
		a.log.Warnf("Client response not delivered: %v", err)
	}
	a.write(w, http.StatusOK, resp)
}
