package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/maxgio92/ndi-discover/pkg/discovery"
)

var (
	ErrRunnerMissing    = errors.New("discovery runner missing")
	ErrTimeoutNotValid  = errors.New("timeout must be a positive number of seconds")
	ErrJSONBodyRequired = errors.New("JSON body required")
	ErrIPsNotValid      = errors.New("ips must be a list")
	ErrIPMissing        = errors.New("ip is required")
)

type sourcesResponse struct {
	Sources []discovery.Source `json:"sources"`
	Count   int                `json:"count"`
}

type refreshRequest struct {
	Timeout *int `json:"timeout"`
}

type hostsRequest struct {
	IPs []string `json:"ips"`
}

type hostRequest struct {
	IP string `json:"ip"`
}

type hostsResponse struct {
	IPs []string `json:"ips"`
}

func (g *Gateway) AddSourceRoutes(r *mux.Router) {
	r.Methods(http.MethodGet).Path("/api/sources").HandlerFunc(g.ListSourcesHandler)

	sourceRouter := r.PathPrefix("/api/sources").Subrouter()
	sourceRouter.Methods(http.MethodGet).Path("/").HandlerFunc(g.ListSourcesHandler)
	sourceRouter.Methods(http.MethodPost).Path("/refresh").HandlerFunc(g.RefreshSourcesHandler)
	sourceRouter.Methods(http.MethodGet).Path("/extra-ips").HandlerFunc(g.GetExtraIPsHandler)
	sourceRouter.Methods(http.MethodPut).Path("/extra-ips").HandlerFunc(g.SetExtraIPsHandler)
	sourceRouter.Methods(http.MethodPost).Path("/extra-ips").HandlerFunc(g.AddExtraIPHandler)
	sourceRouter.Methods(http.MethodDelete).Path("/extra-ips/{ip}").HandlerFunc(g.RemoveExtraIPHandler)
}

func (g *Gateway) HomeHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "NDI discovery gateway\n")
}

func (g *Gateway) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) ListSourcesHandler(w http.ResponseWriter, r *http.Request) {
	g.serveSources(w, g.timeout)
}

func (g *Gateway) RefreshSourcesHandler(w http.ResponseWriter, r *http.Request) {
	timeout := g.timeout

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		req := new(refreshRequest)
		if err := json.Unmarshal(body, req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrJSONBodyRequired.Error())
			return
		}
		if req.Timeout != nil {
			if *req.Timeout <= 0 {
				writeJSON(w, http.StatusBadRequest, ErrTimeoutNotValid.Error())
				return
			}
			timeout = time.Duration(*req.Timeout) * time.Second
		}
	}

	g.serveSources(w, timeout)
}

func (g *Gateway) serveSources(w http.ResponseWriter, timeout time.Duration) {
	if g.runner == nil {
		writeJSON(w, http.StatusInternalServerError, ErrRunnerMissing.Error())
		return
	}

	sources, err := g.discover(timeout)
	if err != nil {
		g.logger.WithError(err).Error("discovery failed")

		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	g.logger.
		WithField("timeout", timeout.String()).
		WithField("count", len(sources)).
		Info("sources discovered")

	writeJSON(w, http.StatusOK, sourcesResponse{Sources: sources, Count: len(sources)})
}

func (g *Gateway) GetExtraIPsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hostsResponse{IPs: g.hosts.List()})
}

func (g *Gateway) SetExtraIPsHandler(w http.ResponseWriter, r *http.Request) {
	raw := map[string]json.RawMessage{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrJSONBodyRequired.Error())
		return
	}

	req := new(hostsRequest)
	if v, ok := raw["ips"]; ok {
		if err := json.Unmarshal(v, &req.IPs); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrIPsNotValid.Error())
			return
		}
	}

	ips := g.hosts.Set(req.IPs)
	g.logger.WithField("ips", ips).Info("extra ips updated")

	writeJSON(w, http.StatusOK, hostsResponse{IPs: ips})
}

func (g *Gateway) AddExtraIPHandler(w http.ResponseWriter, r *http.Request) {
	req := new(hostRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrJSONBodyRequired.Error())
		return
	}
	ip := strings.TrimSpace(req.IP)
	if ip == "" {
		writeJSON(w, http.StatusBadRequest, ErrIPMissing.Error())
		return
	}

	writeJSON(w, http.StatusOK, hostsResponse{IPs: g.hosts.Add(ip)})
}

func (g *Gateway) RemoveExtraIPHandler(w http.ResponseWriter, r *http.Request) {
	ip := mux.Vars(r)["ip"]

	writeJSON(w, http.StatusOK, hostsResponse{IPs: g.hosts.Remove(ip)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
