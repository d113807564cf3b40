package lnaddy

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/lnaddy/lnaddy/internal/store"
)

// Store is the pay link persistence this server reads from. Lookups return
// nil without error for records that do not exist.
type Store interface {
	GetAddressData(ctx context.Context, username string) (*store.PayLink,
		error)
	GetPayLink(ctx context.Context, id string) (*store.PayLink, error)

	// IncrementPayLink atomically bumps the link's served-meta counter
	// and returns the updated record.
	IncrementPayLink(ctx context.Context, id string) (*store.PayLink,
		error)
}

// RateSource answers how many satoshi one unit of a fiat currency buys.
type RateSource interface {
	SatPerUnit(currency string) (float64, error)
}

type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// PublicURL overrides the scheme and host used when building callback
	// URLs and lightning address domains, for deployments behind a
	// reverse proxy. Empty means derive them from each request.
	PublicURL string `yaml:"public_url"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Lnd struct {
		Addr        string `yaml:"addr"`
		Network     string `yaml:"network"`
		MacaroonDir string `yaml:"macaroon_dir"`
		TLSPath     string `yaml:"tls_path"`
	} `yaml:"lnd"`

	// Currencies the rate watcher keeps prices for.
	Currencies []string `yaml:"currencies"`
}

type Server struct {
	cfg      *Config
	store    Store
	rates    RateSource
	invoicer Invoicer
	urls     *URLBuilder

	httpServer *http.Server
	router     *mux.Router
}

// NewServer wires the handlers up with their collaborators. The lnd
// connection, database and rate watcher are owned by the caller.
func NewServer(cfg *Config, db Store, rates RateSource,
	invoicer Invoicer) (*Server, error) {

	var publicURL *url.URL
	if cfg.PublicURL != "" {
		var err error
		publicURL, err = url.Parse(cfg.PublicURL)
		if err != nil {
			return nil, fmt.Errorf("invalid public url: %w", err)
		}
	}

	s := &Server{
		cfg:      cfg,
		store:    db,
		rates:    rates,
		invoicer: invoicer,
		urls:     NewURLBuilder(publicURL),
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc(
		"/.well-known/lnurlp/{username}",
		loggingMiddleware("lnurlp", s.wellKnown),
	).Methods(http.MethodGet)

	s.router.HandleFunc(
		"/api/v1/lnurl/cb/{link_id}",
		loggingMiddleware("api", s.callback),
	).Methods(http.MethodGet)

	s.router.HandleFunc(
		"/api/v1/lnurl/{link_id}",
		loggingMiddleware("api", s.payLink),
	).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		WriteTimeout: 90 * time.Second,
		ReadTimeout:  90 * time.Second,
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	s.printHello()
	return s.httpServer.ListenAndServe()
}

func (s *Server) printHello() {
	host := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if s.cfg.PublicURL != "" {
		if u, err := url.Parse(s.cfg.PublicURL); err == nil {
			host = u.Host
		}
	}

	fmt.Printf(""+
		"=======================================\n"+
		"Lightning address server listening.\n"+
		"Addresses are served as:\n"+
		"- <username>@%s\n"+
		"- https://%s/.well-known/lnurlp/<username>\n"+
		"=======================================\n",
		host, host,
	)
}

// wellKnown resolves a lightning address username into a payRequest
// descriptor. Failures are reported in-band with status 200, as LNURL
// wallets only parse the body.
func (s *Server) wellKnown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := mux.Vars(r)["username"]

	link, err := s.store.GetAddressData(ctx, username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if link == nil {
		log.Debugf("[lnurlp] Unknown address %s", username)
		writeJSON(w, NewError("Address not found."))
		return
	}

	writeJSON(w, &PayRequest{
		Tag:            TypePayRequest,
		Callback:       s.urls.Callback(r, link.ID),
		Metadata:       Metadata(link.Description),
		MinSendable:    int64(link.Min * 1000),
		MaxSendable:    int64(link.Max * 1000),
		CommentAllowed: link.CommentChars,
	})
}

// payLink serves the descriptor for a pay link by id. Unlike the well-known
// endpoint this one has plain HTTP semantics: a missing link is a 404.
// Fetching the descriptor counts as serving the link's metadata, so the
// served-meta counter is bumped on every successful call.
func (s *Server) payLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["link_id"]

	link, err := s.store.IncrementPayLink(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if link == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"detail": "Pay link does not exist.",
		}); err != nil {
			log.Errorf("[api] Could not write response: %v", err)
		}
		return
	}

	minSendable, maxSendable, err := s.sendableBounds(link)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, &PayRequest{
		Tag:            TypePayRequest,
		Callback:       s.urls.Callback(r, link.ID),
		Metadata:       Metadata(link.Description),
		MinSendable:    minSendable,
		MaxSendable:    maxSendable,
		CommentAllowed: link.CommentChars,
	})
}

// callback converts a millisatoshi amount into an invoice bound to the pay
// link's metadata. The invoice's description hash commits to the exact
// metadata string the descriptor phase served for this link.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["link_id"]

	amt := r.FormValue("amount")
	if amt == "" {
		http.Error(w, "expected 'amount' field", http.StatusBadRequest)
		return
	}

	milliSats, err := strconv.ParseInt(amt, 10, 64)
	if err != nil {
		http.Error(
			w, "'amount' must be an integer number of "+
				"millisatoshi", http.StatusBadRequest,
		)
		return
	}

	link, err := s.store.GetPayLink(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if link == nil {
		log.Debugf("[api] Callback for unknown link %s", id)
		writeJSON(w, NewError("Address not found"))
		return
	}

	minSendable, maxSendable, err := s.sendableBounds(link)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if milliSats < minSendable || milliSats > maxSendable {
		writeJSON(w, NewError(fmt.Sprintf(
			"Amount out of bounds (min: %d mSat, max: %d mSat).",
			minSendable, maxSendable,
		)))
		return
	}

	comment := r.FormValue("comment")
	if int64(len(comment)) > link.CommentChars {
		http.Error(w, fmt.Sprintf(
			"comment too long (max: %d characters)",
			link.CommentChars,
		), http.StatusBadRequest)
		return
	}

	domain := s.urls.Domain(r)

	// The metadata here must reproduce, byte for byte, the string served
	// by the descriptor phase for this link.
	metadata := Metadata(link.Description)

	extra := map[string]string{
		"tag":     "lnaddress",
		"link":    link.ID,
		"payment": PayLabel(link.Username, domain),
	}
	if comment != "" {
		extra["comment"] = comment
	}

	paymentHash, paymentRequest, err := s.invoicer.CreateInvoice(
		ctx, link.Wallet, milliSats/1000, link.Description,
		[]byte(metadata), extra,
	)
	if err != nil {
		log.Errorf("[api] Invoice for link %s failed: %v", link.ID,
			err)
		http.Error(
			w, fmt.Sprintf("could not create invoice: %v", err),
			http.StatusInternalServerError,
		)
		return
	}

	action, err := successConfig(link).Render(paymentHash)
	if err != nil {
		log.Errorf("[api] Success action for link %s failed: %v",
			link.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, &PayValues{
		PR:            paymentRequest,
		Routes:        make([]struct{}, 0),
		SuccessAction: action,
	})
}

// sendableBounds converts a link's stored bounds into advertised
// millisatoshi values. Currency denominated links go through the rate
// source; the same rounding applies to min and max.
func (s *Server) sendableBounds(link *store.PayLink) (int64, int64, error) {
	rate := float64(1)
	if link.Currency != "" {
		var err error
		rate, err = s.rates.SatPerUnit(link.Currency)
		if err != nil {
			return 0, 0, fmt.Errorf("could not fetch rate for "+
				"'%s': %w", link.Currency, err)
		}
	}

	minSendable := int64(math.Round(link.Min*rate)) * 1000
	maxSendable := int64(math.Round(link.Max*rate)) * 1000

	return minSendable, maxSendable, nil
}

func successConfig(link *store.PayLink) *SuccessActionConfig {
	return &SuccessActionConfig{
		Tag:     link.SuccessTag,
		Message: link.SuccessMessage,
		URL:     link.SuccessURL,
		Secret:  link.SuccessSecret,
	}
}

func writeJSON(w http.ResponseWriter, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("[server] Could not write response: %v", err)
	}
}

func loggingMiddleware(prefix string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Tracef("[%s] %s %s", prefix, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	}
}
