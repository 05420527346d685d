package main

import (
	"flag"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/glowdesk/teamchat/internal/auth"
	"github.com/glowdesk/teamchat/internal/chat"
	"github.com/glowdesk/teamchat/internal/config"
	"github.com/glowdesk/teamchat/internal/email"
	"github.com/glowdesk/teamchat/internal/handlers"
	"github.com/glowdesk/teamchat/internal/logging"
	"github.com/glowdesk/teamchat/internal/metrics"
	"github.com/glowdesk/teamchat/internal/middleware"
	"github.com/glowdesk/teamchat/internal/realtime"
	"github.com/glowdesk/teamchat/internal/store/sqlstore"
	"github.com/glowdesk/teamchat/internal/ws"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.L().Fatal().Err(err).Msg("configuration failed")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	auth.SetSecret([]byte(cfg.Auth.CookieSecret))

	st, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logging.L().Fatal().Err(err).Msg("store initialization failed")
	}
	defer st.Close()

	broker := realtime.NewBroker()

	hub := ws.NewHub()
	go hub.Run()

	sender := email.NewSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	chatOpts := chat.Options{
		DedupWindow: cfg.Chat.DedupWindow,
		SendRate:    cfg.Chat.SendRate,
		SendBurst:   cfg.Chat.SendBurst,
	}

	authHandler := &handlers.AuthHandler{Store: st}
	groupHandler := &handlers.GroupHandler{Store: st, Hub: hub, Email: sender}
	messageHandler := &handlers.MessageHandler{Store: st}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)

	// API endpoints
	r.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.Handle("/users/search", middleware.AuthMiddleware(http.HandlerFunc(authHandler.SearchUsers))).Methods("GET")

	r.Handle("/groups", middleware.AuthMiddleware(http.HandlerFunc(groupHandler.CreateGroup))).Methods("POST")
	r.Handle("/groups", middleware.AuthMiddleware(http.HandlerFunc(groupHandler.GetGroups))).Methods("GET")
	r.Handle("/groups/{id}", middleware.AuthMiddleware(http.HandlerFunc(groupHandler.UpdateGroup))).Methods("PUT")
	r.Handle("/groups/{id}", middleware.AuthMiddleware(http.HandlerFunc(groupHandler.DeleteGroup))).Methods("DELETE")
	r.Handle("/groups/{id}/invite", middleware.AuthMiddleware(http.HandlerFunc(groupHandler.InviteUser))).Methods("POST")
	r.Handle("/groups/{id}/members", middleware.AuthMiddleware(http.HandlerFunc(groupHandler.GetGroupMembers))).Methods("GET")
	r.Handle("/groups/{id}/messages", middleware.AuthMiddleware(http.HandlerFunc(messageHandler.GetGroupMessages))).Methods("GET")
	r.Handle("/direct/{peer}/messages", middleware.AuthMiddleware(http.HandlerFunc(messageHandler.GetDirectMessages))).Methods("GET")
	r.Handle("/messages/{id}/reactions", middleware.AuthMiddleware(http.HandlerFunc(messageHandler.GetReactions))).Methods("GET")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// WebSocket endpoint: one connection per open chat modal.
	r.Handle("/ws", middleware.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, st, broker, chatOpts, w, r, middleware.UserID(r))
	})))

	// Serve the modal shell and static assets.
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, cfg.Server.StaticDir+"/index.html")
	})
	r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".css") || strings.HasSuffix(r.URL.Path, ".js") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		http.FileServer(http.Dir(cfg.Server.StaticDir)).ServeHTTP(w, r)
	}))

	logging.L().Info().Str("addr", cfg.Server.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Server.Addr, r); err != nil {
		logging.L().Fatal().Err(err).Msg("server exited")
	}
}
